package storage

var (
	ObjectName = objectName
	ObjectURL  = objectURL
)
