package cli

var (
	CmdRule        = cmdRule
	GetIndexConfig = getIndexConfig
)
