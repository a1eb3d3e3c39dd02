package http

var (
	VerifyWhatsAppSignature = verifyWhatsAppSignature
	StatusOf                = statusOf
)
