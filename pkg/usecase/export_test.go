package usecase

// BackendError is exported for testing
var BackendError = backendError

// ResolutionMessage is exported for testing
var ResolutionMessage = resolutionMessage
