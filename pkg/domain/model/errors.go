package model

import "github.com/m-mizutani/goerr/v2"

// Workflow errors
var (
	ErrInvalidTransition  = goerr.New("invalid deliverable transition")
	ErrMissingReason      = goerr.New("reason is required")
	ErrInvalidDeliverable = goerr.New("invalid deliverable")
	ErrInvalidRule        = goerr.New("invalid automation rule")
	ErrVersionMismatch    = goerr.New("decision refers to a version that is no longer pending")
)

// Approval token and command errors
var (
	ErrInvalidToken     = goerr.New("invalid approval token")
	ErrTokenMissing     = goerr.New("approval token is missing")
	ErrAmbiguousCommand = goerr.New("approval command is ambiguous")
)

// Context keys for error values
const (
	DeliverableIDKey = "deliverable_id"
	FromStatusKey    = "from"
	ToStatusKey      = "to"
	TransitionKey    = "transition"
	TokenKey         = "token"
	VersionIDKey     = "version_id"
	RuleIDKey        = "rule_id"
	RuleNameKey      = "rule_name"
	IndexKey         = "index"
)
