package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound   = goerr.New("configuration file not found")
	ErrInvalidConfig    = goerr.New("invalid configuration")
	ErrDuplicateRule    = goerr.New("duplicate rule name")
	ErrDuplicateProfile = goerr.New("duplicate profile ID")
	ErrMissingName      = goerr.New("name is required")
	ErrInvalidFlag      = goerr.New("invalid flag value")
)

// Context keys for error values
const (
	ConfigPathKey   = "config_path"
	RuleNameKey     = "rule_name"
	RuleIndexKey    = "rule_index"
	ProfileIDKey    = "profile_id"
	ProfileIndexKey = "profile_index"
	FlagKey         = "flag"
)
