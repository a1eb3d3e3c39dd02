package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// AppConfig represents the application configuration file
type AppConfig struct {
	Notification Notification `toml:"notification"`
	Rules        []Rule       `toml:"rule"`
	Profiles     []Profile    `toml:"profile"`
}

// Notification configures notification delivery
type Notification struct {
	DefaultChannel string `toml:"default_channel"`
	SlackChannel   string `toml:"slack_channel"`
}

// Rule is an automation rule installed on startup unless a rule with the same
// name already exists
type Rule struct {
	Name        string      `toml:"name"`
	Description string      `toml:"description"`
	Trigger     string      `toml:"trigger"`
	Active      *bool       `toml:"active"`
	Conditions  []Condition `toml:"condition"`
	Actions     []Action    `toml:"action"`
}

// Condition of a configured rule
type Condition struct {
	Field    string `toml:"field"`
	Operator string `toml:"operator"`
	Value    string `toml:"value"`
}

// Action of a configured rule. Only the fields of Type are read.
type Action struct {
	Type      string `toml:"type"`
	Status    string `toml:"status"`
	Recipient string `toml:"recipient"`
	Channel   string `toml:"channel"`
	Subject   string `toml:"subject"`
	Message   string `toml:"message"`
	UserID    string `toml:"user_id"`
}

// Profile seeds a user profile, e.g. the first admin of a fresh deployment
type Profile struct {
	ID            string `toml:"id"`
	Name          string `toml:"name"`
	Email         string `toml:"email"`
	Phone         string `toml:"phone"`
	Role          string `toml:"role"`
	NotifyChannel string `toml:"notify_channel"`
}

// ToModel converts the configured rule
func (r *Rule) ToModel() *model.AutomationRule {
	rule := &model.AutomationRule{
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		Trigger:     types.EventType(r.Trigger),
		Active:      r.Active == nil || *r.Active,
	}
	for _, c := range r.Conditions {
		rule.Conditions = append(rule.Conditions, model.Condition{
			Field:    c.Field,
			Operator: types.Operator(c.Operator),
			Value:    c.Value,
		})
	}
	for _, a := range r.Actions {
		rule.Actions = append(rule.Actions, model.ActionFields{
			Type:      types.ActionType(a.Type),
			Status:    types.DeliverableStatus(a.Status),
			Recipient: a.Recipient,
			Channel:   types.NotificationChannel(a.Channel),
			Subject:   a.Subject,
			Message:   a.Message,
			UserID:    a.UserID,
		}.Build())
	}
	return rule
}

// ToModel converts the configured profile
func (p *Profile) ToModel() *model.Profile {
	return &model.Profile{
		ID:            strings.TrimSpace(p.ID),
		Name:          p.Name,
		Email:         p.Email,
		Phone:         model.NormalizePhone(p.Phone),
		Role:          types.Role(p.Role),
		NotifyChannel: types.NotificationChannel(p.NotifyChannel),
	}
}

// Validate checks the whole configuration
func (a *AppConfig) Validate() error {
	if ch := a.Notification.DefaultChannel; ch != "" && !types.NotificationChannel(ch).IsValid() {
		return goerr.Wrap(ErrInvalidConfig, "unknown default notification channel", goerr.V("channel", ch))
	}

	names := make(map[string]bool)
	for i := range a.Rules {
		rule := a.Rules[i].ToModel()
		if rule.Name == "" {
			return goerr.Wrap(ErrMissingName, "rule name is required", goerr.V(RuleIndexKey, i))
		}
		if err := rule.Validate(); err != nil {
			return goerr.Wrap(ErrInvalidConfig, "invalid rule",
				goerr.V(RuleNameKey, rule.Name), goerr.V("cause", err.Error()))
		}
		if names[rule.Name] {
			return goerr.Wrap(ErrDuplicateRule, "rule names must be unique", goerr.V(RuleNameKey, rule.Name))
		}
		names[rule.Name] = true
	}

	ids := make(map[string]bool)
	for i := range a.Profiles {
		p := a.Profiles[i].ToModel()
		if p.ID == "" {
			return goerr.Wrap(ErrInvalidConfig, "profile ID is required", goerr.V(ProfileIndexKey, i))
		}
		if strings.TrimSpace(p.Name) == "" {
			return goerr.Wrap(ErrMissingName, "profile name is required", goerr.V(ProfileIDKey, p.ID))
		}
		if !p.Role.IsValid() {
			return goerr.Wrap(ErrInvalidConfig, "unknown profile role", goerr.V(ProfileIDKey, p.ID), goerr.V("role", p.Role))
		}
		if p.NotifyChannel != "" && !p.NotifyChannel.IsValid() {
			return goerr.Wrap(ErrInvalidConfig, "unknown notification channel",
				goerr.V(ProfileIDKey, p.ID), goerr.V("channel", p.NotifyChannel))
		}
		if ids[p.ID] {
			return goerr.Wrap(ErrDuplicateProfile, "profile IDs must be unique", goerr.V(ProfileIDKey, p.ID))
		}
		ids[p.ID] = true
	}

	return nil
}

// AutomationRules returns the configured rules as models
func (a *AppConfig) AutomationRules() []*model.AutomationRule {
	rules := make([]*model.AutomationRule, len(a.Rules))
	for i := range a.Rules {
		rules[i] = a.Rules[i].ToModel()
	}
	return rules
}

// SeedProfiles returns the configured profiles as models
func (a *AppConfig) SeedProfiles() []*model.Profile {
	profiles := make([]*model.Profile, len(a.Profiles))
	for i := range a.Profiles {
		profiles[i] = a.Profiles[i].ToModel()
	}
	return profiles
}

// DefaultChannel returns the configured fallback channel, or in-app
func (a *AppConfig) DefaultChannel() types.NotificationChannel {
	if a.Notification.DefaultChannel == "" {
		return types.NotificationChannelInApp
	}
	return types.NotificationChannel(a.Notification.DefaultChannel)
}

// LoadAppConfiguration loads the application configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path), goerr.V("cause", err.Error()))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}

// App holds the --config flag
type App struct {
	path string
}

func (x *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML configuration file with rules, notification settings and seed profiles",
			Sources:     cli.EnvVars("NEXAFLOW_CONFIG"),
			Destination: &x.path,
		},
	}
}

// Path returns the configured file path
func (x *App) Path() string {
	return x.path
}

// Configure loads the file, or returns an empty configuration when no file is set
func (x *App) Configure() (*AppConfig, error) {
	if x.path == "" {
		return &AppConfig{}, nil
	}
	return LoadAppConfiguration(x.path)
}
