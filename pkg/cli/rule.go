package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/cli/config"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

func cmdRule() *cli.Command {
	return &cli.Command{
		Name:  "rule",
		Usage: "Inspect automation rules of a configuration file",
		Commands: []*cli.Command{
			cmdRuleValidate(),
			cmdRuleList(),
		},
	}
}

func cmdRuleValidate() *cli.Command {
	var appCfg config.App

	return &cli.Command{
		Name:  "validate",
		Usage: "Validate rules and profiles of the configuration file",
		Flags: appCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			if appCfg.Path() == "" {
				return goerr.Wrap(config.ErrInvalidFlag, "--config is required", goerr.V(config.FlagKey, "config"))
			}

			w := c.Root().Writer
			cfg, err := appCfg.Configure()
			if err != nil {
				_, _ = color.New(color.FgRed, color.Bold).Fprint(w, "NG ")
				_, _ = fmt.Fprintf(w, "%s: %s\n", appCfg.Path(), err.Error())
				return err
			}

			_, _ = color.New(color.FgGreen, color.Bold).Fprint(w, "OK ")
			_, _ = fmt.Fprintf(w, "%s: %d rule(s), %d profile(s)\n", appCfg.Path(), len(cfg.Rules), len(cfg.Profiles))
			return nil
		},
	}
}

func cmdRuleList() *cli.Command {
	var appCfg config.App

	return &cli.Command{
		Name:  "list",
		Usage: "List the rules installed on startup, including the built-in review rule",
		Flags: appCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := appCfg.Configure()
			if err != nil {
				return err
			}

			rules := append([]*model.AutomationRule{model.DefaultReviewRule()}, cfg.AutomationRules()...)
			renderRules(c.Root().Writer, rules)
			return nil
		},
	}
}

func renderRules(w io.Writer, rules []*model.AutomationRule) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Name", "Trigger", "Conditions", "Actions", "Active"})
	for _, r := range rules {
		active := color.GreenString("yes")
		if !r.Active {
			active = color.YellowString("no")
		}
		tw.AppendRow(table.Row{r.Name, r.Trigger, describeConditions(r.Conditions), describeActions(r.Actions), active})
	}
	tw.Render()
}

func describeConditions(conds []model.Condition) string {
	if len(conds) == 0 {
		return "-"
	}
	lines := make([]string, len(conds))
	for i, c := range conds {
		lines[i] = fmt.Sprintf("%s %s %v", c.Field, c.Operator, c.Value)
	}
	return strings.Join(lines, "\n")
}

func describeActions(actions []model.RuleAction) string {
	lines := make([]string, len(actions))
	for i, a := range actions {
		f := a.Fields()
		switch {
		case a.UpdateStatus != nil:
			lines[i] = fmt.Sprintf("%s -> %s", f.Type, f.Status)
		case a.SendNotification != nil:
			lines[i] = fmt.Sprintf("%s to %s", f.Type, f.Recipient)
			if f.Channel != "" {
				lines[i] += fmt.Sprintf(" via %s", f.Channel)
			}
		case a.AssignUser != nil:
			lines[i] = fmt.Sprintf("%s %s", f.Type, f.UserID)
		default:
			lines[i] = string(f.Type)
		}
	}
	return strings.Join(lines, "\n")
}
