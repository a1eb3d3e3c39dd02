package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/usecase"
	"github.com/nexaflow/nexaflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Auth holds CLI flags for verifying access tokens of the hosted auth provider
type Auth struct {
	jwtSecret string
	issuer    string
	audience  string
	noAuthUID string
}

func (x *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "auth-jwt-secret",
			Usage:       "HS256 secret the auth provider signs access tokens with",
			Category:    "Authentication",
			Sources:     cli.EnvVars("NEXAFLOW_AUTH_JWT_SECRET"),
			Destination: &x.jwtSecret,
		},
		&cli.StringFlag{
			Name:        "auth-issuer",
			Usage:       "Required iss claim of access tokens",
			Category:    "Authentication",
			Sources:     cli.EnvVars("NEXAFLOW_AUTH_ISSUER"),
			Destination: &x.issuer,
		},
		&cli.StringFlag{
			Name:        "auth-audience",
			Usage:       "Required aud claim of access tokens",
			Category:    "Authentication",
			Value:       "authenticated",
			Sources:     cli.EnvVars("NEXAFLOW_AUTH_AUDIENCE"),
			Destination: &x.audience,
		},
		&cli.StringFlag{
			Name:        "no-auth",
			Usage:       "Skip authentication and act as the given profile ID (development only)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("NEXAFLOW_NO_AUTH"),
			Destination: &x.noAuthUID,
		},
	}
}

func (x Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("jwt-secret.len", len(x.jwtSecret)),
		slog.String("issuer", x.issuer),
		slog.String("audience", x.audience),
		slog.String("no-auth", x.noAuthUID),
	)
}

// IsNoAuthMode returns true if no-auth mode is enabled
func (x *Auth) IsNoAuthMode() bool {
	return x.noAuthUID != ""
}

// Configure creates the authenticator. --no-auth takes precedence over the JWT secret.
func (x *Auth) Configure(repo interfaces.Repository) (usecase.AuthUseCaseInterface, error) {
	if x.IsNoAuthMode() {
		if x.jwtSecret != "" {
			logging.Default().Warn("--no-auth is set, ignoring --auth-jwt-secret")
		}
		return usecase.NewNoAuthnUseCase(repo, x.noAuthUID), nil
	}

	if x.jwtSecret == "" {
		return nil, goerr.Wrap(ErrInvalidConfig, "authentication is required: set --auth-jwt-secret, or use --no-auth=<profile id>")
	}

	var opts []usecase.AuthOption
	if x.issuer != "" {
		opts = append(opts, usecase.WithIssuer(x.issuer))
	}
	if x.audience != "" {
		opts = append(opts, usecase.WithAudience(x.audience))
	}
	return usecase.NewAuthUseCase(repo, []byte(x.jwtSecret), opts...), nil
}
