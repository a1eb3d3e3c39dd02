package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/service/storage"
	"github.com/nexaflow/nexaflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Storage holds CLI flags for the object storage of version files
type Storage struct {
	backend         string
	bucket          string
	prefix          string
	baseURL         string
	credentialsFile string
}

func (x *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage-backend",
			Usage:       "Object storage backend for uploaded files (gcs or memory)",
			Category:    "Storage",
			Value:       "gcs",
			Sources:     cli.EnvVars("NEXAFLOW_STORAGE_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "storage-bucket",
			Usage:       "Cloud Storage bucket (required when using gcs backend)",
			Category:    "Storage",
			Sources:     cli.EnvVars("NEXAFLOW_STORAGE_BUCKET"),
			Destination: &x.bucket,
		},
		&cli.StringFlag{
			Name:        "storage-prefix",
			Usage:       "Object name prefix inside the bucket",
			Category:    "Storage",
			Sources:     cli.EnvVars("NEXAFLOW_STORAGE_PREFIX"),
			Destination: &x.prefix,
		},
		&cli.StringFlag{
			Name:        "storage-base-url",
			Usage:       "Public URL files are served from (defaults to the bucket URL)",
			Category:    "Storage",
			Sources:     cli.EnvVars("NEXAFLOW_STORAGE_BASE_URL"),
			Destination: &x.baseURL,
		},
		&cli.StringFlag{
			Name:        "storage-credentials-file",
			Usage:       "Service account key file for Cloud Storage (defaults to application default credentials)",
			Category:    "Storage",
			Sources:     cli.EnvVars("NEXAFLOW_STORAGE_CREDENTIALS_FILE"),
			Destination: &x.credentialsFile,
		},
	}
}

func (x Storage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.String("bucket", x.bucket),
		slog.String("prefix", x.prefix),
		slog.Bool("credentials_file", x.credentialsFile != ""),
	)
}

// Configure creates the object storage. The returned function releases it.
func (x *Storage) Configure(ctx context.Context) (interfaces.ObjectStorage, func(), error) {
	switch x.backend {
	case "gcs":
		var opts []storage.GCSOption
		if x.prefix != "" {
			opts = append(opts, storage.WithPrefix(x.prefix))
		}
		if x.baseURL != "" {
			opts = append(opts, storage.WithBaseURL(x.baseURL))
		}
		if x.credentialsFile != "" {
			opts = append(opts, storage.WithClientOptions(option.WithCredentialsFile(x.credentialsFile)))
		}

		gcs, err := storage.NewGCS(ctx, x.bucket, opts...)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize cloud storage", goerr.V("bucket", x.bucket))
		}
		logging.Default().Info("Using Cloud Storage for uploads", "storage", x)
		closer := func() {
			if err := gcs.Close(); err != nil {
				logging.Default().Error("failed to close storage client", "error", err.Error())
			}
		}
		return gcs, closer, nil

	case "memory":
		logging.Default().Info("Using in-memory storage for uploads (development mode)")
		return storage.NewMemory(x.baseURL), func() {}, nil

	default:
		return nil, nil, goerr.Wrap(ErrInvalidFlag, "invalid storage backend",
			goerr.V(FlagKey, "storage-backend"), goerr.V("backend", x.backend))
	}
}
