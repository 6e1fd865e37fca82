package main

import (
	"context"
	"fmt"

	"github.com/andresuchdata/revdeploy/internal/config"
	"github.com/andresuchdata/revdeploy/internal/journal"
	"github.com/andresuchdata/revdeploy/internal/revision"
	"github.com/andresuchdata/revdeploy/internal/service"
	"github.com/andresuchdata/revdeploy/internal/storage"
	"github.com/andresuchdata/revdeploy/pkg/logger"
	"github.com/urfave/cli/v2"
)

type contextKey string

const configKey contextKey = "config"

func newApp() *cli.App {
	return &cli.App{
		Name:  "revdeploy",
		Usage: "List and activate artifact revisions stored in an object store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to a config file (yaml, json, toml)", EnvVars: []string{"REVDEPLOY_CONFIG"}},
			&cli.StringFlag{Name: "driver", Usage: "Storage driver: minio, s3, gcs or local"},
			&cli.StringFlag{Name: "bucket", Usage: "Bucket holding the revisions"},
			&cli.StringFlag{Name: "region", Usage: "Bucket region"},
			&cli.StringFlag{Name: "endpoint", Usage: "Custom S3-compatible or GCS endpoint"},
			&cli.StringFlag{Name: "local-root", Usage: "Directory backing the local driver"},
			&cli.StringFlag{Name: "key", Usage: "Active key the live revision is copied to"},
			&cli.StringFlag{Name: "prefix", Usage: "Revision key prefix (derived from --key when unset)"},
			&cli.StringFlag{Name: "suffix", Usage: "Revision key suffix (derived from --key when unset)"},
			&cli.StringFlag{Name: "log-level", Usage: "Log level"},
			&cli.StringFlag{Name: "log-format", Usage: "Log format: console or json"},
		},
		Before: loadConfig,
		Commands: []*cli.Command{
			{
				Name:  "revisions",
				Usage: "List revisions, most recent first",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of a table"},
				},
				Action: listRevisions,
			},
			{
				Name:  "activate",
				Usage: "Copy a revision onto the active key",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "revision", Aliases: []string{"r"}, Usage: "Revision key to activate", EnvVars: []string{"REVISION_KEY"}},
					&cli.StringFlag{Name: "validate", Usage: "Existence check: direct or catalog", Value: string(revision.StrategyDirect)},
				},
				Action: activateRevision,
			},
			{
				Name:  "upload",
				Usage: "Upload a prepared artifact as a new revision",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "revision", Aliases: []string{"r"}, Usage: "Revision key to publish", Required: true},
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Artifact to upload", Required: true},
					&cli.BoolFlag{Name: "overwrite", Usage: "Replace an existing revision"},
				},
				Action: uploadRevision,
			},
			{
				Name:  "history",
				Usage: "Show recent activations from the journal",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: showHistory,
			},
			{
				Name:   "serve",
				Usage:  "Serve the revision HTTP API",
				Action: serve,
			},
		},
	}
}

func loadConfig(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	applyFlagOverrides(c, cfg)

	if cfg.Log.Format != "" {
		logger.SetFormat(cfg.Log.Format)
	}
	logger.SetLevel(cfg.Log.Level)

	c.Context = context.WithValue(c.Context, configKey, cfg)
	return nil
}

func applyFlagOverrides(c *cli.Context, cfg *config.Config) {
	overrides := map[string]*string{
		"driver":     &cfg.Store.Driver,
		"bucket":     &cfg.Store.Bucket,
		"region":     &cfg.Store.Region,
		"endpoint":   &cfg.Store.Endpoint,
		"local-root": &cfg.Store.LocalRoot,
		"key":        &cfg.Revision.Key,
		"prefix":     &cfg.Revision.Prefix,
		"suffix":     &cfg.Revision.Suffix,
		"log-level":  &cfg.Log.Level,
		"log-format": &cfg.Log.Format,
	}
	for name, field := range overrides {
		if c.IsSet(name) {
			*field = c.String(name)
		}
	}
}

func configFrom(c *cli.Context) *config.Config {
	cfg, _ := c.Context.Value(configKey).(*config.Config)
	return cfg
}

func buildService(c *cli.Context, opts service.Options) (*service.DeployService, error) {
	cfg := configFrom(c)
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	naming, err := cfg.Naming()
	if err != nil {
		return nil, err
	}

	store, err := storage.New(c.Context, cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if opts.Journal == nil {
		j, err := journal.New(c.Context, cfg.Journal, cfg.Store.Bucket, naming.ActiveKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize journal: %w", err)
		}
		opts.Journal = j
	}

	logger.Log.Debug().
		Str("driver", cfg.Store.Driver).
		Str("bucket", cfg.Store.Bucket).
		Str("prefix", naming.Prefix).
		Str("suffix", naming.Suffix).
		Str("key", naming.ActiveKey).
		Msg("revision store ready")

	return service.NewDeployService(store, naming, opts), nil
}
