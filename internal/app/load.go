package app

import (
	"context"
	"fmt"

	"github.com/vk/vegapanel/internal/config"
	"github.com/vk/vegapanel/internal/ctxlog"
	"github.com/vk/vegapanel/internal/fsutil"
	"github.com/vk/vegapanel/internal/hcl"
	"github.com/vk/vegapanel/internal/provision"
)

// defaultLoaders are the configuration formats compiled into the binary.
func defaultLoaders() []config.Loader {
	return []config.Loader{hcl.NewLoader(), provision.NewLoader()}
}

// loadModel runs each loader over the files with its extensions and merges
// the results, then applies the CLI overrides.
func loadModel(ctx context.Context, cfg *Config, loaders []config.Loader) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	var models []*config.Model
	for _, l := range loaders {
		files, err := fsutil.FindFiles(cfg.ConfigPaths, l.Extensions()...)
		if err != nil {
			return nil, fmt.Errorf("failed to find configuration files: %w", err)
		}
		if len(files) == 0 {
			continue
		}
		logger.Debug("Discovered configuration files.", "extensions", l.Extensions(), "count", len(files))
		m, err := l.Load(ctx, files...)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}

	model, err := config.Merge(models...)
	if err != nil {
		return nil, err
	}
	if cfg.Address != "" {
		model.Server.Address = cfg.Address
	}
	if cfg.Dark {
		model.Server.Dark = true
	}
	if cfg.StoragePath != "" {
		model.Storage.Path = cfg.StoragePath
	}
	if cfg.NatsURL != "" {
		model.Ingest.URL = cfg.NatsURL
	}
	return model, nil
}
