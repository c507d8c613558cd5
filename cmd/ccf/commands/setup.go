package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/ifrs9-ccf/internal/artifact"
	"github.com/wonny/ifrs9-ccf/internal/modelconfig"
	"github.com/wonny/ifrs9-ccf/internal/pipeline"
	"github.com/wonny/ifrs9-ccf/pkg/config"
	"github.com/wonny/ifrs9-ccf/pkg/database"
	"github.com/wonny/ifrs9-ccf/pkg/logger"
	"github.com/wonny/ifrs9-ccf/pkg/redis"
)

// app 커맨드 공통 의존성
type app struct {
	cfg      *config.Config
	model    *modelconfig.Config
	log      *logger.Logger
	pipeline *pipeline.Pipeline

	closers []func()
}

// Close releases the database pool and the redis client
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// setup loads env + model config and wires the pipeline
// ⭐ SSOT: 모든 커맨드는 이 함수로 초기화
func setup(ctx context.Context) (*app, error) {
	// 1. Load config
	if configFile != "" {
		if err := config.LoadEnvFile(configFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log}

	// 3. Model config
	path := cfg.ModelConfigPath
	if modelConfigFile != "" {
		path = modelConfigFile
	}
	a.model, _, err = modelconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load model config: %w", err)
	}

	// 4. Artifact store
	var store artifact.Store
	switch cfg.ArtifactBackend {
	case "redis":
		client, err := redis.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		store = artifact.NewRedisStore(client)
	default:
		store = artifact.NewFileStore(cfg.Paths.ArtifactDir)
	}

	// 5. Optional Postgres sink
	deps := pipeline.Deps{Store: store}
	db, err := database.New(ctx, cfg)
	switch {
	case errors.Is(err, database.ErrDisabled):
		log.Info("DATABASE_URL not set, Postgres sink disabled")
	case err != nil:
		a.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	default:
		a.closers = append(a.closers, db.Close)
		deps.Pool = db.Pool
	}

	// 6. Pipeline
	a.pipeline, err = pipeline.New(cfg, a.model, deps, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.pipeline.EnsureSchema(ctx); err != nil {
		a.Close()
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"env":              cfg.Env,
		"artifact_backend": cfg.ArtifactBackend,
		"artifact_store":   store.Location(),
		"output_dir":       cfg.Paths.OutputDir,
		"model_config":     path,
		"config_hash":      a.pipeline.ConfigHash(),
	}).Info("CCF initialized")

	return a, nil
}
