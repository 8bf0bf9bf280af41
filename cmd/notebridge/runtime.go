package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hpungsan/notebridge/internal/attach"
	"github.com/hpungsan/notebridge/internal/config"
	"github.com/hpungsan/notebridge/internal/db"
	"github.com/hpungsan/notebridge/internal/legacy"
	"github.com/hpungsan/notebridge/internal/notify"
	"github.com/hpungsan/notebridge/internal/ops"
)

// runtime holds the opened stores and the note engine shared by every mode.
type runtime struct {
	cfg   *config.Config
	log   zerolog.Logger
	notes *ops.Notes
	rich  *db.Store

	// queue is nil when no Redis URL is configured.
	queue *notify.RedisQueue

	closers []func() error
}

// openRuntime opens the rich and legacy stores, the attachment store and the
// notification queue, then builds the note engine over them.
func openRuntime(ctx context.Context, baseDir string, cfg *config.Config, log zerolog.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, log: log}

	database, err := db.Init(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)
	rt.closers = append(rt.closers, database.Close)
	rt.rich = db.NewStore(database)

	legacyStore, err := legacy.Open(ctx, cfg.LegacyDriver, cfg.LegacyDSN, baseDir)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to open legacy store: %w", err)
	}
	rt.closers = append(rt.closers, legacyStore.Close)

	files, err := openFileStore(ctx, baseDir, cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}

	var queue notify.Queue = notify.NewLogQueue(log)
	if cfg.RedisURL != "" {
		rq, err := notify.NewRedisQueue(cfg.RedisURL, cfg.NotificationQueue)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.queue = rq
		rt.closers = append(rt.closers, rq.Close)
		queue = rq
	}

	authz, err := ops.NewAuthorizer(cfg.PermissionMode, cfg.Admins)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.notes = ops.New(ops.WindowsFromConfig(ops.Deps{
		Rich:     rt.rich,
		Legacy:   legacyStore,
		Cleaner:  attach.NewCleaner(files, log),
		Notifier: notify.NewDispatcher(rt.rich, queue, log),
		Authz:    authz,
		Log:      log,
	}, cfg))
	return rt, nil
}

// openFileStore selects the attachment backend named in cfg.
func openFileStore(ctx context.Context, baseDir string, cfg *config.Config) (attach.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.AttachmentBackend)) {
	case "", "local":
		dir := cfg.AttachmentDir
		if dir == "" {
			dir = filepath.Join(baseDir, "files")
		}
		store, err := attach.NewLocalStore(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open attachment dir: %w", err)
		}
		return store, nil
	case "minio":
		store, err := attach.NewMinioStore(ctx, attach.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open minio store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown attachment backend %q (want local or minio)", cfg.AttachmentBackend)
	}
}

// Close releases everything openRuntime opened, most recent first.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.log.Warn().Err(err).Msg("close failed")
		}
	}
	rt.closers = nil
}
