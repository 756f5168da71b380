package main

import (
	"errors"
	"fmt"
	"log/slog"

	"mercator-hq/tabula/pkg/catalog"
	"mercator-hq/tabula/pkg/catalog/storage"
	"mercator-hq/tabula/pkg/config"
	"mercator-hq/tabula/pkg/filestore"
	"mercator-hq/tabula/pkg/notify"

	// Database drivers selected by catalog.driver.
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// components are the backends an export runs against.
type components struct {
	catalog  catalog.Store
	files    filestore.Store
	notifier notify.Notifier
}

// openComponents opens the catalog, file store and notifier selected by
// cfg. The caller must call Close.
func openComponents(cfg *config.Config) (*components, error) {
	store, err := openCatalog(&cfg.Catalog)
	if err != nil {
		return nil, err
	}
	files, err := openFiles(&cfg.Files)
	if err != nil {
		store.Close()
		return nil, err
	}
	notifier, err := openNotifier(&cfg.Notify)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &components{catalog: store, files: files, notifier: notifier}, nil
}

// Close releases the catalog connection.
func (c *components) Close() error {
	if err := c.catalog.Close(); err != nil {
		return fmt.Errorf("failed to close catalog: %w", err)
	}
	return nil
}

func openCatalog(cfg *config.CatalogConfig) (catalog.Store, error) {
	store, err := storage.NewSQLiteStore(&storage.SQLiteConfig{
		Driver:       cfg.Driver,
		Path:         cfg.Path,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
		WALMode:      cfg.WALMode,
		BusyTimeout:  cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	slog.Debug("catalog opened", "driver", cfg.Driver, "path", cfg.Path)
	return store, nil
}

func openFiles(cfg *config.FilesConfig) (filestore.Store, error) {
	switch cfg.Backend {
	case "local", "":
		return filestore.NewLocalStore(cfg.Local.Dir)
	case "s3":
		return filestore.NewS3Store(&filestore.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Prefix:    cfg.S3.Prefix,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,

			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
	case "memory":
		slog.Warn("using in-memory file store, exported files are lost on exit")
		return filestore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported files backend: %s", cfg.Backend)
	}
}

func openNotifier(cfg *config.NotifyConfig) (notify.Notifier, error) {
	switch cfg.Backend {
	case "log", "":
		return notify.NewLogNotifier(), nil
	case "sendgrid":
		if cfg.SendGrid.APIKey == "" {
			return nil, errors.New("notify.sendgrid.api_key is required")
		}
		return notify.NewSendGridNotifier(&notify.SendGridConfig{
			APIKey:    cfg.SendGrid.APIKey,
			FromName:  cfg.SendGrid.FromName,
			FromEmail: cfg.SendGrid.FromEmail,
		})
	default:
		return nil, fmt.Errorf("unsupported notify backend: %s", cfg.Backend)
	}
}
