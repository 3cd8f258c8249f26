package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/giygas/rug-formats/config"
	"github.com/giygas/rug-formats/exporter"
	"github.com/giygas/rug-formats/interfaces"
	"github.com/giygas/rug-formats/logging"
	"github.com/giygas/rug-formats/rugparser"
	"github.com/giygas/rug-formats/validation"
)

// ErrUnknownStore is returned when FORMAT_STORE names no known backend
var ErrUnknownStore = errors.New("unknown format store")

// Build wires a pipeline from configuration. The returned close function
// releases the format store session and must be called once the pipeline is
// no longer used.
func Build(ctx context.Context, cfg *config.Config) (*Pipeline, func() error, error) {
	downloader := rugparser.NewDownloader(rugparser.DownloaderOptions{
		SourceURL:         cfg.SourceURL,
		AppToken:          cfg.AppToken,
		PageSize:          cfg.PageSize,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.HTTPTimeout,
	})

	store, err := NewFormatStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() error { return closeFormatStore(store) }

	var uploader interfaces.ArtifactUploader
	if cfg.ReferenceBucket != "" {
		u, err := exporter.NewObjectUploader(exporter.ObjectStoreOptions{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
			Bucket:    cfg.ReferenceBucket,
			Prefix:    cfg.S3Prefix,
		})
		if err != nil {
			releaseFormatStore(store)
			return nil, nil, fmt.Errorf("failed to configure artifact upload: %w", err)
		}
		uploader = u
	}

	p := New(
		rugparser.NewRUGParser(downloader),
		validation.NewDataValidator(),
		exporter.NewReferenceFiles(cfg.ReferenceFile, cfg.ReferenceCSV),
		[]interfaces.FormatStore{store},
		uploader,
	)
	return p, closeStore, nil
}

func closeFormatStore(store interfaces.FormatStore) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// releaseFormatStore closes a store on a failure path, logging what Close returns
func releaseFormatStore(store interfaces.FormatStore) {
	if err := closeFormatStore(store); err != nil {
		logging.Warn("Failed to close format store", "store", store.Name(), "error", err)
	}
}

// NewFormatStore opens the store selected by FORMAT_STORE
func NewFormatStore(ctx context.Context, cfg *config.Config) (interfaces.FormatStore, error) {
	switch cfg.FormatStore {
	case config.StoreFiles:
		return exporter.NewFileStore(cfg.FormatDir, cfg.FormatSASPath, cfg.FormatLibref), nil
	case config.StorePostgres, config.StoreSQLite:
		store, err := exporter.OpenSQLStore(ctx, cfg.FormatStore, cfg.FormatDSN, cfg.FormatLibref)
		if err != nil {
			return nil, fmt.Errorf("failed to open format store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, cfg.FormatStore)
	}
}
