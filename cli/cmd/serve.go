package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/licenselab/packscan/adapter"
	redisadapter "github.com/licenselab/packscan/adapter/redis"
	webhookadapter "github.com/licenselab/packscan/adapter/webhook"
	"github.com/licenselab/packscan/api"
	"github.com/licenselab/packscan/cli/config"
	"github.com/licenselab/packscan/log"
	"github.com/licenselab/packscan/metrics"
	"github.com/licenselab/packscan/pipeline"
	"github.com/licenselab/packscan/snapshot"
	"github.com/licenselab/packscan/store"
	"github.com/licenselab/packscan/task"
	"github.com/licenselab/packscan/transfer"
)

// shutdownTimeout bounds the drain of in-flight HTTP requests.
const shutdownTimeout = 10 * time.Second

// ServeCommand returns the serve command, the long-running service mode.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the packscan HTTP service",
		Flags: []cli.Flag{
			ConfigFlag,
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides config http_addr)",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if addr := c.String("addr"); addr != "" {
		cfg.HTTPAddr = addr
	}

	logger := log.NewPlainLogger()

	db, err := openStore(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("open store: %v", err), 1)
	}
	defer func() { _ = db.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	remote, err := openRemote(ctx, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("open remote: %v", err), 1)
	}

	bus, err := openAdapter(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("open adapter: %v", err), 1)
	}
	if bus != nil {
		defer func() { _ = bus.Close() }()
	}

	spool, err := snapshot.NewSpool(cfg.SnapshotDir)
	if err != nil {
		return cli.Exit(fmt.Sprintf("open snapshot spool: %v", err), 1)
	}

	if err := seedLicenses(ctx, db, cfg.Licenses); err != nil {
		return cli.Exit(fmt.Sprintf("seed licenses: %v", err), 1)
	}

	collector := metrics.NewCollector()
	pl := pipeline.New(pipeline.Config{
		WorkDir:      cfg.WorkDir,
		LicenseDir:   cfg.LicenseDir,
		VendorName:   cfg.Vendor.Name,
		VendorPrefix: cfg.Vendor.Prefix,
		VendorToken:  cfg.Vendor.Token,
		Extensions:   cfg.Extensions,
		Workers:      cfg.Workers,
	}, task.NewTracker(), remote, db, spool, bus, collector)

	srv := api.NewServer(pl, remote, collector, logger, cfg.LicenseDir)
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", map[string]any{"addr": cfg.HTTPAddr})
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down", nil)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return cli.Exit(fmt.Sprintf("serve: %v", err), 1)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown did not drain cleanly", map[string]any{"error": err.Error()})
	}

	// Let in-flight pipeline stages finish before closing backends.
	pl.Wait()
	return nil
}

// loadConfig reads the config file if one was named and applies defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemory(), nil
	default:
		return store.OpenSQLite(cfg.Store.Path)
	}
}

func openRemote(ctx context.Context, cfg *config.Config) (transfer.Remote, error) {
	switch cfg.Remote.Backend {
	case "s3":
		bucket, prefix, _ := strings.Cut(cfg.Remote.Path, "/")
		return transfer.NewS3(ctx, transfer.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       cfg.Remote.Region,
			Endpoint:     cfg.Remote.Endpoint,
			UsePathStyle: cfg.Remote.S3PathStyle,
		})
	default:
		return transfer.NewLocal(cfg.Remote.Path)
	}
}

// openAdapter returns nil when no completion adapter is configured.
func openAdapter(cfg *config.Config) (adapter.Adapter, error) {
	retries := 0
	if cfg.Adapter.Retries != nil {
		retries = *cfg.Adapter.Retries
	}
	switch cfg.Adapter.Type {
	case "redis":
		return redisadapter.New(redisadapter.Config{
			URL:     cfg.Adapter.URL,
			Channel: cfg.Adapter.Channel,
			Timeout: cfg.Adapter.Timeout.Duration,
			Retries: retries,
		})
	case "webhook":
		return webhookadapter.New(webhookadapter.Config{
			URL:     cfg.Adapter.URL,
			Headers: cfg.Adapter.Headers,
			Timeout: cfg.Adapter.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, nil
	}
}

func seedLicenses(ctx context.Context, db store.Store, seeds []config.LicenseConfig) error {
	for _, lic := range seeds {
		err := db.AddLicense(ctx, store.License{Key: lic.Key, Name: lic.Name, URL: lic.URL})
		if err != nil {
			return err
		}
	}
	return nil
}
