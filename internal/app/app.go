package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/talentscout/internal/config"
	"github.com/abrezinsky/talentscout/internal/handlers"
	"github.com/abrezinsky/talentscout/internal/logger"
	"github.com/abrezinsky/talentscout/internal/metrics"
	"github.com/abrezinsky/talentscout/internal/repository"
	"github.com/abrezinsky/talentscout/internal/services"
	"github.com/abrezinsky/talentscout/internal/websocket"
)

// baseURLSetting persists the card link base chosen on first start
const baseURLSetting = "base_url"

const shutdownTimeout = 10 * time.Second

// App holds all application dependencies
type App struct {
	cfg      *config.Config
	log      logger.Logger
	repo     *repository.Repository
	records  *services.RecordService
	schema   *services.SchemaService
	metrics  *metrics.Manager
	hub      *websocket.Hub
	handlers *handlers.Handlers
	network  networkProvider
	stopHub  context.CancelFunc
}

// New opens the store, runs the one-shot legacy migration and the schema
// seed, then wires services, the change feed and the HTTP handlers. The
// migration completes before New returns, so no request can observe a
// half-migrated store.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	repo, err := repository.NewWithDriver(cfg.DBDriver, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	m := metrics.NewManager()

	schema := services.NewSchemaService(log, repo)
	records := services.NewRecordService(log, repo, schema)
	records.SetRecorder(m)

	a := &App{
		cfg:     cfg,
		log:     log,
		repo:    repo,
		records: records,
		schema:  schema,
		metrics: m,
		network: realNetworkProvider{},
	}

	if err := a.migrateLegacyStore(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	if err := a.applySeed(ctx); err != nil {
		repo.Close()
		return nil, err
	}

	batch := services.NewBatchService(log, records, schema)
	transfer := services.NewTransferService(log, records, schema, cfg.BackupVersion)
	transfer.SetRecorder(m)
	rankings := services.NewRankingService(log, records, schema)
	stats := services.NewStatsService(log, records)

	// Initialize WebSocket hub; it stops with the app
	hubCtx, cancel := context.WithCancel(context.Background())
	a.stopHub = cancel
	a.hub = websocket.New(log, records)
	a.hub.SetGauge(m)
	a.hub.Start(hubCtx)
	records.SetBroadcaster(a.hub)

	if cfg.HTTPLogging {
		log.EnableHTTPLogging()
	}
	a.handlers = handlers.New(schema, records, batch, transfer, rankings, stats, a.hub, m, log)

	return a, nil
}

// migrateLegacyStore copies the flat key-value file into the structured
// store once. It holds the record lock for the whole run.
func (a *App) migrateLegacyStore(ctx context.Context) error {
	path := a.cfg.LegacyStorePath
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); stderrors.Is(err, os.ErrNotExist) {
		a.log.Debug("No legacy store to migrate", "path", path)
		return nil
	}

	return a.records.Exclusive(ctx, func(ctx context.Context) error {
		legacy, err := repository.OpenKVStore(path)
		if err != nil {
			a.metrics.RecordMigration("failed")
			return fmt.Errorf("open legacy store: %w", err)
		}

		report, err := repository.NewMigrator(legacy, a.repo).Run(ctx)
		if err != nil {
			a.metrics.RecordMigration("failed")
			return fmt.Errorf("migrate legacy store: %w", err)
		}
		if report.Skipped {
			a.metrics.RecordMigration("skipped")
			a.log.Debug("Legacy store already migrated", "path", path)
			return nil
		}

		a.metrics.RecordMigration("migrated")
		a.log.Info("Legacy store migrated",
			"path", path,
			"candidates", report.Candidates,
			"organizations", report.Organizations,
			"schema", report.Schema,
			"resumed", report.Resumed,
		)
		return nil
	})
}

// applySeed merges the optional YAML seed into a fresh schema
func (a *App) applySeed(ctx context.Context) error {
	if a.cfg.SchemaSeedPath == "" {
		return nil
	}
	result, err := a.schema.SeedFromFile(ctx, a.cfg.SchemaSeedPath)
	if err != nil {
		return fmt.Errorf("apply schema seed: %w", err)
	}
	a.log.Info("Schema seed applied",
		"path", a.cfg.SchemaSeedPath,
		"sports", result.Sports,
		"organizations", result.Organizations,
		"schemaSkipped", result.SchemaSkipped,
	)
	return nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Close performs graceful shutdown of app resources
func (a *App) Close() {
	if a.stopHub != nil {
		a.stopHub()
	}
	if a.repo != nil {
		a.repo.Close()
	}
}

// Run serves HTTP on the configured address until ctx is cancelled, then
// shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	baseURL := a.resolveBaseURL(ctx)
	a.records.SetBaseURL(baseURL)

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info("Server starting", "addr", a.cfg.Addr, "url", baseURL)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// resolveBaseURL returns the base of candidate card links. An explicit
// non-localhost base_url wins; otherwise the LAN address is detected and
// persisted so cards printed earlier keep working.
func (a *App) resolveBaseURL(ctx context.Context) string {
	if a.cfg.BaseURL != "" && !strings.Contains(a.cfg.BaseURL, "localhost") {
		return a.cfg.BaseURL
	}

	ip := getPreferredIP(a.network)
	a.setDefaultBaseURL(fmt.Sprintf("http://%s%s", ip, portSuffix(a.cfg.Addr)))

	if stored, err := a.repo.GetSetting(ctx, baseURLSetting); err == nil && stored != "" {
		return stored
	}
	return a.cfg.BaseURL
}

// setDefaultBaseURL sets the base URL setting if not already configured
// or if current value uses localhost (which isn't useful for QR codes)
func (a *App) setDefaultBaseURL(baseURL string) {
	ctx := context.Background()
	existing, _ := a.repo.GetSetting(ctx, baseURLSetting)

	needsUpdate := existing == "" || strings.Contains(existing, "localhost")
	if needsUpdate {
		if err := a.repo.SetSetting(ctx, baseURLSetting, baseURL); err != nil {
			a.log.Warn("Failed to set default base_url", "error", err)
		} else {
			a.log.Info("Default base URL set", "url", baseURL)
		}
	}
}

// portSuffix returns ":port" of a listen address, or "" when it has none
func portSuffix(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return ""
	}
	return ":" + port
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IPv4 address for LAN access, preferring
// private ranges. Falls back to localhost if no suitable address is found.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		if ip.IsPrivate() {
			return ip.String()
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}
