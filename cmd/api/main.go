package main

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

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/coregym/member-card-api/internal/adapters/httpapi"
	memidempotency "github.com/coregym/member-card-api/internal/adapters/memory/idempotency"
	memmemberapi "github.com/coregym/member-card-api/internal/adapters/memory/memberapi"
	mempushapi "github.com/coregym/member-card-api/internal/adapters/memory/pushapi"
	memstaffrepo "github.com/coregym/member-card-api/internal/adapters/memory/staffrepo"
	memstatsapi "github.com/coregym/member-card-api/internal/adapters/memory/statsapi"
	"github.com/coregym/member-card-api/internal/adapters/postgres"
	pgidempotency "github.com/coregym/member-card-api/internal/adapters/postgres/idempotency"
	pgstaffrepo "github.com/coregym/member-card-api/internal/adapters/postgres/staffrepo"
	upmemberapi "github.com/coregym/member-card-api/internal/adapters/upstream/memberapi"
	uppushapi "github.com/coregym/member-card-api/internal/adapters/upstream/pushapi"
	upstatsapi "github.com/coregym/member-card-api/internal/adapters/upstream/statsapi"
	"github.com/coregym/member-card-api/internal/app/membercard"
	"github.com/coregym/member-card-api/internal/domain"
	platformclock "github.com/coregym/member-card-api/internal/platform/clock"
	"github.com/coregym/member-card-api/internal/platform/config"
	"github.com/coregym/member-card-api/internal/platform/logger"
	"github.com/coregym/member-card-api/internal/platform/tracing"
	clockport "github.com/coregym/member-card-api/internal/ports/out/clock"
	idempotencyport "github.com/coregym/member-card-api/internal/ports/out/idempotency"
	memberapiport "github.com/coregym/member-card-api/internal/ports/out/memberapi"
	pushapiport "github.com/coregym/member-card-api/internal/ports/out/pushapi"
	staffrepoport "github.com/coregym/member-card-api/internal/ports/out/staffrepo"
	statsapiport "github.com/coregym/member-card-api/internal/ports/out/statsapi"
)

func main() {
	configPath := pflag.String("config", os.Getenv("MEMBERCARD_CONFIG"), "path to a YAML config file")
	port := pflag.String("port", "", "listen port (overrides config)")
	pflag.Parse()

	cfg, err := config.Load(*configPath, os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Port = *port
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api exited", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	shutdownTracing, err := tracing.Init(ctx, log, tracing.Config{
		ServiceName: "member-card-api",
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	clk := platformclock.NewSystemClock(cfg.Location())

	var (
		members memberapiport.Client
		stats   statsapiport.Client
		push    pushapiport.Client
	)
	switch cfg.UpstreamBackend {
	case config.BackendMemory:
		log.Warn("using in-memory upstream fakes")
		members = memmemberapi.New(clk)
		stats = memstatsapi.New()
		push = mempushapi.New()
	default:
		hc := &http.Client{Timeout: cfg.UpstreamTimeout}
		if members, err = upmemberapi.New(cfg.MembersAPIURL, hc); err != nil {
			return fmt.Errorf("member service client: %w", err)
		}
		if stats, err = upstatsapi.New(cfg.StatsAPIURL, hc); err != nil {
			return fmt.Errorf("stats service client: %w", err)
		}
		if push, err = uppushapi.New(cfg.PushAPIURL, hc); err != nil {
			return fmt.Errorf("push service client: %w", err)
		}
	}

	var (
		staff     staffrepoport.Repository
		idemStore idempotencyport.Store
	)
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
		staff = pgstaffrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	default:
		staff = memstaffrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	}

	devSubject := strings.TrimSpace(os.Getenv("DEV_STAFF_SUBJECT"))
	if devSubject != "" {
		if err := seedDevStaff(ctx, staff, clk, devSubject, os.Getenv("DEV_STAFF_NAME")); err != nil {
			return fmt.Errorf("seed dev staff: %w", err)
		}
	}

	cards := membercard.NewService(membercard.Deps{
		Members: members,
		Stats:   stats,
		Push:    push,
		Staff:   staff,
		Clock:   clk,
		Log:     log,
	}, membercard.Options{
		Location:             cfg.Location(),
		PushRatePerMinute:    cfg.PushRatePerMinute,
		ReceiptRatePerMinute: cfg.ReceiptRatePerMinute,
	})

	api := httpapi.NewServer(cards, idemStore, clk, log)
	var csrfKey []byte
	if cfg.CSRFKey != "" {
		csrfKey = []byte(cfg.CSRFKey)
	}
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		StaffMiddleware: httpapi.NewStaffMiddleware(devSubject, cfg.SessionCookie),
		CSRFKey:         csrfKey,
		CSRFSecure:      os.Getenv("CSRF_INSECURE") == "",
		Log:             log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", "port", cfg.Port, "upstream", cfg.UpstreamBackend, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// seedDevStaff binds the local development subject to a staff record so journal notes get an author.
func seedDevStaff(ctx context.Context, staff staffrepoport.Repository, clk clockport.Clock, subject, name string) error {
	if _, err := staff.GetBySubject(ctx, domain.StaffSubject(subject)); err == nil {
		return nil
	} else if !errors.Is(err, staffrepoport.ErrNotFound) {
		return err
	}
	if strings.TrimSpace(name) == "" {
		name = subject
	}
	now := clk.Now()
	return staff.Create(ctx, staffrepoport.Staff{
		ID:          domain.StaffID(uuid.NewString()),
		Subject:     domain.StaffSubject(subject),
		DisplayName: name,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}
