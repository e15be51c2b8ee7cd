// cmd/library/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"libris/internal/admin"
	"libris/internal/auth"
	"libris/internal/catalog"
	"libris/internal/circulation"
	"libris/internal/config"
	"libris/internal/database"
	"libris/internal/engagement"
	"libris/internal/httpapi"
	"libris/internal/journal"
	"libris/internal/logging"
	"libris/internal/membership"
	"libris/internal/memstore"
	"libris/internal/telemetry"
)

type stores struct {
	catalog     catalog.Store
	circulation circulation.Store
	membership  membership.Store
	engagement  engagement.Store
	admin       admin.Store
	events      journal.Reader
	close       func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "libris", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	engagementSvc := engagement.NewService(st.engagement, logger)
	svc := httpapi.Services{
		Catalog:     catalog.NewService(st.catalog, logger),
		Circulation: circulation.NewService(st.circulation, logger, circulation.WithNotifier(engagementSvc)),
		Membership:  membership.NewService(st.membership, tokens, logger, cfg.AuthRatePerMinute),
		Engagement:  engagementSvc,
		Admin:       admin.NewService(st.admin, st.events),
		Tokens:      tokens,
	}

	created, err := svc.Membership.BootstrapAdmin(ctx, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		logger.Info("created admin account", zap.String("username", membership.AdminUsername))
	}

	if cfg.CreateSampleBooks {
		if err := seedSampleBooks(ctx, svc.Catalog, logger); err != nil {
			return err
		}
	}

	if cfg.OverdueSweepSchedule != "" {
		sweeper, err := circulation.NewSweeper(svc.Circulation, cfg.OverdueSweepSchedule, logger)
		if err != nil {
			return err
		}
		sweeper.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			sweeper.Stop(stopCtx)
		}()
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httpapi.NewRouter(svc, logger),
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.UsesMemoryStore() {
		logger.Warn("using the in-memory store, data is lost on exit")
		db := memstore.New()
		return &stores{
			catalog:     db.Catalog(),
			circulation: db.Circulation(),
			membership:  db.Membership(),
			engagement:  db.Engagement(),
			admin:       db.Admin(),
			events:      db.Journal(),
			close:       func() error { return nil },
		}, nil
	}

	db, err := database.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &stores{
		catalog:     catalog.NewPostgresStore(db),
		circulation: circulation.NewPostgresStore(db),
		membership:  membership.NewPostgresStore(db),
		engagement:  engagement.NewPostgresStore(db),
		admin:       admin.NewPostgresStore(db),
		events:      journal.New(db),
		close:       db.Close,
	}, nil
}

var sampleBooks = []catalog.BookInput{
	{Title: "Introduction to Python", Author: "Taro Yamada", ISBN: "978-4-1234-5678-9", Publisher: "Tech Press", TotalCopies: 5},
	{Title: "Web Development with Flask", Author: "Hanako Sato", ISBN: "978-4-1234-5679-0", Publisher: "Programming House", TotalCopies: 3},
	{Title: "Database Design", Author: "Ichiro Suzuki", ISBN: "978-4-1234-5680-1", Publisher: "IT Publishing", TotalCopies: 2},
}

// seedSampleBooks adds a few titles to an empty catalog.
func seedSampleBooks(ctx context.Context, books catalog.Service, logger *zap.Logger) error {
	existing, err := books.ListAllBooks(ctx)
	if err != nil {
		return fmt.Errorf("count books: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("catalog already populated, skipping samples", zap.Int("books", len(existing)))
		return nil
	}

	for _, in := range sampleBooks {
		if _, err := books.AddBook(ctx, in); err != nil {
			return fmt.Errorf("add sample book %q: %w", in.Title, err)
		}
	}
	logger.Info("created sample books", zap.Int("books", len(sampleBooks)))
	return nil
}
