package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/openlibops/stacks/internal/auth"
	"github.com/openlibops/stacks/internal/cache"
	"github.com/openlibops/stacks/internal/catalog"
	"github.com/openlibops/stacks/internal/catalog/pgstore"
	"github.com/openlibops/stacks/internal/config"
	"github.com/openlibops/stacks/internal/observability/tracing"
	"github.com/openlibops/stacks/internal/pg"
	"github.com/openlibops/stacks/internal/server/api"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return CommandError{
					Message:    "serve: database.url is not configured",
					Suggestion: "Set database.url in stacks.yaml or export STACKS_DATABASE_URL.",
					ExitCode:   2,
				}
			}
			return runServer(cmd, cfg)
		},
	}
	return cmd
}

func runServer(cmd *cobra.Command, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer := setupTracing(cfg)

	db, err := pg.Connect(ctx, cfg.Database.URL, pg.WithPoolConfig(cfg.Database.PoolConfig()))
	if err != nil {
		return wrapError("serve: connect database", err, "Verify the database is reachable and credentials are correct.", 1)
	}
	defer db.Close()
	db.UseTracer(tracer)

	// Connectivity probe before accepting traffic.
	var one int
	if err := db.QueryRow(ctx, "", "SELECT 1").Scan(&one); err != nil {
		return wrapError("serve: database connectivity check", err, "Verify the database is reachable and credentials are correct.", 1)
	}
	log.Println("database connection established")

	opts := []catalog.ServiceOption{catalog.WithTracer(tracer)}
	if cfg.Cache.Enabled {
		opts = append(opts, catalog.WithCache(cache.NewMemory(cfg.Cache.TreeTTL)))
	}
	svc := catalog.NewService(pgstore.New(db), opts...)

	handler, err := buildHandler(ctx, cfg, svc)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return wrapError("serve: http server", err, "", 1)
	case <-ctx.Done():
	}

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return wrapError("serve: shutdown", err, "", 1)
	}
	return nil
}

// buildHandler assembles the router. When an OIDC issuer is configured the
// bearer middleware wraps the whole API; without one every request is
// anonymous and the node routes answer 401.
func buildHandler(ctx context.Context, cfg config.Config, svc *catalog.Service) (http.Handler, error) {
	router := chi.NewRouter()
	router.Mount("/", api.New(svc).Routes())

	if cfg.OIDC.Issuer == "" {
		log.Println("oidc issuer not configured; API requests will be unauthenticated")
		return router, nil
	}
	mw, err := auth.NewMiddleware(ctx, auth.Config{
		Issuer:    cfg.OIDC.Issuer,
		Audiences: cfg.OIDC.Audiences,
	})
	if err != nil {
		return nil, wrapError("serve: oidc discovery", err, "Check oidc.issuer and that the provider is reachable.", 1)
	}
	return mw.Wrap(router), nil
}

// setupTracing installs the OTel provider when enabled, otherwise returns a
// noop tracer.
func setupTracing(cfg config.Config) tracing.Tracer {
	if !cfg.Tracing.Enabled {
		return tracing.NoopTracer{}
	}
	res := sdkresource.NewSchemaless(
		attribute.String("service.name", "stacksd"),
		attribute.String("service.instance.id", uuid.NewString()),
	)
	provider := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(provider)
	return tracing.NewOTelTracer(provider, "")
}
