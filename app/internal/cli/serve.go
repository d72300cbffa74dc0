package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/akurin/identity-server-demo/app/internal/config"
	"github.com/akurin/identity-server-demo/app/internal/domain/oidc"
	"github.com/akurin/identity-server-demo/app/internal/infra/persistence/sqldb"
	"github.com/akurin/identity-server-demo/app/internal/infra/security"
	httpapi "github.com/akurin/identity-server-demo/app/internal/interface/http"
	adminuc "github.com/akurin/identity-server-demo/app/internal/usecase/admin"
	authuc "github.com/akurin/identity-server-demo/app/internal/usecase/auth"
)

func runServe(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cred, err := security.ResolveSigningCredential(cfg.IsDevelopment(), cfg.OIDC.SigningKeyPath, cfg.OIDC.DeveloperKeyPath)
	if err != nil {
		return fmt.Errorf("signing credential (%s): %w", cfg.Environment, err)
	}
	log.WithField("kid", cred.KeyID).Info("signing credential loaded")

	db, err := sqldb.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer db.Close()
	log.WithField("driver", db.Driver()).Info("database opened")

	handler := newHandler(cfg, db, cred, log)

	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTP.Addr, err)
	}
	return serve(ctx, ln, handler, cfg.HTTP, log)
}

func newHandler(cfg *config.Config, db *sqldb.DB, cred *security.SigningCredential, log logrus.FieldLogger) http.Handler {
	members := newMembership(db, cfg)
	registry := oidc.DefaultRegistry()
	signer := security.NewJWTService(cfg.OIDC.Issuer, cred)

	api := httpapi.NewAPI(httpapi.Dependencies{
		AdminService: adminuc.NewService(members),
		AuthService:  authuc.NewService(registry, members, signer, cfg.OIDC.AccessTokenLifetime),
		Registry:     registry,
		Keys:         cred,
		Issuer:       cfg.OIDC.Issuer,
		DB:           db,
		Logger:       log,
	})
	return api.Router()
}

// serve runs the HTTP server on ln until ctx is cancelled, then drains
// in-flight requests for at most the shutdown timeout.
func serve(ctx context.Context, ln net.Listener, handler http.Handler, opts *config.HTTP, log logrus.FieldLogger) error {
	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", ln.Addr().String()).Info("listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
