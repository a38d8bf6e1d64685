package main

import (
	"context"
	"log/slog"
	"os"

	"threads/config"
	"threads/internal/delivery"
	"threads/internal/delivery/api"
	"threads/internal/delivery/api/middleware"
	"threads/internal/delivery/api/router/handler"
	"threads/internal/domain/repository"
	"threads/internal/domain/service"
	"threads/internal/errors"
	"threads/internal/infra/auth"
	fbauth "threads/internal/infra/auth/firebase"
	"threads/internal/infra/auth/local"
	"threads/internal/infra/firebase"
	"threads/internal/infra/imaging"
	logs "threads/internal/infra/log"
	"threads/internal/infra/metrics"
	"threads/internal/infra/persistence/docstore"
	"threads/internal/infra/pubsub"
	"threads/internal/infra/sanitizer"
	"threads/internal/infra/storage"
	"threads/internal/usecase/impl"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			impl.RegisterSessionStoreLifecycle,
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Options(
		fx.Provide(
			config.New,
			logs.New,
			context.Background,
			docstore.New,
			storage.New,
			fx.Annotate(
				newMetricsRegistry,
				fx.As(new(prometheus.Registerer)),
				fx.As(new(prometheus.Gatherer)),
			),
			fx.Annotate(
				metrics.NewCollector,
				fx.As(new(metrics.Recorder)),
			),
		),
		pubsub.Module,
	)
}

func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			docstore.NewProfileRepository,
			docstore.NewPostRepository,
			docstore.NewIdentityRepository,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			newAuthProvider,
			sanitizer.New,
			imaging.NewJPEGEncoder,
		),
	)
}

// newAuthProvider builds the auth collaborator selected by auth.provider.
func newAuthProvider(cfg *config.Config, logger *slog.Logger, identities repository.IdentityRepository) (service.AuthProvider, error) {
	switch cfg.Auth.Provider {
	case config.AuthProviderFirebase:
		app, err := firebase.NewApp(firebase.Params{Config: cfg, Logger: logger})
		if err != nil {
			return nil, err
		}
		client, err := firebase.NewAuthClient(app)
		if err != nil {
			return nil, err
		}
		verifier, err := fbauth.NewPasswordVerifier(cfg)
		if err != nil {
			return nil, err
		}

		return fbauth.NewProvider(fbauth.Params{Admin: client, Verifier: verifier, Config: cfg, Logger: logger}), nil

	case config.AuthProviderLocal:
		tokens, err := auth.NewJWTService(cfg)
		if err != nil {
			return nil, err
		}

		return local.NewProvider(local.Params{
			Identities: identities,
			Hasher:     auth.NewBcryptHasher(cfg),
			Tokens:     tokens,
			Logger:     logger,
		}), nil

	default:
		return nil, errors.Errorf("unknown auth provider %q", cfg.Auth.Provider)
	}
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewSessionStore,
			impl.NewAuthService,
			impl.NewPostService,
			impl.NewUserService,
			impl.NewProfileService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewSessionMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewSessionHandler,
			handler.NewThreadHandler,
			handler.NewUserHandler,
			handler.NewProfileHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
