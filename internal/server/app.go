package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"sigil/internal/auth/ceremony"
	authhandler "sigil/internal/auth/handler"
	"sigil/internal/auth/secrets"
	authservice "sigil/internal/auth/service"
	credentialstore "sigil/internal/auth/store/credential"
	sessionstore "sigil/internal/auth/store/session"
	clienthandler "sigil/internal/client/handler"
	clientservice "sigil/internal/client/service"
	clientstore "sigil/internal/client/store/client"
	overridestore "sigil/internal/client/store/overrides"
	identityhandler "sigil/internal/identity/handler"
	identityservice "sigil/internal/identity/service"
	groupstore "sigil/internal/identity/store/group"
	userstore "sigil/internal/identity/store/user"
	jwttoken "sigil/internal/jwt_token"
	"sigil/internal/mail"
	oauthhandler "sigil/internal/oauth/handler"
	oauthservice "sigil/internal/oauth/service"
	authorizationstore "sigil/internal/oauth/store/authorization"
	"sigil/internal/oauth/store/grant"
	"sigil/internal/oidc"
	"sigil/internal/platform/config"
	"sigil/internal/platform/httpserver"
	"sigil/internal/platform/kafka"
	"sigil/internal/platform/metrics"
	"sigil/internal/platform/postgres"
	redisclient "sigil/internal/platform/redis"
	"sigil/internal/platform/tracing"
	"sigil/internal/policy"
	"sigil/pkg/platform/audit/outbox"
	"sigil/pkg/platform/audit/publisher"
	auditpg "sigil/pkg/platform/audit/store/postgres"
	"sigil/pkg/platform/idgen"
	"sigil/pkg/platform/middleware/metadata"
	"sigil/pkg/platform/middleware/ratelimit"
)

const auditBuffer = 1024

// App owns every long-lived resource of the serve command.
type App struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	redis     *redisclient.Client
	handler   http.Handler
	limiter   *ratelimit.Limiter
	publisher *publisher.Publisher
	producer  *kafka.Producer
	relay     *outbox.Relay
	shutdown  func(context.Context) error
}

// NewApp connects to Postgres and Redis, loads the key material and wires
// every feature behind one router.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	_, shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return nil, err
	}
	app := &App{cfg: cfg, logger: logger, shutdown: shutdownTracing}

	app.db, err = postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, errors.Join(err, app.Close(ctx))
	}
	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(ctx, app.db); err != nil {
			return nil, errors.Join(err, app.Close(ctx))
		}
	}
	app.redis, err = redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, errors.Join(err, app.Close(ctx))
	}

	if err := app.wire(ctx); err != nil {
		return nil, errors.Join(err, app.Close(ctx))
	}
	return app, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.cfg
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	tokens, err := NewCodec(cfg)
	if err != nil {
		return err
	}
	keys, err := oidc.LoadKeys(cfg.Keys.Dir)
	if err != nil {
		return fmt.Errorf("load signing keys (run setup first): %w", err)
	}
	ids, err := idgen.NewSnowflake(cfg.Session.NodeID)
	if err != nil {
		return err
	}
	rp, err := ceremony.New(cfg.WebAuthn)
	if err != nil {
		return err
	}

	if len(cfg.Kafka.Brokers) > 0 {
		a.producer, err = kafka.NewProducer(cfg.Kafka.Brokers, kafka.WithClientID("sigil"), kafka.WithLogger(a.logger))
		if err != nil {
			return err
		}
		if err := a.producer.EnsureTopic(ctx, cfg.Kafka.AuditTopic, 1, 1); err != nil {
			a.logger.WarnContext(ctx, "could not ensure audit topic", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
	}
	auditStore := auditpg.New(a.db)
	a.publisher = publisher.NewPublisher(auditStore, publisher.WithAsyncBuffer(auditBuffer), publisher.WithLogger(a.logger))
	if a.producer != nil {
		a.relay = outbox.NewRelay(auditStore, a.producer, cfg.Kafka.AuditTopic,
			outbox.WithInterval(cfg.Kafka.RelayInterval),
			outbox.WithLogger(a.logger),
		)
	}

	users := userstore.NewPostgres(a.db)
	groups := groupstore.NewPostgres(a.db)
	clients := clientstore.NewPostgres(a.db)
	overrides := overridestore.NewPostgres(a.db)
	hasher := secrets.NewHasher(int(cfg.Session.HashWorkers), secrets.WithMetrics(m))
	txRunner := postgres.NewTxRunner(a.db)

	identitySvc := NewIdentityService(cfg, a.db, tokens, a.logger,
		identityservice.WithAuditPublisher(a.publisher),
		identityservice.WithMetrics(m),
	)
	authSvc := authservice.New(users, credentialstore.NewPostgres(a.db), sessionstore.NewPostgres(a.db),
		rp, hasher, tokens, ids,
		authservice.WithLogger(a.logger),
		authservice.WithAuditPublisher(a.publisher),
		authservice.WithMetrics(m),
	)
	clientSvc := clientservice.New(clients, overrides, hasher, ids,
		clientservice.WithLogger(a.logger),
		clientservice.WithAuditPublisher(a.publisher),
		clientservice.WithTxRunner(txRunner),
	)
	oauthSvc := oauthservice.New(oauthservice.Stores{
		Clients:        clients,
		Users:          users,
		Groups:         groups,
		Authorizations: authorizationstore.NewPostgres(a.db),
		Grants: grant.NewRedis(a.redis.Client,
			grant.WithSingleUseCodes(cfg.OAuth.SingleUseCodes),
			grant.WithMetrics(m),
		),
	}, policy.NewResolver(overrides, groups), hasher, oidc.NewMinter(keys, cfg.Server.Issuer),
		oauthservice.WithLogger(a.logger),
		oauthservice.WithAuditPublisher(a.publisher),
		oauthservice.WithMetrics(m),
	)

	a.limiter = ratelimit.New(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	proxies, err := metadata.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	authH := authhandler.New(authSvc, a.logger)
	identityH := identityhandler.New(identitySvc, a.logger)
	oauthH := oauthhandler.New(oauthSvc, a.logger)
	a.handler = NewRouter(RouterDeps{
		Logger:         a.logger,
		Metrics:        m,
		Gatherer:       reg,
		CORSOrigin:     cfg.Server.CORSOrigin,
		TrustedProxies: proxies,
		Limiter:        a.limiter,
		Health: NewHealth(map[string]Check{
			"postgres": a.db.PingContext,
			"redis":    a.redis.Health,
		}),
		Validator:     jwttoken.NewAccessValidator(tokens),
		Principals:    identitySvc,
		Throttled:     []PublicRoutes{authH, oauthH},
		Public:        []PublicRoutes{oidc.NewHandler(cfg.Server.Issuer, keys)},
		Authenticated: []AuthenticatedRoutes{authH, identityH, oauthH},
		Admin:         []AdminRoutes{identityH, clienthandler.New(clientSvc, a.logger)},
	})
	return nil
}

// Handler is the assembled router.
func (a *App) Handler() http.Handler { return a.handler }

// Run serves HTTP and runs the background workers until ctx ends, then
// drains the server within the configured shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	srv := httpserver.New(a.cfg.Server.Addr, a.handler)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfoContext(gctx, "starting sigil", "addr", a.cfg.Server.Addr, "issuer", a.cfg.Server.Issuer)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.limiter.Sweep(gctx, time.Minute)
		return nil
	})
	if a.relay != nil {
		g.Go(func() error {
			return a.relay.Run(gctx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// Close releases every resource NewApp opened. It is safe on a partially
// built App.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.producer != nil {
		a.producer.Close()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
	}
	return errors.Join(errs...)
}

// NewCodec loads (or creates) the HS256 keys and builds the token codec.
func NewCodec(cfg config.Config) (*jwttoken.Codec, error) {
	keys, err := jwttoken.LoadOrCreateKeys(cfg.Keys.Dir)
	if err != nil {
		return nil, err
	}
	return jwttoken.NewCodec(keys, jwttoken.WithRefreshMaxAge(cfg.Session.RefreshMaxAge))
}

// NewIdentityService builds the user and group service. The CLI uses it
// without the rest of the app.
func NewIdentityService(cfg config.Config, db *sql.DB, tokens *jwttoken.Codec, logger *slog.Logger, opts ...identityservice.Option) *identityservice.Service {
	opts = append([]identityservice.Option{
		identityservice.WithLogger(logger),
		identityservice.WithMailer(mail.New(cfg.SMTP, logger)),
		identityservice.WithTxRunner(postgres.NewTxRunner(db)),
	}, opts...)
	return identityservice.New(userstore.NewPostgres(db), groupstore.NewPostgres(db), tokens, cfg.Server.Issuer, opts...)
}
