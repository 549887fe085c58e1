package business

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-gateway/internal/authapi"
	"github.com/openkcm/session-gateway/internal/business/server"
	"github.com/openkcm/session-gateway/internal/clientsession"
	"github.com/openkcm/session-gateway/internal/config"
	"github.com/openkcm/session-gateway/internal/credstore"
	"github.com/openkcm/session-gateway/internal/credstore/credmemory"
	"github.com/openkcm/session-gateway/internal/credstore/credsql"
	"github.com/openkcm/session-gateway/internal/credstore/credsqlite"
	"github.com/openkcm/session-gateway/internal/credstore/credvalkey"
	"github.com/openkcm/session-gateway/internal/gate"
)

// Purger drops expired credential records from a tier that does not expire them itself.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Main starts the gateway and, for primary tiers that need it, the in-process purge loop.
func Main(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	primary, closeFn, err := primaryTierFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the credential store: %w", err)
	}
	defer closeFn()

	registry := newRegistry(cfg, primary)
	defer registry.Flush()

	// errChan is used to capture the first error and shutdown the workers.
	errChan := make(chan error, 2)

	// wg is used to wait for all workers to shutdown.
	var wg sync.WaitGroup

	wg.Go(func() {
		errChan <- server.StartHTTPServer(ctx, cfg, registry)
	})

	if purger, ok := primary.(Purger); ok {
		wg.Go(func() {
			errChan <- runPurgeLoop(ctx, purger, cfg.Housekeeper.Interval)
		})
	}

	// wait for any error to initiate the shutdown
	if err := <-errChan; err != nil {
		slogctx.Error(ctx, "Shutting down the gateway", "error", err)
	}
	cancel()

	wg.Wait()

	return nil
}

// newRegistry builds the client session registry over primary and an in-memory fallback tier.
func newRegistry(cfg *config.Config, primary credstore.Tier) *clientsession.Registry {
	fallback := credmemory.NewTier(cfg.CredentialStore.FallbackTTL, cfg.CredentialStore.FallbackCleanupInterval)
	backend := credstore.NewBackend(primary, fallback)

	auth := authapi.NewClient(cfg.Upstream.AuthURL, loadHTTPClient(cfg))

	return clientsession.NewRegistry(backend, auth, clientsession.Options{
		DefaultLifetime: cfg.Session.DefaultLifetime,
		AdminRole:       cfg.Session.AdminRole,
		IdleTimeout:     cfg.Session.IdleTimeout,
		CleanupInterval: cfg.Session.CleanupInterval,
		Policy: gate.Policy{
			CatalogPath:    cfg.Gate.CatalogPath,
			CheckoutPrefix: cfg.Gate.CheckoutPrefix,
			SettleDelay:    cfg.Gate.SettleDelay,
		},
	})
}

// primaryTierFromConfig opens the configured durable tier. closeFn releases its connections.
func primaryTierFromConfig(ctx context.Context, cfg *config.Config) (_ credstore.Tier, closeFn func(), _ error) {
	ttl := cfg.CredentialStore.RecordTTL

	switch cfg.CredentialStore.Primary {
	case config.StoreKindValKey:
		client, err := valkeyClientFromConfig(cfg)
		if err != nil {
			return nil, nil, err
		}

		return credvalkey.NewTier(client, cfg.ValKey.Prefix, ttl), client.Close, nil
	case config.StoreKindPostgres:
		pool, err := pgPoolFromConfig(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}

		return credsql.NewTier(pool, ttl), pool.Close, nil
	case config.StoreKindSQLite:
		tier, err := credsqlite.Open(ctx, cfg.SQLite.Path, ttl)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite credential store: %w", err)
		}

		return tier, func() {
			if err := tier.Close(); err != nil {
				slogctx.Error(ctx, "Failed to close sqlite credential store", "error", err)
			}
		}, nil
	case config.StoreKindMemory:
		return credmemory.NewTier(ttl, cfg.CredentialStore.FallbackCleanupInterval), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown credential store %q", cfg.CredentialStore.Primary)
	}
}

func valkeyClientFromConfig(cfg *config.Config) (valkey.Client, error) {
	valkeyHost, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.Host)
	if err != nil {
		return nil, fmt.Errorf("loading valkey host: %w", err)
	}

	valkeyUsername, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.User)
	if err != nil {
		return nil, fmt.Errorf("loading valkey username: %w", err)
	}

	valkeyPassword, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.Password)
	if err != nil {
		return nil, fmt.Errorf("loading valkey password: %w", err)
	}

	valkeyOpts := valkey.ClientOption{
		InitAddress: []string{string(valkeyHost)},
		Username:    string(valkeyUsername),
		Password:    string(valkeyPassword),
	}

	if cfg.ValKey.SecretRef.Type == commoncfg.MTLSSecretType {
		tlsConfig, err := commoncfg.LoadMTLSConfig(&cfg.ValKey.SecretRef.MTLS)
		if err != nil {
			return nil, fmt.Errorf("loading valkey mTLS config from secret ref: %w", err)
		}

		valkeyOpts.TLSConfig = tlsConfig
	}

	valkeyClient, err := valkey.NewClient(valkeyOpts)
	if err != nil {
		return nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return valkeyClient, nil
}

// pgPoolFromConfig opens a traced pgx pool on the credential database.
func pgPoolFromConfig(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("making dsn from config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing pgxpool config: %w", err)
	}

	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("initialising pgxpool connection: %w", err)
	}

	if err := otelpgx.RecordStats(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("recording pgxpool stats: %w", err)
	}

	return db, nil
}

// loadHTTPClient builds the traced client used to reach the auth API.
func loadHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{
		Timeout:   cfg.Upstream.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
