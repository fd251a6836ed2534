// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/auth"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/catalog"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/postgres"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/zoom"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/zoom/api"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/zoom/webhook"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
)

const (
	// gracefulShutdownSeconds should be higher than NATS client
	// request timeout, and lower than the pod or liveness probe's
	// terminationGracePeriodSeconds.
	gracefulShutdownSeconds = 25
)

// repositories are the storage dependencies of the services.
type repositories struct {
	Participants domain.ParticipantRepository
	Jobs         domain.ReconciliationJobRepository
	Workshops    domain.WorkshopCatalog
	WebhookLogs  domain.WebhookLogRepository
	close        func()
}

// setupJWTAuth configures JWT authentication for the admin API
func setupJWTAuth(env environment) (*auth.JWTAuth, error) {
	return auth.NewJWTAuth(auth.JWTAuthConfig{
		JWKSURL:            env.JWT.JWKSURL,
		Audience:           env.JWT.Audience,
		MockLocalPrincipal: env.JWT.MockLocalPrincipal,
	})
}

// setupNATS connects to NATS. A closed connection that was not requested by
// the shutdown sequence stops the service.
func setupNATS(ctx context.Context, env environment, gracefulCloseWG *sync.WaitGroup, done chan os.Signal) (*nats.Conn, error) {
	if env.NatsURL == "" {
		return nil, nil
	}

	slog.With("nats_url", env.NatsURL).Info("attempting to connect to NATS")
	natsConn, err := nats.Connect(
		env.NatsURL,
		nats.Name("lfx-v2-workshop-attendance-service"),
		nats.DrainTimeout(gracefulShutdownSeconds*time.Second),
		nats.ErrorHandler(func(_ *nats.Conn, s *nats.Subscription, err error) {
			if s != nil {
				slog.With(logging.ErrKey, err, "subject", s.Subject, "queue", s.Queue).Error("async NATS error")
			} else {
				slog.With(logging.ErrKey, err).Error("async NATS error outside subscription")
			}
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if ctx.Err() != nil {
				// If our parent background context has already been canceled, this is
				// a graceful shutdown. Decrement the wait group but do not exit, to
				// allow other graceful shutdown steps to complete.
				gracefulCloseWG.Done()
				return
			}
			// Otherwise, this handler means that max reconnect attempts have been
			// exhausted.
			slog.Error("NATS max-reconnects exhausted; connection closed")
			// Send a synthetic interrupt and give any graceful-shutdown tasks 5
			// seconds to clean up.
			done <- os.Interrupt
			time.Sleep(5 * time.Second)
			// Exit with an error instead of decrementing the wait group.
			os.Exit(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	// The closed handler releases this once the connection is drained.
	gracefulCloseWG.Add(1)
	slog.Info("NATS connection established")
	return natsConn, nil
}

// setupRepositories builds the repositories of the configured storage backend.
func setupRepositories(ctx context.Context, env environment, natsConn *nats.Conn) (*repositories, error) {
	switch env.StoreBackend {
	case storeBackendPostgres:
		return postgresRepositories(ctx, env)
	case storeBackendMemory:
		return memoryRepositories(), nil
	default:
		return natsRepositories(ctx, natsConn)
	}
}

// natsRepositories opens the JetStream key-value buckets and the webhook log stream.
func natsRepositories(ctx context.Context, natsConn *nats.Conn) (*repositories, error) {
	if natsConn == nil {
		return nil, fmt.Errorf("the %s store backend requires NATS_URL", storeBackendNATS)
	}
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	buckets := make(map[string]jetstream.KeyValue, 3)
	for _, bucket := range []string{
		store.KVStoreNameParticipants,
		store.KVStoreNameReconciliationJobs,
		store.KVStoreNameWorkshops,
	} {
		kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket, History: 5})
		if err != nil {
			return nil, fmt.Errorf("open key-value bucket %s: %w", bucket, err)
		}
		buckets[bucket] = kv
	}

	if _, err := js.CreateOrUpdateStream(ctx, store.WebhookLogStreamConfig()); err != nil {
		return nil, fmt.Errorf("create stream %s: %w", store.StreamNameWebhookLogs, err)
	}

	return &repositories{
		Participants: store.NewNatsParticipantRepository(buckets[store.KVStoreNameParticipants]),
		Jobs:         store.NewNatsReconciliationJobRepository(buckets[store.KVStoreNameReconciliationJobs]),
		Workshops:    store.NewNatsWorkshopDirectory(buckets[store.KVStoreNameWorkshops]),
		WebhookLogs:  store.NewNatsWebhookLogRepository(js),
		close:        func() {},
	}, nil
}

// postgresRepositories migrates the schema and opens a connection pool.
func postgresRepositories(ctx context.Context, env environment) (*repositories, error) {
	if err := postgres.RunMigrations(ctx, env.DatabaseURL); err != nil {
		return nil, err
	}
	pool, err := postgres.NewPool(ctx, env.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &repositories{
		Participants: postgres.NewParticipantRepository(pool),
		Jobs:         postgres.NewReconciliationJobRepository(pool),
		Workshops:    postgres.NewWorkshopDirectory(pool),
		WebhookLogs:  postgres.NewWebhookLogRepository(pool),
		close:        pool.Close,
	}, nil
}

// memoryRepositories keeps all state in process. Local development only.
func memoryRepositories() *repositories {
	slog.Warn("using in-memory storage, state is lost on restart")
	return &repositories{
		Participants: store.NewNatsParticipantRepository(store.NewInMemoryKeyValue(store.KVStoreNameParticipants)),
		Jobs:         store.NewNatsReconciliationJobRepository(store.NewInMemoryKeyValue(store.KVStoreNameReconciliationJobs)),
		Workshops:    store.NewNatsWorkshopDirectory(store.NewInMemoryKeyValue(store.KVStoreNameWorkshops)),
		WebhookLogs:  store.NewInMemoryWebhookLogRepository(),
		close:        func() {},
	}
}

// loadWorkshopCatalog seeds the workshop directory from the configured TOML file.
func loadWorkshopCatalog(ctx context.Context, env environment, workshops domain.WorkshopCatalog) error {
	if env.WorkshopCatalogFile == "" {
		slog.InfoContext(ctx, "no workshop catalog file configured")
		return nil
	}
	return catalog.LoadFile(ctx, env.WorkshopCatalogFile, workshops)
}

// setupZoom returns the report fetcher and the webhook validator. Without API
// credentials the reports are served from memory.
func setupZoom(env environment) (domain.ReportFetcher, domain.WebhookValidator) {
	var reports domain.ReportFetcher
	if env.Zoom.IsConfigured() {
		client := api.NewClient(api.Config{
			AccountID:    env.Zoom.AccountID,
			ClientID:     env.Zoom.ClientID,
			ClientSecret: env.Zoom.ClientSecret,
			Timeout:      env.ReportFetchTimeout,
		})
		reports = zoom.NewReportProvider(client, env.ReportFetchTimeout)

		slog.Info("Zoom report integration configured",
			"account_id", env.Zoom.AccountID,
			"client_id", env.Zoom.ClientID)
	} else {
		reports = zoom.NewStaticReportFetcher()
		slog.Warn("Zoom report integration not configured - missing required environment variables",
			"has_account_id", env.Zoom.AccountID != "",
			"has_client_id", env.Zoom.ClientID != "",
			"has_client_secret", env.Zoom.ClientSecret != "")
	}

	if env.Zoom.SkipWebhookValidation {
		slog.Warn("Zoom webhook signature validation disabled, accepting unsigned webhooks")
		return reports, webhook.NewMockWebhookValidator(env.Zoom.WebhookSecretToken)
	}
	if env.Zoom.WebhookSecretToken == "" {
		slog.Warn("Zoom webhook validation not configured - missing ZOOM_WEBHOOK_SECRET_TOKEN")
		return reports, nil
	}
	slog.Info("Zoom webhook validation configured")
	return reports, webhook.NewZoomWebhookValidator(env.Zoom.WebhookSecretToken)
}

// setupMessaging returns the reward issuer and the event sender. Without NATS
// rewards go to an in-memory wallet and events are dropped.
func setupMessaging(env environment, natsConn *nats.Conn) (domain.RewardIssuer, domain.AttendanceEventSender) {
	if natsConn == nil {
		slog.Warn("NATS not configured, using the in-memory wallet and dropping attendance events")
		return messaging.NewInMemoryWallet(), messaging.NoopEventSender{}
	}
	return messaging.NewNatsRewardIssuer(natsConn, env.RewardRequestTimeout), messaging.NewMessageBuilder(natsConn)
}

// gracefulShutdown handles graceful shutdown of the application
func gracefulShutdown(httpServer *http.Server, natsConn *nats.Conn, repos *repositories, shutdownOTel func(context.Context) error, gracefulCloseWG *sync.WaitGroup, cancel context.CancelFunc) {
	slog.With("grace_period", gracefulShutdownSeconds).Info("graceful shutdown started")
	// Cancelling the context stops the reward scheduler and marks the NATS
	// close as intentional.
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownSeconds*time.Second)
	defer shutdownCancel()

	go func() {
		if err := httpServer.Shutdown(ctx); err != nil {
			slog.With(logging.ErrKey, err).Error("http shutdown error")
		}
		// Decrement the wait group.
		gracefulCloseWG.Done()
	}()

	if natsConn != nil && !natsConn.IsClosed() && !natsConn.IsDraining() {
		slog.Info("draining NATS connections")
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("error draining NATS connection")
			// Skip waiting or checking error channel.
			return
		}
	}

	// Wait for the HTTP graceful shutdown and the NATS drain.
	gracefulCloseWG.Wait()

	repos.close()
	if err := shutdownOTel(ctx); err != nil {
		slog.With(logging.ErrKey, err).Error("error shutting down OpenTelemetry")
	}
	slog.Info("graceful shutdown complete")
}
