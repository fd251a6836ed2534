// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/service"
)

// Storage backends selected by STORE_BACKEND
const (
	storeBackendNATS     = "nats"
	storeBackendPostgres = "postgres"
	storeBackendMemory   = "memory"
)

// flags are the command line flags for the attendance service.
type flags struct {
	Debug bool
	Port  string
	Bind  string
}

// environment are the environment variables for the attendance service.
type environment struct {
	Port                 string
	StoreBackend         string
	NatsURL              string
	DatabaseURL          string
	WorkshopCatalogFile  string
	ReportFetchTimeout   time.Duration
	RewardRequestTimeout time.Duration
	Zoom                 zoomConfig
	JWT                  jwtConfig
	Service              service.ServiceConfig
}

// zoomConfig holds Zoom-specific configuration
type zoomConfig struct {
	AccountID          string
	ClientID           string
	ClientSecret       string
	WebhookSecretToken string

	// SkipWebhookValidation accepts unsigned webhooks. Local development only.
	SkipWebhookValidation bool
}

// IsConfigured returns true if all required Zoom API credentials are provided
func (z zoomConfig) IsConfigured() bool {
	return z.AccountID != "" && z.ClientID != "" && z.ClientSecret != ""
}

// jwtConfig holds the admin API token validation settings
type jwtConfig struct {
	JWKSURL            string
	Audience           string
	MockLocalPrincipal string
}

// parseFlags parses command line flags for the attendance service
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port")
	var bind = flag.String("bind", "*", "interface to bind on")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [logging.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
		Port:  *port,
		Bind:  *bind,
	}
}

// loadDotEnv loads a .env file when present. Variables already set in the
// environment take precedence.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.With(logging.ErrKey, err).Warn("error loading .env file")
	}
}

// parseEnv parses environment variables for the attendance service
func parseEnv() (environment, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	backend := os.Getenv("STORE_BACKEND")
	if backend == "" {
		backend = storeBackendNATS
	}
	switch backend {
	case storeBackendNATS, storeBackendPostgres, storeBackendMemory:
	default:
		return environment{}, fmt.Errorf("unknown STORE_BACKEND %q", backend)
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" && backend == storeBackendNATS {
		natsURL = "nats://localhost:4222"
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" && backend == storeBackendPostgres {
		return environment{}, errors.New("DATABASE_URL is required for the postgres store backend")
	}

	reportTimeout, err := durationEnv("REPORT_FETCH_TIMEOUT", 30*time.Second)
	if err != nil {
		return environment{}, err
	}
	rewardTimeout, err := durationEnv("REWARD_REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return environment{}, err
	}

	serviceConfig := service.DefaultServiceConfig()
	if serviceConfig.DefaultJoyCoins, err = intEnv("DEFAULT_JOY_COINS", serviceConfig.DefaultJoyCoins); err != nil {
		return environment{}, err
	}
	if serviceConfig.ReconcileWorkers, err = intEnv("RECONCILE_WORKERS", serviceConfig.ReconcileWorkers); err != nil {
		return environment{}, err
	}
	if serviceConfig.MaxAttempts, err = intEnv("RECONCILE_MAX_ATTEMPTS", serviceConfig.MaxAttempts); err != nil {
		return environment{}, err
	}
	if serviceConfig.PollInterval, err = durationEnv("SCHEDULER_POLL_INTERVAL", serviceConfig.PollInterval); err != nil {
		return environment{}, err
	}
	serviceConfig.RequireCatalog = os.Getenv("REQUIRE_WORKSHOP_CATALOG") == "true"

	return environment{
		Port:                 port,
		StoreBackend:         backend,
		NatsURL:              natsURL,
		DatabaseURL:          databaseURL,
		WorkshopCatalogFile:  os.Getenv("WORKSHOP_CATALOG_FILE"),
		ReportFetchTimeout:   reportTimeout,
		RewardRequestTimeout: rewardTimeout,
		Zoom: zoomConfig{
			AccountID:             os.Getenv("ZOOM_ACCOUNT_ID"),
			ClientID:              os.Getenv("ZOOM_CLIENT_ID"),
			ClientSecret:          os.Getenv("ZOOM_CLIENT_SECRET"),
			WebhookSecretToken:    os.Getenv("ZOOM_WEBHOOK_SECRET_TOKEN"),
			SkipWebhookValidation: os.Getenv("ZOOM_WEBHOOK_VALIDATION_DISABLED") == "true",
		},
		JWT: jwtConfig{
			JWKSURL:            os.Getenv("JWKS_URL"),
			Audience:           os.Getenv("JWT_AUDIENCE"),
			MockLocalPrincipal: os.Getenv("JWT_AUTH_DISABLED_MOCK_LOCAL_PRINCIPAL"),
		},
		Service: serviceConfig,
	}, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a positive duration", name, raw)
	}
	return d, nil
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a positive integer", name, raw)
	}
	return n, nil
}
