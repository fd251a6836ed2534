// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the workshop attendance service. It receives Zoom webhooks,
// keeps the participant ledger and reconciles attendance into certificates and
// Joy Coins rewards.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/ledger"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/pkg/utils"
)

func main() {
	loadDotEnv()
	env, err := parseEnv()
	if err != nil {
		slog.With(logging.ErrKey, err).Error("invalid configuration")
		os.Exit(1)
	}
	flags := parseFlags(env.Port)

	logging.InitStructureLogConfig()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	shutdownOTel, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up OpenTelemetry")
		return
	}

	// Set up JWT validator needed by the admin API.
	jwtAuth, err := setupJWTAuth(env)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up JWT authentication")
		return
	}

	// Setup NATS connection
	natsConn, err := setupNATS(ctx, env, &gracefulCloseWG, done)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		return
	}

	repos, err := setupRepositories(ctx, env, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up repositories")
		return
	}
	if err := loadWorkshopCatalog(ctx, env, repos.Workshops); err != nil {
		slog.With(logging.ErrKey, err).Error("error loading workshop catalog")
		return
	}

	reports, webhookValidator := setupZoom(env)
	rewards, events := setupMessaging(env, natsConn)

	// Initialize services
	participants := ledger.New(repos.Participants)
	reconciler := service.NewReconciler(participants, reports, rewards, events, env.Service)
	scheduler := service.NewRewardScheduler(repos.Jobs, reconciler, env.Service)
	router := service.NewWebhookRouter(participants, repos.Workshops, scheduler, env.Service)
	webhookService := service.NewZoomWebhookService(webhookValidator, repos.WebhookLogs, router)

	httpServer := setupHTTPServer(flags, newRouter(routes{
		health:  handlers.NewHealthHandler(webhookService, router, reconciler, scheduler),
		webhook: handlers.NewZoomWebhookHandler(webhookService),
		admin:   handlers.NewAdminHandler(scheduler, participants),
		auth:    jwtAuth,
	}), &gracefulCloseWG)

	// Create NATS subscriptions for the service.
	if natsConn != nil {
		_, err := messaging.Subscribe(ctx, natsConn, constants.ReconciliationRetriggerSubject, constants.AttendanceQueue, service.NewRetriggerHandler(scheduler))
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error creating NATS subscriptions")
			return
		}
	}

	go func() {
		if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
			slog.With(logging.ErrKey, err).Error("reward scheduler stopped")
		}
	}()

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(httpServer, natsConn, repos, shutdownOTel, &gracefulCloseWG, cancel)
}
