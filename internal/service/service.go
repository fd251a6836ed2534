// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package service implements webhook routing, reconciliation scheduling and
// reward reconciliation for workshop meetings.
package service

import (
	"time"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/pkg/constants"
)

type Service interface {
	ServiceReady() bool
}

// ServiceConfig is the configuration for the Services.
type ServiceConfig struct {
	// DefaultJoyCoins is the reward for workshops that do not set their own amount.
	DefaultJoyCoins int
	// RequireCatalog ignores meetings that are not in the workshop catalog instead of
	// falling back to the scheduled duration carried by the webhook.
	RequireCatalog bool
	// ReconcileWorkers bounds the participants reconciled concurrently per meeting.
	ReconcileWorkers int
	// MaxAttempts bounds the reconciliation attempts of a meeting before it is marked failed.
	MaxAttempts int
	// RetryBaseDelay is the first retry delay, doubled on every further attempt.
	RetryBaseDelay time.Duration
	// ClaimTimeout is after how long a job stuck in reconciling is claimed again.
	ClaimTimeout time.Duration
	// PollInterval is how often the scheduler looks for due jobs.
	PollInterval time.Duration
}

// DefaultServiceConfig returns the production defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		DefaultJoyCoins:  constants.DefaultJoyCoinsReward,
		ReconcileWorkers: 4,
		MaxAttempts:      constants.ReconciliationMaxAttempts,
		RetryBaseDelay:   constants.ReconciliationRetryBaseDelay,
		ClaimTimeout:     constants.ReconciliationClaimTimeout,
		PollInterval:     constants.SchedulerPollInterval,
	}
}

// withDefaults fills the zero fields with their defaults.
func (c ServiceConfig) withDefaults() ServiceConfig {
	d := DefaultServiceConfig()
	if c.DefaultJoyCoins <= 0 {
		c.DefaultJoyCoins = d.DefaultJoyCoins
	}
	if c.ReconcileWorkers <= 0 {
		c.ReconcileWorkers = d.ReconcileWorkers
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = d.RetryBaseDelay
	}
	if c.ClaimTimeout <= 0 {
		c.ClaimTimeout = d.ClaimTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	return c
}
