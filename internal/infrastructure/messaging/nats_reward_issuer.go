// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
)

// DefaultRewardRequestTimeout bounds a single wallet request.
const DefaultRewardRequestTimeout = 10 * time.Second

// rewardReply is the wallet response envelope.
type rewardReply struct {
	Receipt *models.RewardReceipt `json:"receipt,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// NatsRewardIssuer credits Joy Coins through the wallet service over NATS request/reply.
type NatsRewardIssuer struct {
	conn    INatsConn
	timeout time.Duration
}

var _ domain.RewardIssuer = (*NatsRewardIssuer)(nil)

// NewNatsRewardIssuer creates a reward issuer. A non-positive timeout uses the default.
func NewNatsRewardIssuer(conn INatsConn, timeout time.Duration) *NatsRewardIssuer {
	if timeout <= 0 {
		timeout = DefaultRewardRequestTimeout
	}
	return &NatsRewardIssuer{conn: conn, timeout: timeout}
}

// IssueReward sends the request and waits for the wallet receipt. Transport
// failures and timeouts are retryable external service errors; a wallet that
// rejects the request answers with a non-retryable validation error.
func (r *NatsRewardIssuer) IssueReward(ctx context.Context, request models.RewardRequest) (*models.RewardReceipt, error) {
	ctx = logging.AppendCtx(ctx, slog.String("transaction_id", request.TransactionID))

	if request.TransactionID == "" || request.UserID == "" || request.Amount <= 0 {
		return nil, domain.NewValidationError("reward request requires a transaction id, user id and positive amount")
	}

	data, err := json.Marshal(request)
	if err != nil {
		return nil, domain.NewInternalError("failed to marshal reward request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.conn.RequestMsgWithContext(ctx, newMsg(ctx, models.RewardIssueSubject, data))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) {
			slog.WarnContext(ctx, "reward request timed out", "timeout", r.timeout)
			return nil, domain.NewExternalServiceError("reward request timed out after "+r.timeout.String(), err)
		}
		slog.ErrorContext(ctx, "reward request failed", logging.ErrKey, err)
		return nil, domain.NewExternalServiceError("reward request failed", err)
	}

	var resp rewardReply
	if err := json.Unmarshal(reply.Data, &resp); err != nil {
		return nil, domain.NewExternalServiceError("invalid wallet reply", err)
	}
	if resp.Error != "" {
		slog.ErrorContext(ctx, "wallet rejected reward", "reason", resp.Error)
		return nil, domain.NewValidationError("wallet rejected reward: " + resp.Error)
	}
	if resp.Receipt == nil {
		return nil, domain.NewExternalServiceError("wallet reply has no receipt")
	}

	slog.InfoContext(ctx, "reward issued",
		"user_id", request.UserID,
		"amount", request.Amount,
		"duplicate", resp.Receipt.Duplicate,
	)
	return resp.Receipt, nil
}
