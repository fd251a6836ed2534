// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"log/slog"
	"sync"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

// InMemoryWallet is a local Joy Coin wallet that records transactions and balances.
// A repeated transaction id is acknowledged without crediting again.
type InMemoryWallet struct {
	mu           sync.Mutex
	balances     map[string]int
	transactions map[string]models.RewardRequest
	order        []string
}

var _ domain.RewardIssuer = (*InMemoryWallet)(nil)

// NewInMemoryWallet creates an empty wallet.
func NewInMemoryWallet() *InMemoryWallet {
	return &InMemoryWallet{
		balances:     make(map[string]int),
		transactions: make(map[string]models.RewardRequest),
	}
}

// IssueReward implements domain.RewardIssuer.
func (w *InMemoryWallet) IssueReward(ctx context.Context, request models.RewardRequest) (*models.RewardReceipt, error) {
	if request.TransactionID == "" || request.UserID == "" || request.Amount <= 0 {
		return nil, domain.NewValidationError("reward request requires a transaction id, user id and positive amount")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.transactions[request.TransactionID]; ok {
		slog.DebugContext(ctx, "duplicate reward transaction", "transaction_id", request.TransactionID)
		return &models.RewardReceipt{
			TransactionID: request.TransactionID,
			Balance:       w.balances[request.UserID],
			Duplicate:     true,
		}, nil
	}

	w.transactions[request.TransactionID] = request
	w.order = append(w.order, request.TransactionID)
	w.balances[request.UserID] += request.Amount

	return &models.RewardReceipt{
		TransactionID: request.TransactionID,
		Balance:       w.balances[request.UserID],
	}, nil
}

// Balance returns the Joy Coin balance of a user.
func (w *InMemoryWallet) Balance(userID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[userID]
}

// Transactions returns the recorded transactions in issue order.
func (w *InMemoryWallet) Transactions() []models.RewardRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]models.RewardRequest, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.transactions[id])
	}
	return out
}
