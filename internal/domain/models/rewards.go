// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// RewardReasonCertificate is the reason recorded on Joy Coin transactions for workshop completion.
const RewardReasonCertificate = "workshop_certificate"

// RewardRequest asks the wallet to credit Joy Coins to a user.
// TransactionID is deterministic per (user, workshop) so the wallet can drop duplicates.
type RewardRequest struct {
	TransactionID string `json:"transaction_id"`
	Reference     string `json:"reference"`
	UserID        string `json:"user_id"`
	WorkshopID    string `json:"workshop_id"`
	Amount        int    `json:"amount"`
	Reason        string `json:"reason"`
}

// RewardReceipt is the wallet acknowledgement of a reward request.
type RewardReceipt struct {
	TransactionID string `json:"transaction_id"`
	Balance       int    `json:"balance"`
	Duplicate     bool   `json:"duplicate"`
}
