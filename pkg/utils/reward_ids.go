// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"github.com/akamensky/base58"
	"github.com/google/uuid"
)

// rewardNamespace scopes the name-based reward transaction UUIDs.
var rewardNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://lfx.dev/attendance/joy-coins"))

// RewardTransactionID returns the deterministic transaction id of the certificate
// reward for a user in a workshop. Retries and re-runs always produce the same id.
func RewardTransactionID(userID, workshopID string) string {
	return uuid.NewSHA1(rewardNamespace, []byte(userID+"\x00"+workshopID)).String()
}

// ShortReference encodes a UUID string as base58 for human-facing references.
// Non-UUID input is returned unchanged.
func ShortReference(id string) string {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	return base58.Encode(parsed[:])
}
