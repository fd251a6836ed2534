// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package attendance

import "strings"

// UserTagDelimiter separates the display name from the internal user id in Zoom names.
const UserTagDelimiter = "__UID_"

// UserTag is the result of parsing a tagged Zoom display name.
type UserTag struct {
	DisplayName string
	// InternalUserID is nil for untracked participants.
	InternalUserID *string
}

// Tracked reports whether the participant maps to an internal user.
func (t UserTag) Tracked() bool {
	return t.InternalUserID != nil
}

// ParseUserTag splits "Jane Doe__UID_42" into its display name and internal user id.
// Names without exactly one delimiter, or with an empty id, are untracked.
func ParseUserTag(displayName string) UserTag {
	if strings.Count(displayName, UserTagDelimiter) != 1 {
		return UserTag{DisplayName: displayName}
	}

	name, id, _ := strings.Cut(displayName, UserTagDelimiter)
	id = strings.TrimSpace(id)
	if id == "" {
		return UserTag{DisplayName: displayName}
	}

	return UserTag{DisplayName: strings.TrimSpace(name), InternalUserID: &id}
}
