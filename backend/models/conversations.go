// Copyright (C) 2025 parley.chat <dev@parley.chat>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package models

import (
	"fmt"
	"sort"
	"time"
)

// Conversation is the canonical record for a DM pair. Rows are stored with
// UserID1 < UserID2; CanonicalPair produces that order.
type Conversation struct {
	ID            int64     `json:"id" db:"id"`
	UserID1       int64     `json:"user_id1" db:"user_id1"`
	UserID2       int64     `json:"user_id2" db:"user_id2"`
	LastMessageID *int64    `json:"last_message_id,omitempty" db:"last_message_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// CanonicalPair orders two user ids so that every unordered pair maps to
// exactly one (low, high) key.
func CanonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// ConversationEntry is one row of a user's merged conversation list: either
// a DM partner or a group, annotated with preview and block state.
type ConversationEntry struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email,omitempty"`
	AvatarURL       *string    `json:"avatar_url,omitempty"`
	IsGroup         bool       `json:"is_group"`
	IsUser          bool       `json:"is_user"`
	OwnerID         int64      `json:"owner_id,omitempty"`
	IBlocked        bool       `json:"i_blocked"`
	BlockedMe       bool       `json:"blocked_me"`
	BlockedAt       *time.Time `json:"blocked_at,omitempty"`
	BannedAt        *time.Time `json:"banned_at,omitempty"`
	LastMessage     *string    `json:"last_message"`
	LastMessageDate *time.Time `json:"last_message_date"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Key de-duplicates merged entries: user and group ids live in separate
// namespaces.
func (e *ConversationEntry) Key() string {
	if e.IsGroup {
		return fmt.Sprintf("group_%d", e.ID)
	}
	return fmt.Sprintf("user_%d", e.ID)
}

// Dimmed reports whether the entry should sink to the bottom of the list
// (pairwise-blocked in either direction, or platform-suspended).
func (e *ConversationEntry) Dimmed() bool {
	return e.IBlocked || e.BlockedMe || e.BlockedAt != nil || e.BannedAt != nil
}

// ActivityTime is the sort timestamp: last message date falling back to the
// entry's creation time.
func (e *ConversationEntry) ActivityTime() time.Time {
	if e.LastMessageDate != nil {
		return *e.LastMessageDate
	}
	return e.CreatedAt
}

// MergeConversationEntries combines DM and group entries, drops duplicates,
// and sorts: dimmed entries last, then most recent activity first, then name.
func MergeConversationEntries(lists ...[]ConversationEntry) []ConversationEntry {
	seen := make(map[string]bool)
	var merged []ConversationEntry
	for _, list := range lists {
		for _, e := range list {
			if seen[e.Key()] {
				continue
			}
			seen[e.Key()] = true
			merged = append(merged, e)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := &merged[i], &merged[j]
		if a.Dimmed() != b.Dimmed() {
			return !a.Dimmed()
		}
		at, bt := a.ActivityTime(), b.ActivityTime()
		if !at.Equal(bt) {
			return at.After(bt)
		}
		return a.Name < b.Name
	})

	return merged
}
