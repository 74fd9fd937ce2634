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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPair(t *testing.T) {
	lo, hi := CanonicalPair(7, 3)
	assert.Equal(t, int64(3), lo)
	assert.Equal(t, int64(7), hi)

	lo, hi = CanonicalPair(3, 7)
	assert.Equal(t, int64(3), lo)
	assert.Equal(t, int64(7), hi)

	lo, hi = CanonicalPair(5, 5)
	assert.Equal(t, int64(5), lo)
	assert.Equal(t, int64(5), hi)
}

func entryAt(name string, at time.Time) ConversationEntry {
	return ConversationEntry{ID: int64(name[0]), Name: name, IsUser: true, CreatedAt: at}
}

func TestMergeConversationEntriesOrdering(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	older := base.Add(-time.Hour)
	newest := base.Add(time.Hour)

	active := entryAt("alice", base)
	recent := entryAt("bob", newest)
	quiet := entryAt("carol", older)
	blocked := ConversationEntry{ID: 9, Name: "dave", IsUser: true, IBlocked: true, CreatedAt: newest}

	merged := MergeConversationEntries(
		[]ConversationEntry{active, blocked},
		[]ConversationEntry{recent, quiet},
	)

	names := make([]string, len(merged))
	for i, e := range merged {
		names[i] = e.Name
	}
	// Blocked entries sink to the bottom regardless of recency.
	assert.Equal(t, []string{"bob", "alice", "carol", "dave"}, names)
}

func TestMergeConversationEntriesDeduplicates(t *testing.T) {
	now := time.Now()
	user := ConversationEntry{ID: 1, Name: "alice", IsUser: true, CreatedAt: now}
	group := ConversationEntry{ID: 1, Name: "general", IsGroup: true, CreatedAt: now}

	merged := MergeConversationEntries(
		[]ConversationEntry{user, user},
		[]ConversationEntry{group},
	)

	// Same numeric id in different namespaces stays distinct; the true
	// duplicate collapses.
	assert.Len(t, merged, 2)
}

func TestMergeConversationEntriesActivityFallback(t *testing.T) {
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	lastMsg := created.Add(48 * time.Hour)

	withMessage := ConversationEntry{ID: 1, Name: "alice", IsUser: true,
		CreatedAt: created, LastMessageDate: &lastMsg}
	withoutMessage := ConversationEntry{ID: 2, Name: "bob", IsUser: true,
		CreatedAt: created.Add(time.Hour)}

	merged := MergeConversationEntries([]ConversationEntry{withoutMessage, withMessage})
	assert.Equal(t, "alice", merged[0].Name)
	assert.Equal(t, "bob", merged[1].Name)
}

func TestDimmed(t *testing.T) {
	now := time.Now()
	assert.False(t, (&ConversationEntry{}).Dimmed())
	assert.True(t, (&ConversationEntry{IBlocked: true}).Dimmed())
	assert.True(t, (&ConversationEntry{BlockedMe: true}).Dimmed())
	assert.True(t, (&ConversationEntry{BannedAt: &now}).Dimmed())
	assert.True(t, (&ConversationEntry{BlockedAt: &now}).Dimmed())
}
