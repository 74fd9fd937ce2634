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

package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley/backend/models"
)

func TestListMergesDMsAndGroups(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")
	env.addUser(2, "bob", "bob@parley.chat")
	gid := env.createGroup(t, 1, "general")

	receiver := int64(2)
	env.seedMessage(t, &models.Message{SenderID: 1, ReceiverID: &receiver, Body: "hi bob"})

	rec := doJSON(t, env.conversations.List, "GET", nil, 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Conversations []models.ConversationEntry `json:"conversations"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Conversations, 2)

	var sawUser, sawGroup bool
	for _, e := range body.Conversations {
		if e.IsUser && e.ID == 2 {
			sawUser = true
			require.NotNil(t, e.LastMessage)
			assert.Equal(t, "hi bob", *e.LastMessage)
		}
		if e.IsGroup && e.ID == gid {
			sawGroup = true
			assert.Equal(t, int64(1), e.OwnerID)
		}
	}
	assert.True(t, sawUser)
	assert.True(t, sawGroup)
}

func TestListSinksBlockedPartners(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")
	env.addUser(2, "bob", "bob@parley.chat")
	env.addUser(3, "carol", "carol@parley.chat")

	bob := int64(2)
	carol := int64(3)
	env.seedMessage(t, &models.Message{SenderID: 1, ReceiverID: &bob, Body: "to bob"})
	env.seedMessage(t, &models.Message{SenderID: 1, ReceiverID: &carol, Body: "to carol"})
	require.NoError(t, env.store.CreateBlock(1, 2))

	rec := doJSON(t, env.conversations.List, "GET", nil, 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Conversations []models.ConversationEntry `json:"conversations"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Conversations, 2)
	assert.Equal(t, "carol", body.Conversations[0].Name)
	assert.Equal(t, "bob", body.Conversations[1].Name)
	assert.True(t, body.Conversations[1].IBlocked)
}

func TestFindOrCreateByEmail(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")
	env.addUser(2, "bob", "bob@parley.chat")

	rec := doJSON(t, env.conversations.FindOrCreate, "POST", nil, 1,
		map[string]any{"email": "bob@parley.chat"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		HasConversation bool                `json:"has_conversation"`
		Conversation    models.Conversation `json:"conversation"`
	}
	decodeBody(t, rec, &body)
	assert.False(t, body.HasConversation)
	assert.Equal(t, int64(1), body.Conversation.UserID1)
	assert.Equal(t, int64(2), body.Conversation.UserID2)

	// Second call finds the same row.
	rec = doJSON(t, env.conversations.FindOrCreate, "POST", nil, 2,
		map[string]any{"email": "alice@parley.chat"})
	require.Equal(t, http.StatusOK, rec.Code)
	var second struct {
		HasConversation bool                `json:"has_conversation"`
		Conversation    models.Conversation `json:"conversation"`
	}
	decodeBody(t, rec, &second)
	assert.True(t, second.HasConversation)
	assert.Equal(t, body.Conversation.ID, second.Conversation.ID)
}

func TestFindOrCreateBlockedOrMissing(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")
	env.addUser(2, "bob", "bob@parley.chat")
	require.NoError(t, env.store.CreateBlock(2, 1))

	rec := doJSON(t, env.conversations.FindOrCreate, "POST", nil, 1,
		map[string]any{"email": "bob@parley.chat"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, env.conversations.FindOrCreate, "POST", nil, 1,
		map[string]any{"email": "nobody@parley.chat"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteConversationRequiresBlock(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")
	env.addUser(2, "bob", "bob@parley.chat")

	receiver := int64(2)
	env.seedMessage(t, &models.Message{SenderID: 1, ReceiverID: &receiver, Body: "hi"})

	// Not blocked: removal refused.
	rec := doJSON(t, env.conversations.Delete, "DELETE", map[string]string{"id": "2"}, 1, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	require.NoError(t, env.store.CreateBlock(1, 2))
	rec = doJSON(t, env.conversations.Delete, "DELETE", map[string]string{"id": "2"}, 1, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	conv, err := env.store.FindConversation(1, 2)
	require.NoError(t, err)
	assert.Nil(t, conv)
}
