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

package fanout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley/backend/models"
)

type published struct {
	channel string
	event   string
	payload any
}

type captureBroker struct {
	calls []published
	err   error
}

func (b *captureBroker) Publish(channel, event string, payload any) error {
	b.calls = append(b.calls, published{channel, event, payload})
	return b.err
}

func dmMessage(sender, receiver int64) *models.Message {
	return &models.Message{ID: 1, SenderID: sender, ReceiverID: &receiver, Body: "hi"}
}

func TestMessageCreatedTargetsDMChannel(t *testing.T) {
	broker := &captureBroker{}
	engine := NewEngine(broker)

	engine.MessageCreated(dmMessage(7, 3))

	require.Len(t, broker.calls, 1)
	assert.Equal(t, "message.user.3-7", broker.calls[0].channel)
	assert.Equal(t, EventMessage, broker.calls[0].event)

	event, ok := broker.calls[0].payload.(models.MessageEvent)
	require.True(t, ok)
	assert.Equal(t, models.ActionCreated, event.Action)
}

func TestMessageCreatedTargetsGroupChannel(t *testing.T) {
	broker := &captureBroker{}
	engine := NewEngine(broker)

	gid := int64(42)
	engine.MessageCreated(&models.Message{ID: 1, SenderID: 7, GroupID: &gid})

	require.Len(t, broker.calls, 1)
	assert.Equal(t, "message.group.42", broker.calls[0].channel)
}

func TestMessageDeletedCarriesNewLast(t *testing.T) {
	broker := &captureBroker{}
	engine := NewEngine(broker)

	receiver := int64(3)
	stub := models.MessageStub{ID: 9, SenderID: 7, ReceiverID: &receiver}
	newLast := dmMessage(3, 7)

	engine.MessageDeleted(stub, newLast)

	require.Len(t, broker.calls, 1)
	event, ok := broker.calls[0].payload.(models.MessageDeletedEvent)
	require.True(t, ok)
	assert.Equal(t, models.ActionDeleted, event.Action)
	assert.Equal(t, newLast, event.NewLastMessage)

	// Empty scope after deletion: newLastMessage is explicitly null.
	engine.MessageDeleted(stub, nil)
	event = broker.calls[1].payload.(models.MessageDeletedEvent)
	assert.Nil(t, event.NewLastMessage)
}

func TestGroupCreatedNotifiesEachMember(t *testing.T) {
	broker := &captureBroker{}
	engine := NewEngine(broker)

	engine.GroupCreated(5, []int64{1, 2, 3})

	require.Len(t, broker.calls, 3)
	channels := []string{broker.calls[0].channel, broker.calls[1].channel, broker.calls[2].channel}
	assert.ElementsMatch(t, []string{"user.1", "user.2", "user.3"}, channels)
	for _, c := range broker.calls {
		assert.Equal(t, EventGroup, c.event)
	}
}

func TestBlockChangedNotifiesBothParties(t *testing.T) {
	broker := &captureBroker{}
	engine := NewEngine(broker)

	engine.BlockChanged(7, 3, true)

	require.Len(t, broker.calls, 2)
	assert.Equal(t, "user.7", broker.calls[0].channel)
	assert.Equal(t, "user.3", broker.calls[1].channel)
	for _, c := range broker.calls {
		assert.Equal(t, EventBlock, c.event)
		event := c.payload.(models.BlockEvent)
		assert.True(t, event.IsBlocked)
		assert.Equal(t, models.ActionBlocked, event.Action)
	}
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	broker := &captureBroker{err: errors.New("redis down")}
	engine := NewEngine(broker)

	// Must not panic or propagate; delivery is best effort.
	engine.GroupDeleting(1)
	engine.BlockChanged(1, 2, false)

	assert.Len(t, broker.calls, 3)
}
