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
	"log"

	"github.com/parleychat/parley/backend/models"
)

// Broker delivers one event payload to one channel.
type Broker interface {
	Publish(channel, event string, payload any) error
}

// Engine maps domain events to channels and payloads. Delivery is best
// effort: a failed publish is logged, never returned, so a dropped event
// cannot fail the state change that caused it.
type Engine struct {
	broker Broker
}

func NewEngine(broker Broker) *Engine {
	return &Engine{broker: broker}
}

func (e *Engine) publish(channel, event string, payload any) {
	if err := e.broker.Publish(channel, event, payload); err != nil {
		log.Printf("fanout: publish %s to %s failed: %v", event, channel, err)
	}
}

func messageChannel(m *models.Message) string {
	if m.GroupID != nil {
		return GroupChannel(*m.GroupID)
	}
	return DMChannel(m.SenderID, *m.ReceiverID)
}

func (e *Engine) MessageCreated(m *models.Message) {
	e.publish(messageChannel(m), EventMessage, models.MessageEvent{
		Message: m,
		Action:  models.ActionCreated,
	})
}

func (e *Engine) MessageUpdated(m *models.Message) {
	e.publish(messageChannel(m), EventMessage, models.MessageEvent{
		Message: m,
		Action:  models.ActionUpdated,
	})
}

// MessageDeleted announces the deletion along with the scope's new last
// message, which is nil when the scope is now empty.
func (e *Engine) MessageDeleted(stub models.MessageStub, newLast *models.Message) {
	var channel string
	if stub.GroupID != nil {
		channel = GroupChannel(*stub.GroupID)
	} else {
		channel = DMChannel(stub.SenderID, *stub.ReceiverID)
	}
	e.publish(channel, EventMessage, models.MessageDeletedEvent{
		Message:        stub,
		Action:         models.ActionDeleted,
		NewLastMessage: newLast,
	})
}

func groupPayload(groupID int64, action string, extra map[string]any) map[string]any {
	payload := map[string]any{
		"group_id": groupID,
		"action":   action,
	}
	for k, v := range extra {
		payload[k] = v
	}
	return payload
}

// GroupCreated notifies each initial member on their personal channel, so
// clients learn about groups they were just added to without being
// subscribed to the group channel yet.
func (e *Engine) GroupCreated(groupID int64, memberIDs []int64) {
	payload := groupPayload(groupID, models.ActionCreated, nil)
	for _, id := range memberIDs {
		e.publish(UserChannel(id), EventGroup, payload)
	}
}

func (e *Engine) GroupUpdated(groupID int64, extra map[string]any) {
	e.publish(GroupChannel(groupID), EventGroup,
		groupPayload(groupID, models.ActionUpdated, extra))
}

func (e *Engine) GroupDeleting(groupID int64) {
	e.publish(GroupChannel(groupID), EventGroup,
		groupPayload(groupID, models.ActionDeleting, nil))
}

func (e *Engine) GroupDeleted(groupID int64) {
	e.publish(GroupChannel(groupID), EventGroup,
		groupPayload(groupID, models.ActionDeleted, nil))
}

// BlockChanged tells both parties on their personal channels.
func (e *Engine) BlockChanged(blockerID, blockedID int64, isBlocked bool) {
	action := models.ActionUnblocked
	if isBlocked {
		action = models.ActionBlocked
	}
	payload := models.BlockEvent{
		BlockerID: blockerID,
		BlockedID: blockedID,
		IsBlocked: isBlocked,
		Action:    action,
	}
	e.publish(UserChannel(blockerID), EventBlock, payload)
	e.publish(UserChannel(blockedID), EventBlock, payload)
}
