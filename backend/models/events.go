// Copyright (C) 2025 parley.chat <dev@parley.chat>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package models

// Actions carried inside fan-out event payloads.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionDeleted   = "deleted"
	ActionDeleting  = "deleting"
	ActionBlocked   = "blocked"
	ActionUnblocked = "unblocked"
	ActionOnline    = "online"
	ActionOffline   = "offline"
)

// MessageEvent is the payload for message.created and message.updated.
type MessageEvent struct {
	Message *Message `json:"message"`
	Action  string   `json:"action"`
}

// MessageDeletedEvent carries the deleted message's identity stub plus the
// scope's new last message so clients can update previews without a fetch.
type MessageDeletedEvent struct {
	Message        MessageStub `json:"message"`
	Action         string      `json:"action"`
	NewLastMessage *Message    `json:"newLastMessage"`
}

// BlockEvent notifies both parties of a block state change.
type BlockEvent struct {
	BlockerID int64  `json:"blocker_id"`
	BlockedID int64  `json:"blocked_id"`
	IsBlocked bool   `json:"is_blocked"`
	Action    string `json:"action"`
}

// PresenceEvent announces a user joining or leaving the online set.
type PresenceEvent struct {
	UserID int64  `json:"user_id"`
	Action string `json:"action"`
}
