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

// Package jobs holds the background tasks run outside the request path.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"

	"github.com/hibiken/asynq"

	"github.com/parleychat/parley/backend/fanout"
	"github.com/parleychat/parley/backend/storage"
)

const TypeGroupPurge = "group:purge"

type GroupPurgePayload struct {
	GroupID int64 `json:"group_id"`
}

// Enqueuer schedules background tasks. Handlers depend on this rather than
// the asynq client directly.
type Enqueuer interface {
	EnqueueGroupPurge(groupID int64) error
}

type AsynqEnqueuer struct {
	client *asynq.Client
}

func NewAsynqEnqueuer(client *asynq.Client) *AsynqEnqueuer {
	return &AsynqEnqueuer{client: client}
}

func (e *AsynqEnqueuer) EnqueueGroupPurge(groupID int64) error {
	payload, err := json.Marshal(GroupPurgePayload{GroupID: groupID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeGroupPurge, payload)
	_, err = e.client.Enqueue(task, asynq.MaxRetry(5), asynq.Queue("default"))
	return err
}

// PurgeWorker tears down marked groups. Every step is idempotent so a retry
// after a mid-purge crash resumes where the previous attempt stopped.
type PurgeWorker struct {
	groups   storage.GroupStore
	messages storage.MessageStore
	blobs    storage.BlobStore
	events   *fanout.Engine
}

func NewPurgeWorker(groups storage.GroupStore, messages storage.MessageStore, blobs storage.BlobStore, events *fanout.Engine) *PurgeWorker {
	return &PurgeWorker{
		groups:   groups,
		messages: messages,
		blobs:    blobs,
		events:   events,
	}
}

func (w *PurgeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p GroupPurgePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", TypeGroupPurge, err, asynq.SkipRetry)
	}
	return w.Purge(p.GroupID)
}

// Purge removes everything belonging to the group. The group row goes last:
// as long as it exists the deleting flag keeps writes out, and a crashed
// purge stays discoverable for retry.
func (w *PurgeWorker) Purge(groupID int64) error {
	group, err := w.groups.GetGroup(groupID)
	if err != nil {
		return err
	}
	if group == nil {
		// Already purged by an earlier attempt.
		return nil
	}

	if group.Avatar != nil {
		if err := w.blobs.Delete(*group.Avatar); err != nil {
			return fmt.Errorf("delete group avatar: %w", err)
		}
	}

	ids, err := w.messages.ListGroupMessageIDs(groupID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		attachments, err := w.messages.GetAttachments(id)
		if err != nil {
			return err
		}
		if len(attachments) == 0 {
			continue
		}
		// All attachments of a message live in one directory.
		if err := w.blobs.DeleteDirectory(path.Dir(attachments[0].Path)); err != nil {
			return fmt.Errorf("delete attachments of message %d: %w", id, err)
		}
	}

	if err := w.messages.DeleteGroupMessages(groupID); err != nil {
		return err
	}

	if err := w.groups.DetachAllMembers(groupID); err != nil {
		return err
	}

	w.events.GroupDeleted(groupID)

	if err := w.groups.DeleteGroup(groupID); err != nil {
		return err
	}

	log.Printf("jobs: purged group %d (%d messages)", groupID, len(ids))
	return nil
}
