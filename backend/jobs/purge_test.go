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

package jobs

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley/backend/fanout"
	"github.com/parleychat/parley/backend/models"
	"github.com/parleychat/parley/backend/storage/disk"
	"github.com/parleychat/parley/backend/storage/memory"
)

type captureBroker struct {
	channels []string
	payloads []any
}

func (b *captureBroker) Publish(channel, event string, payload any) error {
	b.channels = append(b.channels, channel)
	b.payloads = append(b.payloads, payload)
	return nil
}

func TestPurgeRemovesEverything(t *testing.T) {
	store := memory.NewStore()
	blobs, err := disk.NewStore(t.TempDir(), "/attachments")
	require.NoError(t, err)
	broker := &captureBroker{}
	worker := NewPurgeWorker(store, store, blobs, fanout.NewEngine(broker))

	// Group with an avatar, two members, a message with an attachment.
	avatarPath, err := blobs.Store(strings.NewReader("png"), "group-avatars", "g.png")
	require.NoError(t, err)
	group := &models.Group{Name: "doomed", OwnerID: 1, Avatar: &avatarPath}
	require.NoError(t, store.CreateGroup(group))
	require.NoError(t, store.AddMember(group.ID, 2, models.RoleMember, 1))

	msg := &models.Message{SenderID: 1, GroupID: &group.ID, Body: "with file"}
	require.NoError(t, store.CreateMessage(msg))
	filePath, err := blobs.Store(strings.NewReader("data"), "attachments/abc", "f.pdf")
	require.NoError(t, err)
	require.NoError(t, store.CreateAttachment(&models.MessageAttachment{
		MessageID: msg.ID, Name: "f.pdf", Mime: "application/pdf",
		Type: models.AttachmentDocument, Path: filePath, UploadedBy: 1,
	}))
	require.NoError(t, store.SetGroupLastMessage(group.ID, msg.ID))
	require.NoError(t, store.MarkGroupDeleting(group.ID))

	require.NoError(t, worker.Purge(group.ID))

	// Group row went last, and it is gone.
	g, err := store.GetGroup(group.ID)
	require.NoError(t, err)
	assert.Nil(t, g)

	m, err := store.GetMessage(msg.ID)
	require.NoError(t, err)
	assert.Nil(t, m)

	ids, err := store.ListMemberIDs(group.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	exists, err := blobs.Exists(avatarPath)
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = blobs.Exists(filePath)
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleted event reached the group channel before the row vanished.
	require.Contains(t, broker.channels, fmt.Sprintf("message.group.%d", group.ID))
}

func TestPurgeIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	blobs, err := disk.NewStore(t.TempDir(), "/attachments")
	require.NoError(t, err)
	broker := &captureBroker{}
	worker := NewPurgeWorker(store, store, blobs, fanout.NewEngine(broker))

	group := &models.Group{Name: "doomed", OwnerID: 1}
	require.NoError(t, store.CreateGroup(group))
	require.NoError(t, store.MarkGroupDeleting(group.ID))

	require.NoError(t, worker.Purge(group.ID))
	published := len(broker.channels)

	// Re-delivery of the task is a clean no-op.
	require.NoError(t, worker.Purge(group.ID))
	assert.Equal(t, published, len(broker.channels))
}

func TestPurgeMissingGroupIsNoop(t *testing.T) {
	store := memory.NewStore()
	blobs, err := disk.NewStore(t.TempDir(), "/attachments")
	require.NoError(t, err)
	worker := NewPurgeWorker(store, store, blobs, fanout.NewEngine(&captureBroker{}))

	assert.NoError(t, worker.Purge(404))
}
