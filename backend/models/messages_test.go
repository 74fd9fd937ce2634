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

func TestAttachmentTypeFromMime(t *testing.T) {
	assert.Equal(t, AttachmentImage, AttachmentTypeFromMime("image/png"))
	assert.Equal(t, AttachmentVideo, AttachmentTypeFromMime("video/mp4"))
	assert.Equal(t, AttachmentAudio, AttachmentTypeFromMime("audio/ogg"))
	assert.Equal(t, AttachmentDocument, AttachmentTypeFromMime("application/pdf"))
	assert.Equal(t, AttachmentDocument, AttachmentTypeFromMime("text/plain"))
	assert.Equal(t, AttachmentDocument, AttachmentTypeFromMime(""))
}

func TestWithinEditWindow(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := &Message{CreatedAt: created}

	assert.True(t, m.WithinEditWindow(created))
	assert.True(t, m.WithinEditWindow(created.Add(EditWindow)))
	assert.False(t, m.WithinEditWindow(created.Add(EditWindow+time.Second)))
}

func TestStub(t *testing.T) {
	gid := int64(4)
	m := &Message{ID: 10, SenderID: 2, GroupID: &gid, Body: "secret"}

	stub := m.Stub()
	assert.Equal(t, int64(10), stub.ID)
	assert.Equal(t, int64(2), stub.SenderID)
	assert.Equal(t, &gid, stub.GroupID)
	assert.Nil(t, stub.ReceiverID)
}
