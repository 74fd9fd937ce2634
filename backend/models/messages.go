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
	"strings"
	"time"
)

// EditWindow is how long after creation a sender may still edit a message.
const EditWindow = 15 * time.Minute

// Message is one chat message. Exactly one of ReceiverID (DM) or GroupID
// (group) is set, never both, never neither.
type Message struct {
	ID         int64     `json:"id" db:"id"`
	SenderID   int64     `json:"sender_id" db:"sender_id"`
	ReceiverID *int64    `json:"receiver_id,omitempty" db:"receiver_id"`
	GroupID    *int64    `json:"group_id,omitempty" db:"group_id"`
	Body       string    `json:"message" db:"message"`
	Type       string    `json:"type" db:"type"`
	Status     string    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`

	Attachments []MessageAttachment `json:"attachments,omitempty"`
}

// IsGroupMessage reports whether the message belongs to a group scope.
func (m *Message) IsGroupMessage() bool {
	return m.GroupID != nil
}

// WithinEditWindow reports whether the message may still be edited at now.
func (m *Message) WithinEditWindow(now time.Time) bool {
	return now.Sub(m.CreatedAt) <= EditWindow
}

// MessageStub is the minimal identity carried by message.deleted events.
type MessageStub struct {
	ID         int64  `json:"id"`
	SenderID   int64  `json:"sender_id"`
	ReceiverID *int64 `json:"receiver_id,omitempty"`
	GroupID    *int64 `json:"group_id,omitempty"`
}

// Stub returns the deletion-event identity of the message.
func (m *Message) Stub() MessageStub {
	return MessageStub{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		GroupID:    m.GroupID,
	}
}

// Attachment types, derived from the MIME type at upload time.
const (
	AttachmentImage    = "image"
	AttachmentVideo    = "video"
	AttachmentAudio    = "audio"
	AttachmentDocument = "document"
)

// AttachmentTypeFromMime maps a MIME type to the stored attachment type.
// Anything that is not image/video/audio is a document.
func AttachmentTypeFromMime(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return AttachmentImage
	case strings.HasPrefix(mime, "video/"):
		return AttachmentVideo
	case strings.HasPrefix(mime, "audio/"):
		return AttachmentAudio
	default:
		return AttachmentDocument
	}
}

// MessageAttachment is a file owned by exactly one message. All attachments
// of a message share one directory so deletion is a single directory removal.
type MessageAttachment struct {
	ID             int64     `json:"id" db:"id"`
	MessageID      int64     `json:"message_id" db:"message_id"`
	Name           string    `json:"name" db:"name"`
	Mime           string    `json:"mime" db:"mime"`
	Type           string    `json:"type" db:"type"`
	Size           int64     `json:"size" db:"size"`
	Path           string    `json:"-" db:"path"`
	URL            string    `json:"url,omitempty" db:"-"`
	Status         string    `json:"status" db:"status"`
	IsVoiceMessage bool      `json:"is_voice_message" db:"is_voice_message"`
	UploadedBy     int64     `json:"uploaded_by" db:"uploaded_by"`
	UploadedAt     time.Time `json:"uploaded_at" db:"uploaded_at"`
}
