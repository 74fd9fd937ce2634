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

package storage

import (
	"io"

	"github.com/parleychat/parley/backend/models"
)

// Lookup methods return (nil, nil) when the row does not exist.

type UserStore interface {
	GetUser(id int64) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	SearchUsers(viewerID int64, viewerIsAdmin bool, query string, limit int) ([]models.UserSearchResult, error)

	// ListConversationPartners returns one entry per user the viewer has a
	// conversation with, annotated with preview and block flags.
	ListConversationPartners(viewerID int64, viewerIsAdmin bool) ([]models.ConversationEntry, error)
}

type ConversationStore interface {
	FindConversation(userA, userB int64) (*models.Conversation, error)

	// FindOrCreateConversation is race-safe: concurrent calls for the same
	// unordered pair yield exactly one row. The bool reports creation.
	FindOrCreateConversation(userA, userB int64) (*models.Conversation, bool, error)

	// SetLastMessage upserts the pair's conversation with the new pointer.
	SetLastMessage(userA, userB, messageID int64) error

	DeleteConversation(userA, userB int64) (bool, error)
}

type MessageStore interface {
	CreateMessage(m *models.Message) error
	GetMessage(id int64) (*models.Message, error)
	UpdateMessageBody(id int64, body string) error

	// DeleteMessage removes the message and its attachment rows, and nulls
	// any conversation/group pointer that referenced it. Pointer repair is
	// the caller's next step.
	DeleteMessage(id int64) error

	LatestInDM(userA, userB int64) (*models.Message, error)
	LatestInGroup(groupID int64) (*models.Message, error)
	MessagesBetween(userA, userB int64, limit int) ([]models.Message, error)
	MessagesInGroup(groupID int64, limit int) ([]models.Message, error)

	// MessagesOlderThan pages strictly older messages in the anchor's scope,
	// newest first. Anchored on created_at, never offsets.
	MessagesOlderThan(anchor *models.Message, limit int) ([]models.Message, error)

	ListGroupMessageIDs(groupID int64) ([]int64, error)
	DeleteGroupMessages(groupID int64) error

	CreateAttachment(a *models.MessageAttachment) error
	GetAttachments(messageID int64) ([]models.MessageAttachment, error)
	DeleteAttachments(messageID int64) error
}

type GroupStore interface {
	// CreateGroup inserts the group and an active admin membership for the
	// owner in one transaction.
	CreateGroup(g *models.Group) error

	GetGroup(id int64) (*models.Group, error)
	UpdateGroupInfo(id int64, name, description string, avatar *string) error
	SetGroupAvatar(id int64, avatar *string) error
	SetGroupLastMessage(groupID, messageID int64) error
	MarkGroupDeleting(id int64) error
	DeleteGroup(id int64) error
	ListGroupsForUser(userID int64) ([]models.ConversationEntry, error)

	// GetMembership returns the active membership only.
	GetMembership(groupID, userID int64) (*models.GroupMembership, error)
	ListMembers(groupID int64) ([]models.GroupMember, error)
	ListMemberIDs(groupID int64) ([]int64, error)
	AddMember(groupID, userID int64, role string, invitedBy int64) error
	UpdateMemberRole(groupID, userID int64, role string) error
	DeactivateMember(groupID, userID int64) error
	DetachAllMembers(groupID int64) error

	// TransferOwnership atomically swaps Group.OwnerID to newOwnerID, sets
	// the new owner's membership role to admin, and leaves the outgoing
	// owner with an active admin membership.
	TransferOwnership(groupID, newOwnerID int64) error
}

type BlockStore interface {
	CreateBlock(blockerID, blockedID int64) error
	DeleteBlock(blockerID, blockedID int64) (bool, error)
	HasBlocked(blockerID, blockedID int64) (bool, error)
	IsBlockedEither(userA, userB int64) (bool, error)
}

type Store interface {
	UserStore
	ConversationStore
	MessageStore
	GroupStore
	BlockStore
}

// BlobStore is the external attachment store. The core only deletes
// directories it created through Store.
type BlobStore interface {
	Store(r io.Reader, dir, filename string) (string, error)
	Delete(path string) error
	DeleteDirectory(dir string) error
	Exists(path string) (bool, error)
	URLFor(path string) string
}
