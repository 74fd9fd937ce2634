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
	"time"
)

// Membership roles. The owner is tracked on Group.OwnerID, not via a role,
// and outranks every role here.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleMember    = "member"
)

// ValidRole reports whether r is an assignable membership role.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleMember:
		return true
	}
	return false
}

// Group is a multi-member conversation. IsDeleting is a terminal flag: once
// set, the group accepts no new messages and is waiting for the purge worker.
type Group struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Slug          string    `json:"slug" db:"slug"`
	Description   string    `json:"description" db:"description"`
	Avatar        *string   `json:"avatar,omitempty" db:"avatar"`
	OwnerID       int64     `json:"owner_id" db:"owner_id"`
	LastMessageID *int64    `json:"last_message_id,omitempty" db:"last_message_id"`
	IsDeleting    bool      `json:"is_deleting" db:"is_deleting"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// GroupMembership is the group roster join row.
type GroupMembership struct {
	GroupID   int64      `json:"group_id" db:"group_id"`
	UserID    int64      `json:"user_id" db:"user_id"`
	Role      string     `json:"role" db:"role"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	JoinedAt  time.Time  `json:"joined_at" db:"joined_at"`
	LeftAt    *time.Time `json:"left_at,omitempty" db:"left_at"`
	InvitedBy *int64     `json:"invited_by,omitempty" db:"invited_by"`
}

// GroupMember is a roster entry joined with the member's account info.
type GroupMember struct {
	UserID   int64     `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// InviteResult is the structured outcome of a bulk invite. Partial success
// is not a failure; each target lands in exactly one bucket.
type InviteResult struct {
	Added          []int64 `json:"added"`
	AlreadyMembers []int64 `json:"already_members"`
	Blocked        []int64 `json:"blocked"`
}
