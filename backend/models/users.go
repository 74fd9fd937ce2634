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

// User is a platform account. blocked_at/banned_at are platform-level
// suspension timestamps, distinct from pairwise user blocks.
type User struct {
	ID          int64      `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Email       string     `json:"email" db:"email"`
	Avatar      *string    `json:"avatar,omitempty" db:"avatar"`
	IsAdmin     bool       `json:"is_admin" db:"is_admin"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	BlockedAt   *time.Time `json:"blocked_at,omitempty" db:"blocked_at"`
	BannedAt    *time.Time `json:"banned_at,omitempty" db:"banned_at"`
	BanReason   *string    `json:"ban_reason,omitempty" db:"ban_reason"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Suspended reports whether the account is disabled at the platform level.
func (u *User) Suspended() bool {
	return u.BlockedAt != nil || u.BannedAt != nil
}

// UserSearchResult is one row of the user search endpoint, annotated with
// the pairwise block state in both directions relative to the viewer.
type UserSearchResult struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	AvatarURL *string `json:"avatar_url"`
	IBlocked  bool    `json:"i_blocked"`
	BlockedMe bool    `json:"blocked_me"`
}

// UserBlock is a directional block row. Authorization checks treat the
// relation as symmetric; only the original blocker can remove it.
type UserBlock struct {
	BlockerID int64     `json:"blocker_id" db:"blocker_id"`
	BlockedID int64     `json:"blocked_id" db:"blocked_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
