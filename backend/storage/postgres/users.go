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

package postgres

import (
	"database/sql"

	"github.com/parleychat/parley/backend/models"
)

const userColumns = `id, name, email, avatar, is_admin, is_active,
	blocked_at, banned_at, ban_reason, last_login_at, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Avatar, &u.IsAdmin, &u.IsActive,
		&u.BlockedAt, &u.BannedAt, &u.BanReason, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUser(id int64) (*models.User, error) {
	return scanUser(s.db.QueryRow(`
		SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	return scanUser(s.db.QueryRow(`
		SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// SearchUsers matches name or email substrings, excluding the viewer.
// Non-admin viewers never see platform-suspended accounts.
func (s *Store) SearchUsers(viewerID int64, viewerIsAdmin bool, query string, limit int) ([]models.UserSearchResult, error) {
	q := `
		SELECT u.id, u.name, u.email, u.avatar,
			EXISTS(SELECT 1 FROM user_blocks WHERE blocker_id = $1 AND blocked_id = u.id) AS i_blocked,
			EXISTS(SELECT 1 FROM user_blocks WHERE blocker_id = u.id AND blocked_id = $1) AS blocked_me
		FROM users u
		WHERE u.id != $1
		AND (u.name ILIKE '%' || $2 || '%' OR u.email ILIKE '%' || $2 || '%')`
	if !viewerIsAdmin {
		q += `
		AND u.banned_at IS NULL AND u.blocked_at IS NULL`
	}
	q += `
		ORDER BY u.name
		LIMIT $3`

	rows, err := s.db.Query(q, viewerID, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.UserSearchResult
	for rows.Next() {
		var r models.UserSearchResult
		if err := rows.Scan(&r.ID, &r.Name, &r.Email, &r.AvatarURL, &r.IBlocked, &r.BlockedMe); err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

// ListConversationPartners returns one entry per user the viewer shares a
// conversation row with, carrying the last-message preview and block state.
func (s *Store) ListConversationPartners(viewerID int64, viewerIsAdmin bool) ([]models.ConversationEntry, error) {
	q := `
		SELECT u.id, u.name, u.email, u.avatar, u.blocked_at, u.banned_at, u.created_at,
			m.message, m.created_at,
			EXISTS(SELECT 1 FROM user_blocks WHERE blocker_id = $1 AND blocked_id = u.id) AS i_blocked,
			EXISTS(SELECT 1 FROM user_blocks WHERE blocker_id = u.id AND blocked_id = $1) AS blocked_me
		FROM conversations c
		JOIN users u ON u.id = CASE WHEN c.user_id1 = $1 THEN c.user_id2 ELSE c.user_id1 END
		LEFT JOIN messages m ON m.id = c.last_message_id
		WHERE (c.user_id1 = $1 OR c.user_id2 = $1)`
	if !viewerIsAdmin {
		q += `
		AND u.banned_at IS NULL AND u.blocked_at IS NULL`
	}

	rows, err := s.db.Query(q, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ConversationEntry
	for rows.Next() {
		var e models.ConversationEntry
		var lastMessage sql.NullString
		var lastMessageAt sql.NullTime
		err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.AvatarURL, &e.BlockedAt, &e.BannedAt,
			&e.CreatedAt, &lastMessage, &lastMessageAt, &e.IBlocked, &e.BlockedMe)
		if err != nil {
			return nil, err
		}
		if lastMessage.Valid {
			e.LastMessage = &lastMessage.String
		}
		if lastMessageAt.Valid {
			e.LastMessageDate = &lastMessageAt.Time
		}
		e.IsUser = true
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
