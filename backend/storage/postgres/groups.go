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

const groupColumns = `id, name, slug, description, avatar, owner_id, last_message_id, is_deleting, created_at, updated_at`

func scanGroup(row *sql.Row) (*models.Group, error) {
	var g models.Group
	err := row.Scan(&g.ID, &g.Name, &g.Slug, &g.Description, &g.Avatar,
		&g.OwnerID, &g.LastMessageID, &g.IsDeleting, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGroup inserts the group and the owner's active admin membership in
// one transaction, so a group is never observable without its owner roster
// row.
func (s *Store) CreateGroup(g *models.Group) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRow(`
		INSERT INTO groups (name, slug, description, avatar, owner_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		g.Name, g.Slug, g.Description, g.Avatar, g.OwnerID).
		Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO group_users (group_id, user_id, role, is_active, joined_at)
		VALUES ($1, $2, $3, TRUE, CURRENT_TIMESTAMP)`,
		g.ID, g.OwnerID, models.RoleAdmin)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) GetGroup(id int64) (*models.Group, error) {
	return scanGroup(s.db.QueryRow(`
		SELECT `+groupColumns+` FROM groups WHERE id = $1`, id))
}

func (s *Store) UpdateGroupInfo(id int64, name, description string, avatar *string) error {
	_, err := s.db.Exec(`
		UPDATE groups
		SET name = $2, description = $3, avatar = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id, name, description, avatar)
	return err
}

func (s *Store) SetGroupAvatar(id int64, avatar *string) error {
	_, err := s.db.Exec(`
		UPDATE groups SET avatar = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id, avatar)
	return err
}

func (s *Store) SetGroupLastMessage(groupID, messageID int64) error {
	_, err := s.db.Exec(`
		UPDATE groups SET last_message_id = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, groupID, messageID)
	return err
}

func (s *Store) MarkGroupDeleting(id int64) error {
	_, err := s.db.Exec(`
		UPDATE groups SET is_deleting = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id)
	return err
}

func (s *Store) DeleteGroup(id int64) error {
	_, err := s.db.Exec(`DELETE FROM groups WHERE id = $1`, id)
	return err
}

// ListGroupsForUser returns conversation entries for every group the user
// owns or is an active member of.
func (s *Store) ListGroupsForUser(userID int64) ([]models.ConversationEntry, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT g.id, g.name, g.avatar, g.owner_id, g.created_at,
			m.message, m.created_at
		FROM groups g
		LEFT JOIN group_users gu ON gu.group_id = g.id AND gu.is_active = TRUE
		LEFT JOIN messages m ON m.id = g.last_message_id
		WHERE gu.user_id = $1 OR g.owner_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ConversationEntry
	for rows.Next() {
		var e models.ConversationEntry
		var lastMessage sql.NullString
		var lastMessageAt sql.NullTime
		err := rows.Scan(&e.ID, &e.Name, &e.AvatarURL, &e.OwnerID, &e.CreatedAt,
			&lastMessage, &lastMessageAt)
		if err != nil {
			return nil, err
		}
		if lastMessage.Valid {
			e.LastMessage = &lastMessage.String
		}
		if lastMessageAt.Valid {
			e.LastMessageDate = &lastMessageAt.Time
		}
		e.IsGroup = true
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (s *Store) GetMembership(groupID, userID int64) (*models.GroupMembership, error) {
	var m models.GroupMembership
	err := s.db.QueryRow(`
		SELECT group_id, user_id, role, is_active, joined_at, left_at, invited_by
		FROM group_users
		WHERE group_id = $1 AND user_id = $2 AND is_active = TRUE`,
		groupID, userID).
		Scan(&m.GroupID, &m.UserID, &m.Role, &m.IsActive, &m.JoinedAt, &m.LeftAt, &m.InvitedBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListMembers(groupID int64) ([]models.GroupMember, error) {
	rows, err := s.db.Query(`
		SELECT gu.user_id, u.name, u.email, gu.role, gu.joined_at
		FROM group_users gu
		JOIN users u ON u.id = gu.user_id
		WHERE gu.group_id = $1 AND gu.is_active = TRUE
		ORDER BY gu.joined_at`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.GroupMember
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.UserID, &m.Name, &m.Email, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Store) ListMemberIDs(groupID int64) ([]int64, error) {
	rows, err := s.db.Query(`
		SELECT user_id FROM group_users
		WHERE group_id = $1 AND is_active = TRUE`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddMember reactivates a previously-left membership instead of failing on
// the roster primary key.
func (s *Store) AddMember(groupID, userID int64, role string, invitedBy int64) error {
	_, err := s.db.Exec(`
		INSERT INTO group_users (group_id, user_id, role, is_active, joined_at, invited_by)
		VALUES ($1, $2, $3, TRUE, CURRENT_TIMESTAMP, $4)
		ON CONFLICT (group_id, user_id) DO UPDATE
		SET role = $3, is_active = TRUE, joined_at = CURRENT_TIMESTAMP,
			left_at = NULL, invited_by = $4`,
		groupID, userID, role, invitedBy)
	return err
}

func (s *Store) UpdateMemberRole(groupID, userID int64, role string) error {
	_, err := s.db.Exec(`
		UPDATE group_users SET role = $3
		WHERE group_id = $1 AND user_id = $2 AND is_active = TRUE`,
		groupID, userID, role)
	return err
}

func (s *Store) DeactivateMember(groupID, userID int64) error {
	_, err := s.db.Exec(`
		UPDATE group_users SET is_active = FALSE, left_at = CURRENT_TIMESTAMP
		WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	return err
}

func (s *Store) DetachAllMembers(groupID int64) error {
	_, err := s.db.Exec(`
		DELETE FROM group_users WHERE group_id = $1`, groupID)
	return err
}

// TransferOwnership swaps the owner and fixes both membership rows in one
// transaction; either the fully-old or fully-new state is visible, never a
// partial one.
func (s *Store) TransferOwnership(groupID, newOwnerID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var oldOwnerID int64
	err = tx.QueryRow(`
		SELECT owner_id FROM groups WHERE id = $1 FOR UPDATE`, groupID).
		Scan(&oldOwnerID)
	if err != nil {
		return err
	}

	if _, err = tx.Exec(`
		UPDATE groups SET owner_id = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, groupID, newOwnerID); err != nil {
		return err
	}

	if _, err = tx.Exec(`
		UPDATE group_users SET role = $3
		WHERE group_id = $1 AND user_id = $2 AND is_active = TRUE`,
		groupID, newOwnerID, models.RoleAdmin); err != nil {
		return err
	}

	// The outgoing owner stays in the group as an admin, creating the
	// roster row if they never had one.
	if _, err = tx.Exec(`
		INSERT INTO group_users (group_id, user_id, role, is_active, joined_at)
		VALUES ($1, $2, $3, TRUE, CURRENT_TIMESTAMP)
		ON CONFLICT (group_id, user_id) DO UPDATE
		SET role = $3, is_active = TRUE, left_at = NULL`,
		groupID, oldOwnerID, models.RoleAdmin); err != nil {
		return err
	}

	return tx.Commit()
}
