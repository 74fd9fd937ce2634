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

func scanConversation(row *sql.Row) (*models.Conversation, error) {
	var c models.Conversation
	err := row.Scan(&c.ID, &c.UserID1, &c.UserID2, &c.LastMessageID, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) FindConversation(userA, userB int64) (*models.Conversation, error) {
	lo, hi := models.CanonicalPair(userA, userB)
	return scanConversation(s.db.QueryRow(`
		SELECT id, user_id1, user_id2, last_message_id, created_at, updated_at
		FROM conversations
		WHERE user_id1 = $1 AND user_id2 = $2`, lo, hi))
}

// FindOrCreateConversation relies on the unique pair constraint: a losing
// concurrent insert falls through to the select of the winner's row.
func (s *Store) FindOrCreateConversation(userA, userB int64) (*models.Conversation, bool, error) {
	lo, hi := models.CanonicalPair(userA, userB)

	conv, err := scanConversation(s.db.QueryRow(`
		INSERT INTO conversations (user_id1, user_id2)
		VALUES ($1, $2)
		ON CONFLICT (user_id1, user_id2) DO NOTHING
		RETURNING id, user_id1, user_id2, last_message_id, created_at, updated_at`,
		lo, hi))
	if err != nil {
		return nil, false, err
	}
	if conv != nil {
		return conv, true, nil
	}

	conv, err = s.FindConversation(lo, hi)
	if err != nil {
		return nil, false, err
	}
	return conv, false, nil
}

// SetLastMessage upserts the conversation row with the new pointer, creating
// it on the pair's first message.
func (s *Store) SetLastMessage(userA, userB, messageID int64) error {
	lo, hi := models.CanonicalPair(userA, userB)
	_, err := s.db.Exec(`
		INSERT INTO conversations (user_id1, user_id2, last_message_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id1, user_id2) DO UPDATE
		SET last_message_id = $3, updated_at = CURRENT_TIMESTAMP`,
		lo, hi, messageID)
	return err
}

func (s *Store) DeleteConversation(userA, userB int64) (bool, error) {
	lo, hi := models.CanonicalPair(userA, userB)
	res, err := s.db.Exec(`
		DELETE FROM conversations
		WHERE user_id1 = $1 AND user_id2 = $2`, lo, hi)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
