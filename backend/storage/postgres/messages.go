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

const messageColumns = `id, sender_id, receiver_id, group_id, message, type, status, created_at, updated_at`

func scanMessageRow(row *sql.Row) (*models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.GroupID,
		&m.Body, &m.Type, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanMessages(rows *sql.Rows) ([]models.Message, error) {
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.GroupID,
			&m.Body, &m.Type, &m.Status, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *Store) CreateMessage(m *models.Message) error {
	return s.db.QueryRow(`
		INSERT INTO messages (sender_id, receiver_id, group_id, message, type, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		m.SenderID, m.ReceiverID, m.GroupID, m.Body, m.Type, m.Status).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (s *Store) GetMessage(id int64) (*models.Message, error) {
	return scanMessageRow(s.db.QueryRow(`
		SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
}

func (s *Store) UpdateMessageBody(id int64, body string) error {
	_, err := s.db.Exec(`
		UPDATE messages SET message = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id, body)
	return err
}

// DeleteMessage removes the message and nulls any pointer referencing it.
// The caller repairs the pointer afterwards; see the message delete handler.
func (s *Store) DeleteMessage(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.Exec(`
		UPDATE conversations SET last_message_id = NULL
		WHERE last_message_id = $1`, id); err != nil {
		return err
	}

	if _, err = tx.Exec(`
		UPDATE groups SET last_message_id = NULL
		WHERE last_message_id = $1`, id); err != nil {
		return err
	}

	if _, err = tx.Exec(`
		DELETE FROM message_attachments WHERE message_id = $1`, id); err != nil {
		return err
	}

	if _, err = tx.Exec(`
		DELETE FROM messages WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit()
}

const dmScopeFilter = `
	((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))`

func (s *Store) LatestInDM(userA, userB int64) (*models.Message, error) {
	return scanMessageRow(s.db.QueryRow(`
		SELECT `+messageColumns+` FROM messages
		WHERE `+dmScopeFilter+`
		ORDER BY created_at DESC, id DESC LIMIT 1`, userA, userB))
}

func (s *Store) LatestInGroup(groupID int64) (*models.Message, error) {
	return scanMessageRow(s.db.QueryRow(`
		SELECT `+messageColumns+` FROM messages
		WHERE group_id = $1
		ORDER BY created_at DESC, id DESC LIMIT 1`, groupID))
}

func (s *Store) MessagesBetween(userA, userB int64, limit int) ([]models.Message, error) {
	rows, err := s.db.Query(`
		SELECT `+messageColumns+` FROM messages
		WHERE `+dmScopeFilter+`
		ORDER BY created_at DESC, id DESC LIMIT $3`, userA, userB, limit)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

func (s *Store) MessagesInGroup(groupID int64, limit int) ([]models.Message, error) {
	rows, err := s.db.Query(`
		SELECT `+messageColumns+` FROM messages
		WHERE group_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2`, groupID, limit)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

// MessagesOlderThan filters on created_at strictly before the anchor so
// pages stay stable while new messages arrive at the head.
func (s *Store) MessagesOlderThan(anchor *models.Message, limit int) ([]models.Message, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if anchor.GroupID != nil {
		rows, err = s.db.Query(`
			SELECT `+messageColumns+` FROM messages
			WHERE group_id = $1 AND created_at < $2
			ORDER BY created_at DESC, id DESC LIMIT $3`,
			*anchor.GroupID, anchor.CreatedAt, limit)
	} else {
		rows, err = s.db.Query(`
			SELECT `+messageColumns+` FROM messages
			WHERE `+dmScopeFilter+` AND created_at < $3
			ORDER BY created_at DESC, id DESC LIMIT $4`,
			anchor.SenderID, *anchor.ReceiverID, anchor.CreatedAt, limit)
	}
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

func (s *Store) ListGroupMessageIDs(groupID int64) ([]int64, error) {
	rows, err := s.db.Query(`
		SELECT id FROM messages WHERE group_id = $1`, groupID)
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

// DeleteGroupMessages hard-deletes every message in the group without
// touching pointers; it only runs inside the purge where the group row
// itself is about to go.
func (s *Store) DeleteGroupMessages(groupID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.Exec(`
		DELETE FROM message_attachments
		WHERE message_id IN (SELECT id FROM messages WHERE group_id = $1)`, groupID); err != nil {
		return err
	}

	if _, err = tx.Exec(`
		DELETE FROM messages WHERE group_id = $1`, groupID); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) CreateAttachment(a *models.MessageAttachment) error {
	return s.db.QueryRow(`
		INSERT INTO message_attachments
			(message_id, name, mime, type, size, path, status, is_voice_message, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		a.MessageID, a.Name, a.Mime, a.Type, a.Size, a.Path,
		a.Status, a.IsVoiceMessage, a.UploadedBy, a.UploadedAt).
		Scan(&a.ID)
}

func (s *Store) GetAttachments(messageID int64) ([]models.MessageAttachment, error) {
	rows, err := s.db.Query(`
		SELECT id, message_id, name, mime, type, size, path, status, is_voice_message, uploaded_by, uploaded_at
		FROM message_attachments
		WHERE message_id = $1
		ORDER BY id`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []models.MessageAttachment
	for rows.Next() {
		var a models.MessageAttachment
		err := rows.Scan(&a.ID, &a.MessageID, &a.Name, &a.Mime, &a.Type, &a.Size,
			&a.Path, &a.Status, &a.IsVoiceMessage, &a.UploadedBy, &a.UploadedAt)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

func (s *Store) DeleteAttachments(messageID int64) error {
	_, err := s.db.Exec(`
		DELETE FROM message_attachments WHERE message_id = $1`, messageID)
	return err
}
