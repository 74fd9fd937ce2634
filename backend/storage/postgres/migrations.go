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

func (s *Store) Migrate() error {
	migrations := []string{
		// Users table
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			avatar VARCHAR(255),
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			blocked_at TIMESTAMP,
			banned_at TIMESTAMP,
			ban_reason VARCHAR(255),
			last_login_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Groups table. last_message_id is a plain column; the delete path
		// clears and repairs it explicitly.
		`CREATE TABLE IF NOT EXISTS groups (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			slug VARCHAR(255) NOT NULL DEFAULT '',
			description VARCHAR(500) NOT NULL DEFAULT '',
			avatar VARCHAR(255),
			owner_id BIGINT NOT NULL REFERENCES users(id),
			last_message_id BIGINT,
			is_deleting BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// DM conversations, one row per unordered user pair. The ordered
		// CHECK plus the UNIQUE constraint make the first-message upsert
		// race-safe.
		`CREATE TABLE IF NOT EXISTS conversations (
			id BIGSERIAL PRIMARY KEY,
			user_id1 BIGINT NOT NULL REFERENCES users(id),
			user_id2 BIGINT NOT NULL REFERENCES users(id),
			last_message_id BIGINT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT unique_conversation_pair UNIQUE (user_id1, user_id2),
			CONSTRAINT ordered_conversation_users CHECK (user_id1 < user_id2)
		)`,

		// Messages: exactly one of receiver_id / group_id is set.
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			sender_id BIGINT NOT NULL REFERENCES users(id),
			receiver_id BIGINT REFERENCES users(id),
			group_id BIGINT REFERENCES groups(id),
			message TEXT NOT NULL DEFAULT '',
			type VARCHAR(32) NOT NULL DEFAULT 'text',
			status VARCHAR(32) NOT NULL DEFAULT 'sent',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_scope CHECK (
				(receiver_id IS NOT NULL AND group_id IS NULL) OR
				(receiver_id IS NULL AND group_id IS NOT NULL)
			)
		)`,

		// Indexes for scope retrieval, newest first
		`CREATE INDEX IF NOT EXISTS idx_group_messages
		ON messages(group_id, created_at DESC)
		WHERE group_id IS NOT NULL`,

		`CREATE INDEX IF NOT EXISTS idx_dm_messages
		ON messages(sender_id, receiver_id, created_at DESC)
		WHERE receiver_id IS NOT NULL`,

		// Message attachments. All attachments of one message share one
		// directory in the blob store.
		`CREATE TABLE IF NOT EXISTS message_attachments (
			id BIGSERIAL PRIMARY KEY,
			message_id BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			mime VARCHAR(255) NOT NULL,
			type VARCHAR(32) NOT NULL,
			size BIGINT NOT NULL DEFAULT 0,
			path VARCHAR(512) NOT NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'uploaded',
			is_voice_message BOOLEAN NOT NULL DEFAULT FALSE,
			uploaded_by BIGINT REFERENCES users(id),
			uploaded_at TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_message_attachments
		ON message_attachments(message_id)`,

		// Group roster
		`CREATE TABLE IF NOT EXISTS group_users (
			group_id BIGINT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role VARCHAR(32) NOT NULL DEFAULT 'member',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			joined_at TIMESTAMP,
			left_at TIMESTAMP,
			invited_by BIGINT REFERENCES users(id),
			PRIMARY KEY (group_id, user_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_user_groups
		ON group_users(user_id) WHERE is_active = TRUE`,

		// Pairwise blocks, directional rows
		`CREATE TABLE IF NOT EXISTS user_blocks (
			blocker_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			blocked_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (blocker_id, blocked_id)
		)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
