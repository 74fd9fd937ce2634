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

// Package memory is an in-memory Store used by tests and local tooling.
// It mirrors the row-level semantics of the postgres store: canonical
// conversation pairs, active-only membership lookups, and nil results for
// missing rows.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/parleychat/parley/backend/models"
)

type Store struct {
	mu sync.Mutex

	users         map[int64]*models.User
	conversations map[[2]int64]*models.Conversation
	messages      map[int64]*models.Message
	attachments   map[int64][]models.MessageAttachment
	groups        map[int64]*models.Group
	memberships   map[int64]map[int64]*models.GroupMembership
	blocks        map[[2]int64]bool

	nextConversationID int64
	nextMessageID      int64
	nextGroupID        int64
	nextAttachmentID   int64
}

func NewStore() *Store {
	return &Store{
		users:         make(map[int64]*models.User),
		conversations: make(map[[2]int64]*models.Conversation),
		messages:      make(map[int64]*models.Message),
		attachments:   make(map[int64][]models.MessageAttachment),
		groups:        make(map[int64]*models.Group),
		memberships:   make(map[int64]map[int64]*models.GroupMembership),
		blocks:        make(map[[2]int64]bool),
	}
}

// AddUser seeds an account.
func (s *Store) AddUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	copied := *u
	s.users[u.ID] = &copied
}

func (s *Store) GetUser(id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *Store) SearchUsers(viewerID int64, viewerIsAdmin bool, query string, limit int) ([]models.UserSearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(query)
	var results []models.UserSearchResult
	for _, u := range s.users {
		if u.ID == viewerID {
			continue
		}
		if !viewerIsAdmin && u.Suspended() {
			continue
		}
		if !strings.Contains(strings.ToLower(u.Name), q) &&
			!strings.Contains(strings.ToLower(u.Email), q) {
			continue
		}
		results = append(results, models.UserSearchResult{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			AvatarURL: u.Avatar,
			IBlocked:  s.blocks[[2]int64{viewerID, u.ID}],
			BlockedMe: s.blocks[[2]int64{u.ID, viewerID}],
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Store) ListConversationPartners(viewerID int64, viewerIsAdmin bool) ([]models.ConversationEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.ConversationEntry
	for pair, c := range s.conversations {
		var otherID int64
		switch viewerID {
		case pair[0]:
			otherID = pair[1]
		case pair[1]:
			otherID = pair[0]
		default:
			continue
		}
		other, ok := s.users[otherID]
		if !ok {
			continue
		}
		if !viewerIsAdmin && other.Suspended() {
			continue
		}

		e := models.ConversationEntry{
			ID:        other.ID,
			Name:      other.Name,
			Email:     other.Email,
			AvatarURL: other.Avatar,
			IsUser:    true,
			IBlocked:  s.blocks[[2]int64{viewerID, otherID}],
			BlockedMe: s.blocks[[2]int64{otherID, viewerID}],
			BlockedAt: other.BlockedAt,
			BannedAt:  other.BannedAt,
			CreatedAt: other.CreatedAt,
		}
		if c.LastMessageID != nil {
			if m, ok := s.messages[*c.LastMessageID]; ok {
				body := m.Body
				created := m.CreatedAt
				e.LastMessage = &body
				e.LastMessageDate = &created
			}
		}
		entries = append(entries, e)
	}

	return entries, nil
}

func (s *Store) FindConversation(userA, userB int64) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lo, hi := models.CanonicalPair(userA, userB)
	c, ok := s.conversations[[2]int64{lo, hi}]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (s *Store) FindOrCreateConversation(userA, userB int64) (*models.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lo, hi := models.CanonicalPair(userA, userB)
	key := [2]int64{lo, hi}
	if c, ok := s.conversations[key]; ok {
		copied := *c
		return &copied, false, nil
	}
	s.nextConversationID++
	c := &models.Conversation{
		ID:        s.nextConversationID,
		UserID1:   lo,
		UserID2:   hi,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.conversations[key] = c
	copied := *c
	return &copied, true, nil
}

func (s *Store) SetLastMessage(userA, userB, messageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lo, hi := models.CanonicalPair(userA, userB)
	key := [2]int64{lo, hi}
	c, ok := s.conversations[key]
	if !ok {
		s.nextConversationID++
		c = &models.Conversation{
			ID:        s.nextConversationID,
			UserID1:   lo,
			UserID2:   hi,
			CreatedAt: time.Now(),
		}
		s.conversations[key] = c
	}
	id := messageID
	c.LastMessageID = &id
	c.UpdatedAt = time.Now()
	return nil
}

func (s *Store) DeleteConversation(userA, userB int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lo, hi := models.CanonicalPair(userA, userB)
	key := [2]int64{lo, hi}
	if _, ok := s.conversations[key]; !ok {
		return false, nil
	}
	delete(s.conversations, key)
	return true, nil
}

func (s *Store) CreateMessage(m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMessageID++
	m.ID = s.nextMessageID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	copied := *m
	copied.Attachments = nil
	s.messages[m.ID] = &copied
	return nil
}

func (s *Store) GetMessage(id int64) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (s *Store) UpdateMessageBody(id int64, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.messages[id]; ok {
		m.Body = body
		m.UpdatedAt = time.Now()
	}
	return nil
}

func (s *Store) DeleteMessage(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.LastMessageID != nil && *c.LastMessageID == id {
			c.LastMessageID = nil
		}
	}
	for _, g := range s.groups {
		if g.LastMessageID != nil && *g.LastMessageID == id {
			g.LastMessageID = nil
		}
	}
	delete(s.attachments, id)
	delete(s.messages, id)
	return nil
}

// newestFirst sorts by created_at then id descending, the same total order
// the postgres queries use.
func newestFirst(messages []models.Message) {
	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.After(messages[j].CreatedAt)
		}
		return messages[i].ID > messages[j].ID
	})
}

func inDM(m *models.Message, userA, userB int64) bool {
	if m.ReceiverID == nil {
		return false
	}
	return (m.SenderID == userA && *m.ReceiverID == userB) ||
		(m.SenderID == userB && *m.ReceiverID == userA)
}

func (s *Store) dmMessages(userA, userB int64) []models.Message {
	var out []models.Message
	for _, m := range s.messages {
		if inDM(m, userA, userB) {
			out = append(out, *m)
		}
	}
	newestFirst(out)
	return out
}

func (s *Store) groupMessages(groupID int64) []models.Message {
	var out []models.Message
	for _, m := range s.messages {
		if m.GroupID != nil && *m.GroupID == groupID {
			out = append(out, *m)
		}
	}
	newestFirst(out)
	return out
}

func (s *Store) LatestInDM(userA, userB int64) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.dmMessages(userA, userB)
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[0], nil
}

func (s *Store) LatestInGroup(groupID int64) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.groupMessages(groupID)
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[0], nil
}

func clip(messages []models.Message, limit int) []models.Message {
	if len(messages) > limit {
		return messages[:limit]
	}
	return messages
}

func (s *Store) MessagesBetween(userA, userB int64, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clip(s.dmMessages(userA, userB), limit), nil
}

func (s *Store) MessagesInGroup(groupID int64, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clip(s.groupMessages(groupID), limit), nil
}

func (s *Store) MessagesOlderThan(anchor *models.Message, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var scope []models.Message
	if anchor.GroupID != nil {
		scope = s.groupMessages(*anchor.GroupID)
	} else {
		scope = s.dmMessages(anchor.SenderID, *anchor.ReceiverID)
	}
	var out []models.Message
	for _, m := range scope {
		if m.CreatedAt.Before(anchor.CreatedAt) {
			out = append(out, m)
		}
	}
	return clip(out, limit), nil
}

func (s *Store) ListGroupMessageIDs(groupID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id, m := range s.messages {
		if m.GroupID != nil && *m.GroupID == groupID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) DeleteGroupMessages(groupID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.messages {
		if m.GroupID != nil && *m.GroupID == groupID {
			delete(s.attachments, id)
			delete(s.messages, id)
		}
	}
	return nil
}

func (s *Store) CreateAttachment(a *models.MessageAttachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAttachmentID++
	a.ID = s.nextAttachmentID
	s.attachments[a.MessageID] = append(s.attachments[a.MessageID], *a)
	return nil
}

func (s *Store) GetAttachments(messageID int64) ([]models.MessageAttachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MessageAttachment(nil), s.attachments[messageID]...), nil
}

func (s *Store) DeleteAttachments(messageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attachments, messageID)
	return nil
}

func (s *Store) CreateGroup(g *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGroupID++
	g.ID = s.nextGroupID
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	copied := *g
	s.groups[g.ID] = &copied
	s.memberships[g.ID] = map[int64]*models.GroupMembership{
		g.OwnerID: {
			GroupID:  g.ID,
			UserID:   g.OwnerID,
			Role:     models.RoleAdmin,
			IsActive: true,
			JoinedAt: time.Now(),
		},
	}
	return nil
}

func (s *Store) GetGroup(id int64) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, nil
	}
	copied := *g
	return &copied, nil
}

func (s *Store) UpdateGroupInfo(id int64, name, description string, avatar *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[id]; ok {
		g.Name = name
		g.Description = description
		g.Avatar = avatar
		g.UpdatedAt = time.Now()
	}
	return nil
}

func (s *Store) SetGroupAvatar(id int64, avatar *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[id]; ok {
		g.Avatar = avatar
		g.UpdatedAt = time.Now()
	}
	return nil
}

func (s *Store) SetGroupLastMessage(groupID, messageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[groupID]; ok {
		id := messageID
		g.LastMessageID = &id
		g.UpdatedAt = time.Now()
	}
	return nil
}

func (s *Store) MarkGroupDeleting(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[id]; ok {
		g.IsDeleting = true
		g.UpdatedAt = time.Now()
	}
	return nil
}

func (s *Store) DeleteGroup(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groups, id)
	return nil
}

func (s *Store) ListGroupsForUser(userID int64) ([]models.ConversationEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []models.ConversationEntry
	for _, g := range s.groups {
		member := false
		if m, ok := s.memberships[g.ID][userID]; ok && m.IsActive {
			member = true
		}
		if !member && g.OwnerID != userID {
			continue
		}
		e := models.ConversationEntry{
			ID:        g.ID,
			Name:      g.Name,
			AvatarURL: g.Avatar,
			IsGroup:   true,
			OwnerID:   g.OwnerID,
			CreatedAt: g.CreatedAt,
		}
		if g.LastMessageID != nil {
			if m, ok := s.messages[*g.LastMessageID]; ok {
				body := m.Body
				created := m.CreatedAt
				e.LastMessage = &body
				e.LastMessageDate = &created
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Store) GetMembership(groupID, userID int64) (*models.GroupMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[groupID][userID]
	if !ok || !m.IsActive {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (s *Store) ListMembers(groupID int64) ([]models.GroupMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var members []models.GroupMember
	for _, m := range s.memberships[groupID] {
		if !m.IsActive {
			continue
		}
		member := models.GroupMember{
			UserID:   m.UserID,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		}
		if u, ok := s.users[m.UserID]; ok {
			member.Name = u.Name
			member.Email = u.Email
		}
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}

func (s *Store) ListMemberIDs(groupID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, m := range s.memberships[groupID] {
		if m.IsActive {
			ids = append(ids, m.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) AddMember(groupID, userID int64, role string, invitedBy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memberships[groupID] == nil {
		s.memberships[groupID] = make(map[int64]*models.GroupMembership)
	}
	inviter := invitedBy
	s.memberships[groupID][userID] = &models.GroupMembership{
		GroupID:   groupID,
		UserID:    userID,
		Role:      role,
		IsActive:  true,
		JoinedAt:  time.Now(),
		InvitedBy: &inviter,
	}
	return nil
}

func (s *Store) UpdateMemberRole(groupID, userID int64, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.memberships[groupID][userID]; ok && m.IsActive {
		m.Role = role
	}
	return nil
}

func (s *Store) DeactivateMember(groupID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.memberships[groupID][userID]; ok {
		m.IsActive = false
		now := time.Now()
		m.LeftAt = &now
	}
	return nil
}

func (s *Store) DetachAllMembers(groupID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memberships, groupID)
	return nil
}

func (s *Store) TransferOwnership(groupID, newOwnerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil
	}
	oldOwnerID := g.OwnerID
	g.OwnerID = newOwnerID
	g.UpdatedAt = time.Now()

	if s.memberships[groupID] == nil {
		s.memberships[groupID] = make(map[int64]*models.GroupMembership)
	}
	if m, ok := s.memberships[groupID][newOwnerID]; ok {
		m.Role = models.RoleAdmin
	}
	if m, ok := s.memberships[groupID][oldOwnerID]; ok {
		m.Role = models.RoleAdmin
		m.IsActive = true
		m.LeftAt = nil
	} else {
		s.memberships[groupID][oldOwnerID] = &models.GroupMembership{
			GroupID:  groupID,
			UserID:   oldOwnerID,
			Role:     models.RoleAdmin,
			IsActive: true,
			JoinedAt: time.Now(),
		}
	}
	return nil
}

func (s *Store) CreateBlock(blockerID, blockedID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[[2]int64{blockerID, blockedID}] = true
	return nil
}

func (s *Store) DeleteBlock(blockerID, blockedID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]int64{blockerID, blockedID}
	if !s.blocks[key] {
		return false, nil
	}
	delete(s.blocks, key)
	return true, nil
}

func (s *Store) HasBlocked(blockerID, blockedID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocks[[2]int64{blockerID, blockedID}], nil
}

func (s *Store) IsBlockedEither(userA, userB int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocks[[2]int64{userA, userB}] || s.blocks[[2]int64{userB, userA}], nil
}
