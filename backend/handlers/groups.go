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

package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	apperrors "github.com/parleychat/parley/backend/errors"
	"github.com/parleychat/parley/backend/fanout"
	"github.com/parleychat/parley/backend/jobs"
	"github.com/parleychat/parley/backend/middleware"
	"github.com/parleychat/parley/backend/models"
	"github.com/parleychat/parley/backend/storage"
)

type GroupHandler struct {
	store    storage.Store
	blobs    storage.BlobStore
	events   *fanout.Engine
	enqueuer jobs.Enqueuer
}

func NewGroupHandler(store storage.Store, blobs storage.BlobStore, events *fanout.Engine, enqueuer jobs.Enqueuer) *GroupHandler {
	return &GroupHandler{
		store:    store,
		blobs:    blobs,
		events:   events,
		enqueuer: enqueuer,
	}
}

func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// loadGroup fetches the group, 404ing on both missing ids and rows.
func (h *GroupHandler) loadGroup(r *http.Request) (*models.Group, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return nil, apperrors.InvalidArg("invalid group id")
	}
	group, err := h.store.GetGroup(id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, apperrors.NotFound("group not found")
	}
	return group, nil
}

// requireRole passes the owner unconditionally, otherwise requires an
// active membership holding one of the listed roles.
func (h *GroupHandler) requireRole(group *models.Group, userID int64, roles ...string) error {
	if group.OwnerID == userID {
		return nil
	}
	membership, err := h.store.GetMembership(group.ID, userID)
	if err != nil {
		return err
	}
	if membership == nil {
		return apperrors.ErrNotAMember
	}
	for _, role := range roles {
		if membership.Role == role {
			return nil
		}
	}
	return apperrors.ErrForbidden
}

// Create makes a new group with the caller as owner and optionally invites
// an initial member list.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}

	var req struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		MemberIDs   []int64 `json:"member_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidArg("invalid request body"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, apperrors.InvalidArg("group name is required"))
		return
	}

	group := &models.Group{
		Name:        req.Name,
		Slug:        slugify(req.Name),
		Description: req.Description,
		OwnerID:     ownerID,
	}
	if err := h.store.CreateGroup(group); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "failed to create group", err))
		return
	}

	invites := h.addMembers(group, ownerID, req.MemberIDs)

	memberIDs, err := h.store.ListMemberIDs(group.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.events.GroupCreated(group.ID, memberIDs)

	writeJSON(w, http.StatusCreated, map[string]any{
		"group":   group,
		"invites": invites,
	})
}

// addMembers buckets each candidate instead of failing the whole call.
// Blocked pairs and existing members are skipped, not errors.
func (h *GroupHandler) addMembers(group *models.Group, inviterID int64, targetIDs []int64) models.InviteResult {
	result := models.InviteResult{
		Added:          []int64{},
		AlreadyMembers: []int64{},
		Blocked:        []int64{},
	}

	for _, targetID := range targetIDs {
		if targetID == inviterID {
			continue
		}
		user, err := h.store.GetUser(targetID)
		if err != nil || user == nil {
			continue
		}

		blocked, err := h.store.IsBlockedEither(inviterID, targetID)
		if err != nil {
			continue
		}
		if blocked {
			result.Blocked = append(result.Blocked, targetID)
			continue
		}

		membership, err := h.store.GetMembership(group.ID, targetID)
		if err != nil {
			continue
		}
		if membership != nil {
			result.AlreadyMembers = append(result.AlreadyMembers, targetID)
			continue
		}

		if err := h.store.AddMember(group.ID, targetID, models.RoleMember, inviterID); err != nil {
			continue
		}
		result.Added = append(result.Added, targetID)
	}

	return result
}

// Update changes the group's name and description.
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	group, err := h.loadGroup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if group.IsDeleting {
		writeError(w, apperrors.ErrGroupDeleting)
		return
	}
	if err := h.requireRole(group, userID, models.RoleAdmin, models.RoleModerator); err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidArg("invalid request body"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, apperrors.InvalidArg("group name is required"))
		return
	}

	if err := h.store.UpdateGroupInfo(group.ID, req.Name, req.Description, group.Avatar); err != nil {
		writeError(w, err)
		return
	}
	group.Name = req.Name
	group.Description = req.Description

	h.events.GroupUpdated(group.ID, map[string]any{
		"name":        group.Name,
		"description": group.Description,
	})

	writeJSON(w, http.StatusOK, group)
}

// UploadAvatar replaces the group avatar.
func (h *GroupHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	group, err := h.loadGroup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if group.IsDeleting {
		writeError(w, apperrors.ErrGroupDeleting)
		return
	}
	if err := h.requireRole(group, userID, models.RoleAdmin, models.RoleModerator); err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperrors.InvalidArg("malformed multipart body"))
		return
	}
	f, fh, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, apperrors.InvalidArg("avatar file is required"))
		return
	}
	defer f.Close()

	if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
		writeError(w, apperrors.InvalidArg("avatar must be an image"))
		return
	}

	filename := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
	path, err := h.blobs.Store(f, "group-avatars", filename)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "failed to store avatar", err))
		return
	}

	old := group.Avatar
	if err := h.store.SetGroupAvatar(group.ID, &path); err != nil {
		writeError(w, err)
		return
	}
	if old != nil {
		h.blobs.Delete(*old)
	}
	group.Avatar = &path

	h.events.GroupUpdated(group.ID, map[string]any{
		"avatar_url": h.blobs.URLFor(path),
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"avatar_url": h.blobs.URLFor(path),
	})
}

// RemoveAvatar deletes the group avatar blob and clears the column.
func (h *GroupHandler) RemoveAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	group, err := h.loadGroup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.requireRole(group, userID, models.RoleAdmin, models.RoleModerator); err != nil {
		writeError(w, err)
		return
	}

	if group.Avatar != nil {
		if err := h.blobs.Delete(*group.Avatar); err != nil {
			writeError(w, apperrors.Wrap(apperrors.CodeInternal, "failed to delete avatar", err))
			return
		}
		if err := h.store.SetGroupAvatar(group.ID, nil); err != nil {
			writeError(w, err)
			return
		}
		group.Avatar = nil

		h.events.GroupUpdated(group.ID, map[string]any{
			"avatar_url": nil,
		})
	}

	w.WriteHeader(http.StatusNoContent)
}

// Destroy marks the group for deletion and hands the teardown to the purge
// worker. The group row survives until the purge finishes so re-delivery
// and write rejection both keep working.
func (h *GroupHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	group, err := h.loadGroup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if group.OwnerID != userID {
		writeError(w, apperrors.ErrForbidden)
		return
	}
	if group.IsDeleting {
		writeError(w, apperrors.ErrGroupDeleting)
		return
	}

	if err := h.store.MarkGroupDeleting(group.ID); err != nil {
		writeError(w, err)
		return
	}

	h.events.GroupDeleting(group.ID)

	if err := h.enqueuer.EnqueueGroupPurge(group.ID); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "failed to schedule group deletion", err))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"group_id": group.ID,
		"status":   "deleting",
	})
}

// Invite adds users to the group, reporting per-target outcomes.
func (h *GroupHandler) Invite(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	group, err := h.loadGroup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if group.IsDeleting {
		writeError(w, apperrors.ErrGroupDeleting)
		return
	}
	if err := h.requireRole(group, userID, models.RoleAdmin, models.RoleModerator); err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		MemberIDs []int64 `json:"member_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidArg("invalid request body"))
		return
	}
	if len(req.MemberIDs) == 0 {
		writeError(w, apperrors.InvalidArg("member_ids is required"))
		return
	}

	result := h.addMembers(group, userID, req.MemberIDs)

	for _, id := range result.Added {
		h.events.GroupCreated(group.ID, []int64{id})
	}
	h.events.GroupUpdated(group.ID, map[string]any{
		"members_added": result.Added,
	})

	writeJSON(w, http.StatusOK, result)
}

// UpdateMemberRole changes a member's role. Owner only, and the owner
// themselves is never a target.
func (h *GroupHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	group, err := h.loadGroup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if group.OwnerID != userID {
		writeError(w, apperrors.ErrForbidden)
		return
	}

	var req struct {
		UserID int64  `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidArg("invalid request body"))
		return
	}
	if !models.ValidRole(req.Role) {
		writeError(w, apperrors.InvalidArg("invalid role"))
		return
	}
	if req.UserID == group.OwnerID {
		writeError(w, apperrors.ErrTargetIsOwner)
		return
	}

	membership, err := h.store.GetMembership(group.ID, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if membership == nil {
		writeError(w, apperrors.ErrNotAMember)
		return
	}

	if err := h.store.UpdateMemberRole(group.ID, req.UserID, req.Role); err != nil {
		writeError(w, err)
		return
	}

	h.events.GroupUpdated(group.ID, map[string]any{
		"user_id": req.UserID,
		"role":    req.Role,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": req.UserID,
		"role":    req.Role,
	})
}

// RemoveMember kicks a member out of the group.
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	group, err := h.loadGroup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.requireRole(group, userID, models.RoleAdmin, models.RoleModerator); err != nil {
		writeError(w, err)
		return
	}

	targetID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		writeError(w, apperrors.InvalidArg("invalid user id"))
		return
	}
	if targetID == group.OwnerID {
		writeError(w, apperrors.ErrTargetIsOwner)
		return
	}

	membership, err := h.store.GetMembership(group.ID, targetID)
	if err != nil {
		writeError(w, err)
		return
	}
	if membership == nil {
		writeError(w, apperrors.ErrNotAMember)
		return
	}

	if err := h.store.DeactivateMember(group.ID, targetID); err != nil {
		writeError(w, err)
		return
	}

	h.events.GroupUpdated(group.ID, map[string]any{
		"member_removed": targetID,
	})

	w.WriteHeader(http.StatusNoContent)
}

// TransferOwnership hands the group to another active member.
func (h *GroupHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	group, err := h.loadGroup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if group.OwnerID != userID {
		writeError(w, apperrors.ErrForbidden)
		return
	}

	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidArg("invalid request body"))
		return
	}
	if req.UserID == userID {
		writeError(w, apperrors.ErrSelfTransfer)
		return
	}

	membership, err := h.store.GetMembership(group.ID, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if membership == nil {
		writeError(w, apperrors.ErrNotAMember)
		return
	}

	if err := h.store.TransferOwnership(group.ID, req.UserID); err != nil {
		writeError(w, err)
		return
	}

	h.events.GroupUpdated(group.ID, map[string]any{
		"owner_id": req.UserID,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"group_id": group.ID,
		"owner_id": req.UserID,
	})
}

// Leave removes the caller's own membership. The owner must transfer
// ownership first.
func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	group, err := h.loadGroup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if group.OwnerID == userID {
		writeError(w, apperrors.ErrOwnerCannotLeave)
		return
	}

	membership, err := h.store.GetMembership(group.ID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if membership == nil {
		writeError(w, apperrors.ErrNotAMember)
		return
	}

	if err := h.store.DeactivateMember(group.ID, userID); err != nil {
		writeError(w, err)
		return
	}

	h.events.GroupUpdated(group.ID, map[string]any{
		"member_left": userID,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Members lists the active roster.
func (h *GroupHandler) Members(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	group, err := h.loadGroup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.requireRole(group, userID, models.RoleAdmin, models.RoleModerator, models.RoleMember); err != nil {
		writeError(w, err)
		return
	}

	members, err := h.store.ListMembers(group.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}
