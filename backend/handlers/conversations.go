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
	"strconv"

	"github.com/gorilla/mux"

	apperrors "github.com/parleychat/parley/backend/errors"
	"github.com/parleychat/parley/backend/middleware"
	"github.com/parleychat/parley/backend/models"
	"github.com/parleychat/parley/backend/storage"
)

type ConversationHandler struct {
	store storage.Store
	blobs storage.BlobStore
}

func NewConversationHandler(store storage.Store, blobs storage.BlobStore) *ConversationHandler {
	return &ConversationHandler{store: store, blobs: blobs}
}

// List returns the caller's merged DM and group conversation list, sorted
// with blocked and suspended entries at the bottom.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}

	viewer, err := h.store.GetUser(viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if viewer == nil {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}

	partners, err := h.store.ListConversationPartners(viewerID, viewer.IsAdmin)
	if err != nil {
		writeError(w, err)
		return
	}
	groups, err := h.store.ListGroupsForUser(viewerID)
	if err != nil {
		writeError(w, err)
		return
	}

	merged := models.MergeConversationEntries(partners, groups)
	for i := range merged {
		if merged[i].AvatarURL != nil {
			url := h.blobs.URLFor(*merged[i].AvatarURL)
			merged[i].AvatarURL = &url
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"conversations": merged})
}

// FindOrCreate resolves a DM conversation with a user looked up by email,
// creating the conversation row if the pair never talked.
func (h *ConversationHandler) FindOrCreate(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, apperrors.InvalidArg("email is required"))
		return
	}

	other, err := h.store.GetUserByEmail(req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	if other == nil {
		writeError(w, apperrors.NotFound("user not found"))
		return
	}
	if other.ID == viewerID {
		writeError(w, apperrors.InvalidArg("cannot start a conversation with yourself"))
		return
	}

	blocked, err := h.store.IsBlockedEither(viewerID, other.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if blocked {
		writeError(w, apperrors.ErrBlockedUser)
		return
	}

	conv, created, err := h.store.FindOrCreateConversation(viewerID, other.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation":     conv,
		"has_conversation": !created,
		"user": map[string]any{
			"id":    other.ID,
			"name":  other.Name,
			"email": other.Email,
		},
	})
}

// Delete removes the conversation row with a user the caller has blocked.
// Blocking first is the gate: an unblocked conversation cannot be removed.
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	otherID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, apperrors.InvalidArg("invalid user id"))
		return
	}

	hasBlocked, err := h.store.HasBlocked(viewerID, otherID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !hasBlocked {
		writeError(w, apperrors.ErrForbidden)
		return
	}

	removed, err := h.store.DeleteConversation(viewerID, otherID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeError(w, apperrors.NotFound("conversation not found"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
