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
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	apperrors "github.com/parleychat/parley/backend/errors"
	"github.com/parleychat/parley/backend/fanout"
	"github.com/parleychat/parley/backend/middleware"
	"github.com/parleychat/parley/backend/storage"
)

const searchLimit = 20

type UserHandler struct {
	store  storage.Store
	events *fanout.Engine
}

func NewUserHandler(store storage.Store, events *fanout.Engine) *UserHandler {
	return &UserHandler{store: store, events: events}
}

func (h *UserHandler) targetFromPath(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, apperrors.InvalidArg("invalid user id")
	}
	user, err := h.store.GetUser(id)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, apperrors.NotFound("user not found")
	}
	return id, nil
}

// Block records a directional block. A pair with an existing block in
// either direction cannot be blocked again.
func (h *UserHandler) Block(w http.ResponseWriter, r *http.Request) {
	blockerID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	targetID, err := h.targetFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if targetID == blockerID {
		writeError(w, apperrors.ErrSelfBlock)
		return
	}

	blocked, err := h.store.IsBlockedEither(blockerID, targetID)
	if err != nil {
		writeError(w, err)
		return
	}
	if blocked {
		writeError(w, apperrors.ErrAlreadyBlocked)
		return
	}

	if err := h.store.CreateBlock(blockerID, targetID); err != nil {
		writeError(w, err)
		return
	}

	h.events.BlockChanged(blockerID, targetID, true)

	writeJSON(w, http.StatusOK, map[string]any{
		"blocked_id": targetID,
		"is_blocked": true,
	})
}

// Unblock removes the caller's own block. Only the original blocker can
// lift it.
func (h *UserHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	blockerID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	targetID, err := h.targetFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	removed, err := h.store.DeleteBlock(blockerID, targetID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeError(w, apperrors.ErrNotBlocked)
		return
	}

	h.events.BlockChanged(blockerID, targetID, false)

	writeJSON(w, http.StatusOK, map[string]any{
		"blocked_id": targetID,
		"is_blocked": false,
	})
}

// Search finds users by name or email substring.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusOK, map[string]any{"users": []any{}})
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

	results, err := h.store.SearchUsers(viewerID, viewer.IsAdmin, query, searchLimit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": results})
}
