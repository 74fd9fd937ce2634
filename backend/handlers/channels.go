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

	apperrors "github.com/parleychat/parley/backend/errors"
	"github.com/parleychat/parley/backend/fanout"
	"github.com/parleychat/parley/backend/middleware"
	"github.com/parleychat/parley/backend/storage"
)

type ChannelHandler struct {
	store    storage.Store
	presence *fanout.Presence
}

func NewChannelHandler(store storage.Store, presence *fanout.Presence) *ChannelHandler {
	return &ChannelHandler{store: store, presence: presence}
}

// Authorize decides whether the caller may subscribe to a channel. DM
// channels require being one of the two participants, group channels an
// active membership or ownership, user channels identity, and the online
// channel any authenticated user.
func (h *ChannelHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}

	var req struct {
		ChannelName string `json:"channel_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelName == "" {
		writeError(w, apperrors.InvalidArg("channel_name is required"))
		return
	}

	allowed, err := h.authorized(userID, req.ChannelName)
	if err != nil {
		writeError(w, err)
		return
	}
	if !allowed {
		writeError(w, apperrors.ErrForbidden)
		return
	}

	if req.ChannelName == fanout.OnlineChannel {
		if err := h.presence.Join(userID); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"channel_name": req.ChannelName,
		"authorized":   true,
	})
}

func (h *ChannelHandler) authorized(userID int64, channel string) (bool, error) {
	parsed := fanout.ParseChannel(channel)
	switch parsed.Kind {
	case fanout.KindOnline:
		return true, nil
	case fanout.KindDM:
		return userID == parsed.UserA || userID == parsed.UserB, nil
	case fanout.KindGroup:
		group, err := h.store.GetGroup(parsed.GroupID)
		if err != nil {
			return false, err
		}
		if group == nil {
			return false, nil
		}
		// The owner may not hold a roster row after an ownership
		// transfer gone sideways; ownership alone is enough.
		if group.OwnerID == userID {
			return true, nil
		}
		membership, err := h.store.GetMembership(parsed.GroupID, userID)
		if err != nil {
			return false, err
		}
		return membership != nil, nil
	case fanout.KindUser:
		return userID == parsed.UserID, nil
	default:
		return false, nil
	}
}

// Disconnect removes the caller from the online set.
func (h *ChannelHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	if err := h.presence.Leave(userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Online lists the ids of currently connected users.
func (h *ChannelHandler) Online(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r); !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	ids, err := h.presence.Online()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"online": ids})
}
