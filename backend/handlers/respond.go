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
	"log"
	"net/http"

	apperrors "github.com/parleychat/parley/backend/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusFor(code apperrors.Code) int {
	switch code {
	case apperrors.CodeInvalidArgument, apperrors.CodeInvalidScope,
		apperrors.CodeAlreadyBlocked, apperrors.CodeNotBlocked,
		apperrors.CodeTargetIsOwner, apperrors.CodeSelfTransfer:
		return http.StatusBadRequest
	case apperrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.CodeForbidden, apperrors.CodeBlockedUser,
		apperrors.CodeOwnerCannotLeave, apperrors.CodeEditWindowExpired:
		return http.StatusForbidden
	case apperrors.CodeNotFound, apperrors.CodeNotAMember:
		return http.StatusNotFound
	case apperrors.CodeGroupDeleting:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		log.Printf("handlers: %v", err)
	}
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": apperrors.MessageOf(err),
		},
	})
}
