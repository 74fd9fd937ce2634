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
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	apperrors "github.com/parleychat/parley/backend/errors"
	"github.com/parleychat/parley/backend/fanout"
	"github.com/parleychat/parley/backend/middleware"
	"github.com/parleychat/parley/backend/models"
	"github.com/parleychat/parley/backend/storage"
)

const (
	maxMessageLength = 9999
	maxAttachments   = 10
	maxUploadBytes   = 64 << 20

	dmPageSize    = 10
	groupPageSize = 50
	olderPageSize = 10
)

type MessageHandler struct {
	store  storage.Store
	blobs  storage.BlobStore
	events *fanout.Engine
	now    func() time.Time
}

func NewMessageHandler(store storage.Store, blobs storage.BlobStore, events *fanout.Engine) *MessageHandler {
	return &MessageHandler{
		store:  store,
		blobs:  blobs,
		events: events,
		now:    time.Now,
	}
}

type sendMessageRequest struct {
	ReceiverID     *int64 `json:"receiver_id"`
	GroupID        *int64 `json:"group_id"`
	Body           string `json:"message"`
	IsVoiceMessage bool   `json:"is_voice_message"`

	files []*multipart.FileHeader
}

func parseSendRequest(r *http.Request) (*sendMessageRequest, error) {
	var req sendMessageRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, apperrors.InvalidArg("malformed multipart body")
		}
		if v := r.FormValue("receiver_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, apperrors.InvalidArg("invalid receiver_id")
			}
			req.ReceiverID = &id
		}
		if v := r.FormValue("group_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, apperrors.InvalidArg("invalid group_id")
			}
			req.GroupID = &id
		}
		req.Body = r.FormValue("message")
		req.IsVoiceMessage = r.FormValue("is_voice_message") == "true"
		if r.MultipartForm != nil {
			req.files = r.MultipartForm.File["attachments"]
		}
		return &req, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apperrors.InvalidArg("invalid request body")
	}
	return &req, nil
}

// Send creates a message in a DM or group scope, stores any attachments,
// advances the scope's last-message pointer and fans the event out.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	senderID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}

	req, err := parseSendRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if (req.ReceiverID == nil) == (req.GroupID == nil) {
		writeError(w, apperrors.ErrInvalidScope)
		return
	}
	if len(req.Body) > maxMessageLength {
		writeError(w, apperrors.InvalidArg("message is too long"))
		return
	}
	if len(req.files) > maxAttachments {
		writeError(w, apperrors.InvalidArg("too many attachments"))
		return
	}
	if req.Body == "" && len(req.files) == 0 {
		writeError(w, apperrors.InvalidArg("message is empty"))
		return
	}

	if req.ReceiverID != nil {
		if err := h.checkDMScope(senderID, *req.ReceiverID); err != nil {
			writeError(w, err)
			return
		}
	} else {
		if err := h.checkGroupScope(senderID, *req.GroupID); err != nil {
			writeError(w, err)
			return
		}
	}

	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		GroupID:    req.GroupID,
		Body:       req.Body,
		Type:       "text",
		Status:     "sent",
	}
	if len(req.files) > 0 {
		msg.Type = "attachment"
	}
	if err := h.store.CreateMessage(msg); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "failed to save message", err))
		return
	}

	if err := h.storeAttachments(msg, req.files, req.IsVoiceMessage); err != nil {
		// The message row already exists; report the attachment failure
		// without pretending the send failed entirely.
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "message saved but attachment upload failed", err))
		return
	}

	if msg.GroupID != nil {
		err = h.store.SetGroupLastMessage(*msg.GroupID, msg.ID)
	} else {
		err = h.store.SetLastMessage(senderID, *msg.ReceiverID, msg.ID)
	}
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "failed to update conversation", err))
		return
	}

	h.events.MessageCreated(msg)

	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) checkDMScope(senderID, receiverID int64) error {
	if receiverID == senderID {
		return apperrors.InvalidArg("cannot message yourself")
	}
	receiver, err := h.store.GetUser(receiverID)
	if err != nil {
		return err
	}
	if receiver == nil {
		return apperrors.NotFound("user not found")
	}
	blocked, err := h.store.IsBlockedEither(senderID, receiverID)
	if err != nil {
		return err
	}
	if blocked {
		return apperrors.ErrBlockedUser
	}
	return nil
}

func (h *MessageHandler) checkGroupScope(senderID, groupID int64) error {
	group, err := h.store.GetGroup(groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return apperrors.NotFound("group not found")
	}
	if group.IsDeleting {
		return apperrors.ErrGroupDeleting
	}
	if group.OwnerID == senderID {
		return nil
	}
	membership, err := h.store.GetMembership(groupID, senderID)
	if err != nil {
		return err
	}
	if membership == nil {
		return apperrors.ErrNotAMember
	}
	return nil
}

// storeAttachments writes every file into one fresh directory for the
// message, then records the attachment rows.
func (h *MessageHandler) storeAttachments(msg *models.Message, files []*multipart.FileHeader, isVoice bool) error {
	if len(files) == 0 {
		return nil
	}

	dir := filepath.Join("attachments", uuid.NewString())
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return err
		}

		mime := fh.Header.Get("Content-Type")
		filename := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
		path, err := h.blobs.Store(f, dir, filename)
		f.Close()
		if err != nil {
			return err
		}

		attachment := &models.MessageAttachment{
			MessageID:      msg.ID,
			Name:           fh.Filename,
			Mime:           mime,
			Type:           models.AttachmentTypeFromMime(mime),
			Size:           fh.Size,
			Path:           path,
			Status:         "uploaded",
			IsVoiceMessage: isVoice && models.AttachmentTypeFromMime(mime) == models.AttachmentAudio,
			UploadedBy:     msg.SenderID,
			UploadedAt:     h.now(),
		}
		if err := h.store.CreateAttachment(attachment); err != nil {
			return err
		}
		attachment.URL = h.blobs.URLFor(path)
		msg.Attachments = append(msg.Attachments, *attachment)
	}

	return nil
}

func (h *MessageHandler) attachURLs(messages []models.Message) error {
	for i := range messages {
		if messages[i].Type != "attachment" {
			continue
		}
		attachments, err := h.store.GetAttachments(messages[i].ID)
		if err != nil {
			return err
		}
		for j := range attachments {
			attachments[j].URL = h.blobs.URLFor(attachments[j].Path)
		}
		messages[i].Attachments = attachments
	}
	return nil
}

// ByUser returns the newest page of the DM with the given user.
func (h *MessageHandler) ByUser(w http.ResponseWriter, r *http.Request) {
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

	messages, err := h.store.MessagesBetween(viewerID, otherID, dmPageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.attachURLs(messages); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// ByGroup returns the newest page of a group's messages to active members
// and the owner.
func (h *MessageHandler) ByGroup(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	groupID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, apperrors.InvalidArg("invalid group id"))
		return
	}

	group, err := h.store.GetGroup(groupID)
	if err != nil {
		writeError(w, err)
		return
	}
	if group == nil {
		writeError(w, apperrors.NotFound("group not found"))
		return
	}
	if group.OwnerID != viewerID {
		membership, err := h.store.GetMembership(groupID, viewerID)
		if err != nil {
			writeError(w, err)
			return
		}
		if membership == nil {
			writeError(w, apperrors.ErrNotAMember)
			return
		}
	}

	messages, err := h.store.MessagesInGroup(groupID, groupPageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.attachURLs(messages); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// Older pages backwards from an anchor message in the anchor's own scope.
func (h *MessageHandler) Older(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	anchorID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, apperrors.InvalidArg("invalid message id"))
		return
	}

	anchor, err := h.store.GetMessage(anchorID)
	if err != nil {
		writeError(w, err)
		return
	}
	if anchor == nil {
		writeError(w, apperrors.NotFound("message not found"))
		return
	}
	if err := h.canViewScope(viewerID, anchor); err != nil {
		writeError(w, err)
		return
	}

	messages, err := h.store.MessagesOlderThan(anchor, olderPageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.attachURLs(messages); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *MessageHandler) canViewScope(viewerID int64, m *models.Message) error {
	if m.GroupID != nil {
		group, err := h.store.GetGroup(*m.GroupID)
		if err != nil {
			return err
		}
		if group == nil {
			return apperrors.NotFound("group not found")
		}
		if group.OwnerID == viewerID {
			return nil
		}
		membership, err := h.store.GetMembership(*m.GroupID, viewerID)
		if err != nil {
			return err
		}
		if membership == nil {
			return apperrors.ErrNotAMember
		}
		return nil
	}
	if m.SenderID != viewerID && *m.ReceiverID != viewerID {
		return apperrors.ErrForbidden
	}
	return nil
}

// Edit lets the sender change the body within the edit window.
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	messageID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, apperrors.InvalidArg("invalid message id"))
		return
	}

	var req struct {
		Body string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidArg("invalid request body"))
		return
	}
	if req.Body == "" {
		writeError(w, apperrors.InvalidArg("message is empty"))
		return
	}
	if len(req.Body) > maxMessageLength {
		writeError(w, apperrors.InvalidArg("message is too long"))
		return
	}

	msg, err := h.store.GetMessage(messageID)
	if err != nil {
		writeError(w, err)
		return
	}
	if msg == nil {
		writeError(w, apperrors.NotFound("message not found"))
		return
	}
	if msg.SenderID != viewerID {
		writeError(w, apperrors.ErrForbidden)
		return
	}
	if !msg.WithinEditWindow(h.now()) {
		writeError(w, apperrors.ErrEditWindowExpired)
		return
	}

	if err := h.store.UpdateMessageBody(messageID, req.Body); err != nil {
		writeError(w, err)
		return
	}
	msg.Body = req.Body
	msg.UpdatedAt = h.now()

	h.events.MessageUpdated(msg)

	writeJSON(w, http.StatusOK, msg)
}

// Delete removes a sender's own message, its attachments on disk, repairs
// the scope's last-message pointer when it referenced the deleted message,
// and fans out the deletion with the new last message.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserID(r)
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	messageID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, apperrors.InvalidArg("invalid message id"))
		return
	}

	msg, err := h.store.GetMessage(messageID)
	if err != nil {
		writeError(w, err)
		return
	}
	if msg == nil {
		writeError(w, apperrors.NotFound("message not found"))
		return
	}
	if msg.SenderID != viewerID {
		writeError(w, apperrors.ErrForbidden)
		return
	}

	wasLast, err := h.pointedAt(msg)
	if err != nil {
		writeError(w, err)
		return
	}

	attachments, err := h.store.GetAttachments(messageID)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(attachments) > 0 {
		dir := filepath.ToSlash(filepath.Dir(attachments[0].Path))
		if err := h.blobs.DeleteDirectory(dir); err != nil {
			writeError(w, apperrors.Wrap(apperrors.CodeInternal, "failed to delete attachments", err))
			return
		}
	}

	if err := h.store.DeleteMessage(messageID); err != nil {
		writeError(w, err)
		return
	}

	var newLast *models.Message
	if wasLast {
		newLast, err = h.repairPointer(msg)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	h.events.MessageDeleted(msg.Stub(), newLast)

	writeJSON(w, http.StatusOK, map[string]any{
		"deleted":        msg.ID,
		"newLastMessage": newLast,
	})
}

// pointedAt reports whether the scope's last-message pointer references m.
func (h *MessageHandler) pointedAt(m *models.Message) (bool, error) {
	if m.GroupID != nil {
		group, err := h.store.GetGroup(*m.GroupID)
		if err != nil {
			return false, err
		}
		return group != nil && group.LastMessageID != nil && *group.LastMessageID == m.ID, nil
	}
	conv, err := h.store.FindConversation(m.SenderID, *m.ReceiverID)
	if err != nil {
		return false, err
	}
	return conv != nil && conv.LastMessageID != nil && *conv.LastMessageID == m.ID, nil
}

// repairPointer points the scope at its newest surviving message, if any.
func (h *MessageHandler) repairPointer(m *models.Message) (*models.Message, error) {
	if m.GroupID != nil {
		newLast, err := h.store.LatestInGroup(*m.GroupID)
		if err != nil {
			return nil, err
		}
		if newLast != nil {
			if err := h.store.SetGroupLastMessage(*m.GroupID, newLast.ID); err != nil {
				return nil, err
			}
		}
		return newLast, nil
	}

	newLast, err := h.store.LatestInDM(m.SenderID, *m.ReceiverID)
	if err != nil {
		return nil, err
	}
	if newLast != nil {
		if err := h.store.SetLastMessage(m.SenderID, *m.ReceiverID, newLast.ID); err != nil {
			return nil, err
		}
	}
	return newLast, nil
}
