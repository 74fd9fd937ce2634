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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley/backend/fanout"
	"github.com/parleychat/parley/backend/middleware"
	"github.com/parleychat/parley/backend/models"
	"github.com/parleychat/parley/backend/storage/disk"
	"github.com/parleychat/parley/backend/storage/memory"
)

type published struct {
	channel string
	event   string
	payload any
}

type captureBroker struct {
	calls []published
}

func (b *captureBroker) Publish(channel, event string, payload any) error {
	b.calls = append(b.calls, published{channel, event, payload})
	return nil
}

func (b *captureBroker) onChannel(channel string) []published {
	var out []published
	for _, c := range b.calls {
		if c.channel == channel {
			out = append(out, c)
		}
	}
	return out
}

type fakeEnqueuer struct {
	purges []int64
}

func (f *fakeEnqueuer) EnqueueGroupPurge(groupID int64) error {
	f.purges = append(f.purges, groupID)
	return nil
}

type testEnv struct {
	store    *memory.Store
	blobs    *disk.Store
	broker   *captureBroker
	enqueuer *fakeEnqueuer

	messages      *MessageHandler
	groups        *GroupHandler
	users         *UserHandler
	conversations *ConversationHandler
	channels      *ChannelHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	blobs, err := disk.NewStore(t.TempDir(), "/attachments")
	require.NoError(t, err)

	broker := &captureBroker{}
	engine := fanout.NewEngine(broker)
	enqueuer := &fakeEnqueuer{}

	return &testEnv{
		store:    store,
		blobs:    blobs,
		broker:   broker,
		enqueuer: enqueuer,

		messages:      NewMessageHandler(store, blobs, engine),
		groups:        NewGroupHandler(store, blobs, engine, enqueuer),
		users:         NewUserHandler(store, engine),
		conversations: NewConversationHandler(store, blobs),
		channels:      NewChannelHandler(store, nil),
	}
}

func (e *testEnv) addUser(id int64, name, email string) {
	e.store.AddUser(&models.User{ID: id, Name: name, Email: email, IsActive: true})
}

// doJSON runs a handler with a JSON body, path vars, and an authenticated
// user, returning the recorder.
func doJSON(t *testing.T, handler http.HandlerFunc, method string, vars map[string]string, userID int64, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, "/", &buf)
	req.Header.Set("Content-Type", "application/json")
	req = middleware.WithUserID(req, userID)
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}

	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, rec, &body)
	return body.Error.Code
}
