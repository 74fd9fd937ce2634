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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley/backend/fanout"
)

func TestChannelAuthorizationRules(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")
	env.addUser(2, "bob", "bob@parley.chat")
	env.addUser(3, "eve", "eve@parley.chat")
	gid := env.createGroup(t, 1, "general", 2)

	cases := []struct {
		userID  int64
		channel string
		allowed bool
	}{
		// Anyone authenticated may join the online roster.
		{3, fanout.OnlineChannel, true},

		// DM channels admit only the two participants.
		{1, fanout.DMChannel(1, 2), true},
		{2, fanout.DMChannel(1, 2), true},
		{3, fanout.DMChannel(1, 2), false},

		// Group channels admit the owner and active members.
		{1, fanout.GroupChannel(gid), true},
		{2, fanout.GroupChannel(gid), true},
		{3, fanout.GroupChannel(gid), false},

		// Personal channels admit only their owner.
		{2, fanout.UserChannel(2), true},
		{3, fanout.UserChannel(2), false},

		// Unknown shapes are denied outright.
		{1, "message.user.2-1", false},
		{1, "admin.broadcast", false},
	}

	for _, tc := range cases {
		allowed, err := env.channels.authorized(tc.userID, tc.channel)
		require.NoError(t, err)
		assert.Equal(t, tc.allowed, allowed,
			fmt.Sprintf("user %d on %q", tc.userID, tc.channel))
	}
}

func TestRemovedMemberLosesGroupChannel(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")
	env.addUser(2, "bob", "bob@parley.chat")
	gid := env.createGroup(t, 1, "general", 2)

	allowed, err := env.channels.authorized(2, fanout.GroupChannel(gid))
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, env.store.DeactivateMember(gid, 2))

	allowed, err = env.channels.authorized(2, fanout.GroupChannel(gid))
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestMissingGroupChannelDenied(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")

	allowed, err := env.channels.authorized(1, fanout.GroupChannel(999))
	require.NoError(t, err)
	assert.False(t, allowed)
}
