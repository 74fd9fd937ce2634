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
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley/backend/models"
)

func TestCreateGroupMakesOwnerAdminMember(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")
	env.addUser(2, "bob", "bob@parley.chat")

	gid := env.createGroup(t, 1, "Gopher Fans", 2)

	group, err := env.store.GetGroup(gid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), group.OwnerID)
	assert.Equal(t, "gopher-fans", group.Slug)

	owner, err := env.store.GetMembership(gid, 1)
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, models.RoleAdmin, owner.Role)

	member, err := env.store.GetMembership(gid, 2)
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, models.RoleMember, member.Role)

	// Both initial members heard about the group on their own channels.
	assert.NotEmpty(t, env.broker.onChannel("user.1"))
	assert.NotEmpty(t, env.broker.onChannel("user.2"))
}

func TestInviteBuckets(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")
	env.addUser(2, "bob", "bob@parley.chat")
	env.addUser(3, "carol", "carol@parley.chat")
	env.addUser(4, "dave", "dave@parley.chat")
	gid := env.createGroup(t, 1, "general", 2)
	require.NoError(t, env.store.CreateBlock(4, 1))

	rec := doJSON(t, env.groups.Invite, "POST",
		map[string]string{"id": fmt.Sprint(gid)}, 1,
		map[string]any{"member_ids": []int64{2, 3, 4}})
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.InviteResult
	decodeBody(t, rec, &result)
	assert.Equal(t, []int64{3}, result.Added)
	assert.Equal(t, []int64{2}, result.AlreadyMembers)
	assert.Equal(t, []int64{4}, result.Blocked)

	// A blocked target never gained a membership.
	m, err := env.store.GetMembership(gid, 4)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestInviteRequiresPrivilegedRole(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")
	env.addUser(2, "bob", "bob@parley.chat")
	env.addUser(3, "carol", "carol@parley.chat")
	gid := env.createGroup(t, 1, "general", 2)

	rec := doJSON(t, env.groups.Invite, "POST",
		map[string]string{"id": fmt.Sprint(gid)}, 2,
		map[string]any{"member_ids": []int64{3}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateMemberRoleOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")
	env.addUser(2, "bob", "bob@parley.chat")
	env.addUser(3, "carol", "carol@parley.chat")
	gid := env.createGroup(t, 1, "general", 2, 3)
	vars := map[string]string{"id": fmt.Sprint(gid)}

	// Promote bob to admin.
	rec := doJSON(t, env.groups.UpdateMemberRole, "PATCH", vars, 1,
		map[string]any{"user_id": 2, "role": models.RoleAdmin})
	require.Equal(t, http.StatusOK, rec.Code)

	m, err := env.store.GetMembership(gid, 2)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, m.Role)

	// Even an admin member cannot change roles.
	rec = doJSON(t, env.groups.UpdateMemberRole, "PATCH", vars, 2,
		map[string]any{"user_id": 3, "role": models.RoleModerator})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The owner is never a target.
	rec = doJSON(t, env.groups.UpdateMemberRole, "PATCH", vars, 1,
		map[string]any{"user_id": 1, "role": models.RoleMember})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TARGET_IS_OWNER", errorCode(t, rec))

	// Unknown role names are rejected.
	rec = doJSON(t, env.groups.UpdateMemberRole, "PATCH", vars, 1,
		map[string]any{"user_id": 2, "role": "king"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveMember(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")
	env.addUser(2, "bob", "bob@parley.chat")
	gid := env.createGroup(t, 1, "general", 2)

	rec := doJSON(t, env.groups.RemoveMember, "DELETE",
		map[string]string{"id": fmt.Sprint(gid), "userId": "2"}, 1, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	m, err := env.store.GetMembership(gid, 2)
	require.NoError(t, err)
	assert.Nil(t, m)

	// Removing the owner is off the table.
	rec = doJSON(t, env.groups.RemoveMember, "DELETE",
		map[string]string{"id": fmt.Sprint(gid), "userId": "1"}, 1, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TARGET_IS_OWNER", errorCode(t, rec))
}

func TestTransferOwnership(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")
	env.addUser(2, "bob", "bob@parley.chat")
	env.addUser(3, "carol", "carol@parley.chat")
	gid := env.createGroup(t, 1, "general", 2)
	vars := map[string]string{"id": fmt.Sprint(gid)}

	// Self transfer is a no-op request.
	rec := doJSON(t, env.groups.TransferOwnership, "POST", vars, 1,
		map[string]any{"user_id": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SELF_TRANSFER", errorCode(t, rec))

	// The target must already be a member.
	rec = doJSON(t, env.groups.TransferOwnership, "POST", vars, 1,
		map[string]any{"user_id": 3})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_A_MEMBER", errorCode(t, rec))

	rec = doJSON(t, env.groups.TransferOwnership, "POST", vars, 1,
		map[string]any{"user_id": 2})
	require.Equal(t, http.StatusOK, rec.Code)

	group, err := env.store.GetGroup(gid)
	require.NoError(t, err)
	assert.Equal(t, int64(2), group.OwnerID)

	// New owner holds admin, old owner stays as an active admin member.
	newOwner, err := env.store.GetMembership(gid, 2)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, newOwner.Role)

	oldOwner, err := env.store.GetMembership(gid, 1)
	require.NoError(t, err)
	require.NotNil(t, oldOwner)
	assert.Equal(t, models.RoleAdmin, oldOwner.Role)

	// The old owner can now leave.
	rec = doJSON(t, env.groups.Leave, "POST", vars, 1, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestOwnerCannotLeave(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")
	gid := env.createGroup(t, 1, "general")

	rec := doJSON(t, env.groups.Leave, "POST",
		map[string]string{"id": fmt.Sprint(gid)}, 1, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "OWNER_CANNOT_LEAVE", errorCode(t, rec))
}

func TestDestroyMarksDeletingAndEnqueuesPurge(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")
	env.addUser(2, "bob", "bob@parley.chat")
	gid := env.createGroup(t, 1, "general", 2)
	vars := map[string]string{"id": fmt.Sprint(gid)}

	// Only the owner can delete.
	rec := doJSON(t, env.groups.Destroy, "DELETE", vars, 2, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, env.groups.Destroy, "DELETE", vars, 1, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	group, err := env.store.GetGroup(gid)
	require.NoError(t, err)
	assert.True(t, group.IsDeleting)
	assert.Equal(t, []int64{gid}, env.enqueuer.purges)

	events := env.broker.onChannel(fmt.Sprintf("message.group.%d", gid))
	require.NotEmpty(t, events)
	payload := events[len(events)-1].payload.(map[string]any)
	assert.Equal(t, models.ActionDeleting, payload["action"])

	// A second delete while the purge is pending conflicts.
	rec = doJSON(t, env.groups.Destroy, "DELETE", vars, 1, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateGroupInfo(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")
	env.addUser(2, "bob", "bob@parley.chat")
	gid := env.createGroup(t, 1, "general", 2)
	vars := map[string]string{"id": fmt.Sprint(gid)}

	// Plain members cannot edit group info.
	rec := doJSON(t, env.groups.Update, "PATCH", vars, 2,
		map[string]any{"name": "hijacked"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, env.groups.Update, "PATCH", vars, 1,
		map[string]any{"name": "renamed", "description": "new purpose"})
	require.Equal(t, http.StatusOK, rec.Code)

	group, err := env.store.GetGroup(gid)
	require.NoError(t, err)
	assert.Equal(t, "renamed", group.Name)
	assert.Equal(t, "new purpose", group.Description)
}

func TestMembersListsActiveRoster(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "alice", "alice@parley.chat")
	env.addUser(2, "bob", "bob@parley.chat")
	env.addUser(3, "carol", "carol@parley.chat")
	gid := env.createGroup(t, 1, "general", 2, 3)
	require.NoError(t, env.store.DeactivateMember(gid, 3))

	rec := doJSON(t, env.groups.Members, "GET",
		map[string]string{"id": fmt.Sprint(gid)}, 2, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Members []models.GroupMember `json:"members"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Members, 2)
	assert.Equal(t, int64(1), body.Members[0].UserID)
	assert.Equal(t, int64(2), body.Members[1].UserID)
}
