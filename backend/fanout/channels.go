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

// Package fanout routes chat events to their delivery channels.
package fanout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/parleychat/parley/backend/models"
)

// Event names carried in the publish envelope.
const (
	EventMessage  = "message"
	EventGroup    = "group"
	EventBlock    = "user.block.status"
	EventPresence = "presence"
)

// OnlineChannel carries presence events for every connected user.
const OnlineChannel = "online"

// DMChannel names the private channel for an unordered user pair. Both
// participants derive the same name regardless of argument order.
func DMChannel(userA, userB int64) string {
	lo, hi := models.CanonicalPair(userA, userB)
	return fmt.Sprintf("message.user.%d-%d", lo, hi)
}

func GroupChannel(groupID int64) string {
	return fmt.Sprintf("message.group.%d", groupID)
}

// UserChannel is the per-user channel for events addressed to one person,
// such as group invitations and block status changes.
func UserChannel(userID int64) string {
	return fmt.Sprintf("user.%d", userID)
}

// ChannelKind identifies which authorization rule applies to a channel.
type ChannelKind int

const (
	KindUnknown ChannelKind = iota
	KindOnline
	KindDM
	KindGroup
	KindUser
)

// ParsedChannel is the decoded form of a subscription channel name.
type ParsedChannel struct {
	Kind    ChannelKind
	UserA   int64 // DM participants, low then high
	UserB   int64
	GroupID int64
	UserID  int64
}

// ParseChannel decodes a channel name for subscription authorization.
// Unknown shapes come back as KindUnknown, never an error.
func ParseChannel(name string) ParsedChannel {
	if name == OnlineChannel {
		return ParsedChannel{Kind: KindOnline}
	}

	if rest, ok := strings.CutPrefix(name, "message.user."); ok {
		lo, hi, found := strings.Cut(rest, "-")
		if !found {
			return ParsedChannel{}
		}
		a, errA := strconv.ParseInt(lo, 10, 64)
		b, errB := strconv.ParseInt(hi, 10, 64)
		if errA != nil || errB != nil || a >= b {
			return ParsedChannel{}
		}
		return ParsedChannel{Kind: KindDM, UserA: a, UserB: b}
	}

	if rest, ok := strings.CutPrefix(name, "message.group."); ok {
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return ParsedChannel{}
		}
		return ParsedChannel{Kind: KindGroup, GroupID: id}
	}

	if rest, ok := strings.CutPrefix(name, "user."); ok {
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return ParsedChannel{}
		}
		return ParsedChannel{Kind: KindUser, UserID: id}
	}

	return ParsedChannel{}
}
