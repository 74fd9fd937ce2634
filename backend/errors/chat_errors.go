// Copyright (C) 2025 parley.chat <dev@parley.chat>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package errors

var (
	// Message scope and lifecycle
	ErrInvalidScope      = New(CodeInvalidScope, "message must target exactly one of a user or a group")
	ErrGroupDeleting     = New(CodeGroupDeleting, "this group is being deleted and no longer accepts messages")
	ErrEditWindowExpired = New(CodeEditWindowExpired, "messages can only be edited within 15 minutes of sending")

	// Blocking
	ErrSelfBlock      = New(CodeInvalidArgument, "you cannot block yourself")
	ErrAlreadyBlocked = New(CodeAlreadyBlocked, "user is already blocked")
	ErrNotBlocked     = New(CodeNotBlocked, "user is not blocked")
	ErrBlockedUser    = New(CodeBlockedUser, "you cannot interact with this user")

	// Membership and roles
	ErrNotAMember       = New(CodeNotAMember, "user is not a member of this group")
	ErrTargetIsOwner    = New(CodeTargetIsOwner, "this action cannot target the group owner")
	ErrOwnerCannotLeave = New(CodeOwnerCannotLeave, "transfer ownership before leaving the group")
	ErrSelfTransfer     = New(CodeSelfTransfer, "you already own this group")

	// Generic
	ErrUnauthorized = New(CodeUnauthorized, "unauthorized")
	ErrForbidden    = New(CodeForbidden, "you do not have permission to perform this action")
	ErrNotFound     = New(CodeNotFound, "not found")
)
