// Copyright (C) 2025 parley.chat <dev@parley.chat>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package errors

type Code string

const (
	CodeUnknown           Code = "UNKNOWN"
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeInvalidScope      Code = "INVALID_SCOPE"
	CodeNotFound          Code = "NOT_FOUND"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotAMember        Code = "NOT_A_MEMBER"
	CodeTargetIsOwner     Code = "TARGET_IS_OWNER"
	CodeOwnerCannotLeave  Code = "OWNER_CANNOT_LEAVE"
	CodeSelfTransfer      Code = "SELF_TRANSFER"
	CodeAlreadyBlocked    Code = "ALREADY_BLOCKED"
	CodeNotBlocked        Code = "NOT_BLOCKED"
	CodeBlockedUser       Code = "BLOCKED_USER"
	CodeGroupDeleting     Code = "GROUP_DELETING"
	CodeEditWindowExpired Code = "EDIT_WINDOW_EXPIRED"
	CodeInternal          Code = "INTERNAL"
)
