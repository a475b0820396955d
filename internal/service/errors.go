package service

import "errors"

var (
	// ErrAccessDenied is returned when the acting identity has no active
	// participant row for the target chat.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotFound is returned when a referenced chat or message does not
	// exist or has been deleted.
	ErrNotFound = errors.New("not found")

	// ErrSendFailed wraps a persistence failure on send/edit/delete. It is
	// surfaced only to the initiator; nothing is broadcast.
	ErrSendFailed = errors.New("send failed")
)
