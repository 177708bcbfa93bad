// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package notify delivers administrator notices to users.

A notice is either global or addressed to one user. It is stored so that it
shows up in the user's inbox later, and published on Redis so that connected
clients see it right away. Read and dismissed state is kept per user, which
lets one global notice be read by many users independently.
*/
package notify

import (
	"context"
	"time"
)

// Type is the severity a client renders a notice with.
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypeInfo, TypeSuccess, TypeWarning, TypeError:
		return true
	}
	return false
}

// Notification is one stored notice, as seen by a given user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	Global    bool      `json:"is_global"`
	Read      bool      `json:"is_read"`
	SentBy    string    `json:"sent_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Input describes a notice to send. An empty UserID makes it global.
type Input struct {
	UserID  string `json:"user_id,omitempty"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    Type   `json:"type"`
	SentBy  string `json:"-"`
}

// Store persists notices and per-user receipts.
type Store interface {
	Create(context context.Context, notification *Notification) error

	// ListForUser returns the user's own and global notices that are not dismissed, newest first.
	ListForUser(context context.Context, userID string, limit int) ([]Notification, error)

	MarkRead(context context.Context, userID, notificationID string) error

	MarkAllRead(context context.Context, userID string) (int64, error)

	Dismiss(context context.Context, userID, notificationID string) error
}

// Publisher fans notices out to connected clients.
type Publisher interface {
	Publish(context context.Context, notification Notification) error

	// Subscribe receives global notices and those addressed to userID.
	Subscribe(context context.Context, userID string) (<-chan Notification, func(), error)
}
