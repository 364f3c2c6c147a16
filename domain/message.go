// Package domain contains core concepts of the chat system.
// This file defines Message events and their delivery targets.
// Messages are immutable and constructed once per send.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// TargetKind discriminates the two delivery targets a message can have.
type TargetKind int

const (
	TargetUser TargetKind = iota
	TargetGroup
)

// Target is a tagged union: a message goes either to one user or to a group.
type Target struct {
	Kind     TargetKind
	Username string // set when Kind == TargetUser
	GroupID  string // set when Kind == TargetGroup
}

func ToUser(username string) Target {
	return Target{Kind: TargetUser, Username: username}
}

func ToGroup(groupID string) Target {
	return Target{Kind: TargetGroup, GroupID: groupID}
}

// Message represents an immutable chat event.
// RecipientID stays nil for group messages, and for private messages whose
// target username resolves to no durable account.
type Message struct {
	ID          uuid.UUID
	SenderID    string
	SenderName  string
	RecipientID *string
	GroupID     *string
	Content     string
	At          time.Time
}
