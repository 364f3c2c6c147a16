// Package domain contains core concepts of the chat system.
// This file defines User and Group entities.
// No runtime, network, or storage logic should be added here.
package domain

import "time"

// User is a durable account. Presence is never part of the entity;
// it lives in the server registry only.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// Group is a durable named group owned by the user that created it.
// Membership is a separate set, queried fresh on every send.
type Group struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
}
