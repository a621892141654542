// Package domain contains entity types without logic, just meta-data.
package domain

type (
	// RoomID identifies a chat room. Generated unpredictably; never reused.
	RoomID uint64

	// SessionID identifies a session within one room. Unpredictable by
	// construction since it doubles as a bearer credential.
	SessionID uint64

	// MessageID is the per-room sequence number of a message. Strictly
	// increasing within a room, not unique across rooms.
	MessageID uint64
)
