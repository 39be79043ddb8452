package models

import (
	"fmt"
	"time"
)

// Priority is a closed set of message urgency levels. Unknown values are
// rejected at the boundary by ParsePriority rather than stored.
type Priority string

const (
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// ParsePriority maps a wire value onto the closed Priority set. The empty
// string defaults to NORMAL, matching how messages without an explicit
// priority were always stored.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case "":
		return PriorityNormal, nil
	case PriorityNormal, PriorityHigh, PriorityUrgent:
		return Priority(s), nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

func (p Priority) String() string { return string(p) }

// Message is one directed communication between two accounts, optionally
// tied to a resource listing. The body exists only in encrypted form once
// the record is built; plaintext never touches the store.
//
// A message is physically removed only once both deletion flags are true.
type Message struct {
	ID                 int64
	SenderID           int64
	RecipientID        int64
	ResourceID         *int64
	Subject            string
	EncryptedContent   string
	IsRead             bool
	Priority           Priority
	ContactMethod      string
	SenderPhone        string
	CreatedAt          time.Time
	ReadAt             *time.Time
	DeletedBySender    bool
	DeletedByRecipient bool
}
