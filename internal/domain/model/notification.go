// File: internal/domain/model/notification.go
package model

import "time"

type NotificationStatus string

const (
	NotificationStatusSent       NotificationStatus = "sent"
	NotificationStatusDeadLetter NotificationStatus = "dead_letter"
)

// NotificationRecord logs the outcome of a delivery job. Jobs that exhaust
// their retry budget land here as dead letters with the last error kept for
// operator inspection.
type NotificationRecord struct {
	ID        string // UUID
	UserID    string
	EventType EventType
	Payload   []byte // serialized DomainEvent
	Status    NotificationStatus
	Attempts  int
	LastError string
	CreatedAt time.Time
}
