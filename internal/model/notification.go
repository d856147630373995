package model

import (
	"time"
)

// Notification events
const (
	EventRequestCreated    = "REQUEST_CREATED"
	EventEmergencyAlert    = "EMERGENCY_ALERT"
	EventUrgentRequest     = "URGENT_REQUEST"
	EventRequestAccepted   = "REQUEST_ACCEPTED"
	EventRequestRejected   = "REQUEST_REJECTED"
	EventRequestCancelled  = "REQUEST_CANCELLED"
	EventRequestDispatched = "REQUEST_DISPATCHED"
	EventAppointment       = "APPOINTMENT"
)

// Notification statuses
const (
	NotificationUnread   = "UNREAD"
	NotificationRead     = "READ"
	NotificationAccepted = "ACCEPTED"
	NotificationRejected = "REJECTED"
)

// Notification is a directed message to one user about a request or system
// event. Many notifications may reference one request (fan-out); at most one
// exists per (user, request, event) pair.
type Notification struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	RequestID *string    `json:"request_id,omitempty" db:"request_id"`
	Event     string     `json:"event" db:"event"`
	Status    string     `json:"status" db:"status"`
	Message   string     `json:"message" db:"message"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
}

// NotificationListResponse wraps a user's notifications with counts
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	Total         int            `json:"total"`
	Unread        int            `json:"unread"`
}
