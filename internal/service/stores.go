package service

import (
	"context"
	"time"

	"github.com/yourorg/bloodlink/internal/model"
)

// Store interfaces are satisfied by the sqlx repositories; services depend on
// them so the lifecycle logic is exercisable without a database.

// UserStore persists accounts
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, role string, limit, offset int) ([]model.User, int, error)
	SearchDonors(ctx context.Context, bloodGroup string, cities []string, eligibleOnly bool, minDays int) ([]model.DonorSearchResult, error)
	RecordDonation(ctx context.Context, donorID string, at time.Time) error
}

// RequestStore persists blood requests
type RequestStore interface {
	Create(ctx context.Context, req *model.Request) error
	GetByID(ctx context.Context, id string) (*model.Request, error)
	ListForViewer(ctx context.Context, viewer *model.User) ([]model.Request, error)
	Accept(ctx context.Context, requestID, actorID, message string) (bool, error)
	RejectBroadcast(ctx context.Context, id, reason string) (*model.Request, error)
	UpdateStatus(ctx context.Context, id, status, reason string, from ...string) (bool, error)
	SetNotifiedCount(ctx context.Context, id string, count int) error
	CreateDispatch(ctx context.Context, info *model.DispatchInfo) (bool, error)
	Complete(ctx context.Context, req *model.Request, fulfiller *model.User, completedAt time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
}

// NotificationStore persists notifications
type NotificationStore interface {
	FanOut(ctx context.Context, req *model.Request, event, message string, minDays int) ([]string, error)
	Notify(ctx context.Context, userID string, requestID *string, event, message string, expiresAt *time.Time) error
	MarkDeclined(ctx context.Context, requestID, userID string) (bool, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Notification, int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	GetByID(ctx context.Context, id string) (*model.Notification, error)
	SetStatus(ctx context.Context, id, status string) error
	SetStatusForRequest(ctx context.Context, requestID, userID, status string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

// InventoryStore persists hospital stock
type InventoryStore interface {
	GetByHospital(ctx context.Context, hospitalID string) ([]model.InventoryItem, error)
	Set(ctx context.Context, hospitalID, bloodGroup string, units int) error
}

// AppointmentStore persists donation appointments
type AppointmentStore interface {
	Create(ctx context.Context, appt *model.Appointment) error
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	ListForViewer(ctx context.Context, viewerID string) ([]model.Appointment, error)
	UpdateStatus(ctx context.Context, id, status string) error
	Complete(ctx context.Context, id, donorID string, completedAt time.Time) error
}
