package model

import (
	"time"

	"github.com/lib/pq"
)

// Request types
const (
	TypeP2P            = "p2p"
	TypeEmergencyAlert = "emergency_alert"
	TypeStockTransfer  = "stock_transfer"
)

// Request statuses. Active is the single open state: a freshly created
// request is Active, and Expired is derived at read time from expires_at
// rather than written by a background job.
const (
	StatusActive     = "Active"
	StatusAccepted   = "Accepted"
	StatusDispatched = "Dispatched"
	StatusCompleted  = "Completed"
	StatusRejected   = "Rejected"
	StatusExpired    = "Expired"
	StatusCancelled  = "Cancelled"
)

// Urgency levels (p2p/emergency use the first three, stock transfers the rest)
const (
	UrgencyNormal    = "Normal"
	UrgencyCritical  = "Critical"
	UrgencyEmergency = "Emergency"
	UrgencyUrgent    = "Urgent"
	UrgencyFlexible  = "Flexible"
)

// transitions maps each status to the set of statuses reachable from it.
// Terminal statuses have no outgoing edges.
var transitions = map[string][]string{
	StatusActive:     {StatusAccepted, StatusRejected, StatusExpired, StatusCancelled},
	StatusAccepted:   {StatusDispatched, StatusCompleted, StatusCancelled},
	StatusDispatched: {StatusCompleted},
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TerminalStatus reports whether a status has no outgoing transitions.
func TerminalStatus(s string) bool {
	return len(transitions[s]) == 0
}

// Request represents a solicitation for blood units: a city broadcast to
// donors (p2p, emergency_alert) or a direct transfer to a named responder
// (stock_transfer). Exactly one of ResponderID / Cities is set at creation.
type Request struct {
	ID                 string         `json:"id" db:"id"`
	RequesterID        string         `json:"requester_id" db:"requester_id"`
	RequesterName      string         `json:"requester_name" db:"requester_name"`
	ResponderID        *string        `json:"responder_id,omitempty" db:"responder_id"`
	Type               string         `json:"type" db:"type"`
	BloodGroup         string         `json:"blood_group" db:"blood_group"`
	Units              int            `json:"units" db:"units"`
	Urgency            string         `json:"urgency" db:"urgency"`
	Cities             pq.StringArray `json:"cities,omitempty" db:"cities"`
	Status             string         `json:"status" db:"status"`
	AcceptedBy         *string        `json:"accepted_by,omitempty" db:"accepted_by"`
	NotifiedDonorCount int            `json:"notified_donor_count" db:"notified_donor_count"`
	RejectedCount      int            `json:"rejected_count" db:"rejected_count"`
	RejectionReason    string         `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ResponseMessage    string         `json:"response_message,omitempty" db:"response_message"`
	PatientName        string         `json:"patient_name,omitempty" db:"patient_name"`
	PatientNumber      string         `json:"patient_number,omitempty" db:"patient_number"`
	AttenderName       string         `json:"attender_name,omitempty" db:"attender_name"`
	AttenderNumber     string         `json:"attender_number,omitempty" db:"attender_number"`
	HospitalName       string         `json:"hospital_name,omitempty" db:"hospital_name"`
	Location           string         `json:"location,omitempty" db:"location"`
	Dispatch           *DispatchInfo  `json:"dispatch,omitempty" db:"-"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	ExpiresAt          *time.Time     `json:"expires_at,omitempty" db:"expires_at"`

	// IsOutgoing is computed per viewer at query time, never stored.
	IsOutgoing bool `json:"is_outgoing" db:"-"`
}

// Broadcast reports whether the request fans out to city donors rather than
// targeting a single responder.
func (r *Request) Broadcast() bool {
	return r.ResponderID == nil
}

// Open reports whether the request can still be accepted, deriving expiry
// from expires_at.
func (r *Request) Open(now time.Time) bool {
	if r.Status != StatusActive {
		return false
	}
	return r.ExpiresAt == nil || r.ExpiresAt.After(now)
}

// EffectiveStatus returns the status with read-time expiry applied.
func (r *Request) EffectiveStatus(now time.Time) string {
	if r.Status == StatusActive && r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
		return StatusExpired
	}
	return r.Status
}

// DispatchInfo records how an accepted request was shipped
type DispatchInfo struct {
	RequestID    string    `json:"request_id" db:"request_id"`
	TrackingID   string    `json:"tracking_id" db:"tracking_id"`
	Transport    string    `json:"transport" db:"transport"`
	StaffName    string    `json:"staff_name,omitempty" db:"staff_name"`
	DispatchedBy string    `json:"dispatched_by" db:"dispatched_by"`
	DispatchedAt time.Time `json:"dispatched_at" db:"dispatched_at"`
}

// RequestCreate represents data for creating a new request
type RequestCreate struct {
	Type           string     `json:"type" binding:"required,oneof=p2p emergency_alert stock_transfer"`
	BloodGroup     string     `json:"blood_group" binding:"required,bloodgroup"`
	Units          int        `json:"units" binding:"required,min=1"`
	Urgency        string     `json:"urgency" binding:"omitempty,oneof=Normal Critical Emergency Urgent Flexible"`
	ResponderID    *string    `json:"responder_id"`
	Cities         []string   `json:"cities"`
	PatientName    string     `json:"patient_name"`
	PatientNumber  string     `json:"patient_number"`
	AttenderName   string     `json:"attender_name"`
	AttenderNumber string     `json:"attender_number"`
	HospitalName   string     `json:"hospital_name"`
	Location       string     `json:"location"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

// RequestReject carries the required decline reason
type RequestReject struct {
	Reason string `json:"reason" binding:"required"`
}

// RequestAccept carries the optional responder message
type RequestAccept struct {
	Message string `json:"message"`
}

// RequestDispatch carries dispatch metadata from the fulfilling party
type RequestDispatch struct {
	Transport string `json:"transport" binding:"required"`
	StaffName string `json:"staff_name"`
}

// RequestListResponse is the viewer-scoped feed
type RequestListResponse struct {
	Requests []Request `json:"requests"`
	Total    int       `json:"total"`
}
