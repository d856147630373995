package model

import (
	"time"
)

// Appointment statuses. The appointment lifecycle is a simpler sibling of the
// request lifecycle: Scheduled -> Accepted -> {Completed, Rejected, Cancelled}.
const (
	AppointmentScheduled = "Scheduled"
	AppointmentAccepted  = "Accepted"
	AppointmentCompleted = "Completed"
	AppointmentRejected  = "Rejected"
	AppointmentCancelled = "Cancelled"
)

var appointmentTransitions = map[string][]string{
	AppointmentScheduled: {AppointmentAccepted, AppointmentRejected, AppointmentCancelled},
	AppointmentAccepted:  {AppointmentCompleted, AppointmentCancelled},
}

// CanTransitionAppointment reports whether an appointment may move between
// the two statuses.
func CanTransitionAppointment(from, to string) bool {
	for _, s := range appointmentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Appointment is a scheduled donation by a donor at a hospital. Completing it
// records a donation, which feeds donor eligibility.
type Appointment struct {
	ID          string    `json:"id" db:"id"`
	DonorID     string    `json:"donor_id" db:"donor_id"`
	DonorName   string    `json:"donor_name" db:"donor_name"`
	HospitalID  string    `json:"hospital_id" db:"hospital_id"`
	BloodGroup  string    `json:"blood_group" db:"blood_group"`
	ScheduledAt time.Time `json:"scheduled_at" db:"scheduled_at"`
	Status      string    `json:"status" db:"status"`
	Notes       string    `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// AppointmentCreate represents data for scheduling a donation
type AppointmentCreate struct {
	HospitalID  string    `json:"hospital_id" binding:"required"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	Notes       string    `json:"notes"`
}
