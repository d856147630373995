package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yourorg/bloodlink/internal/apperr"
	"github.com/yourorg/bloodlink/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AppointmentService manages the donation scheduling lifecycle, a simpler
// sibling of the request lifecycle: Scheduled -> Accepted -> {Completed,
// Rejected, Cancelled}
type AppointmentService struct {
	appointmentStore AppointmentStore
	userStore        UserStore
	notifier         Notifier
	logger           *zap.Logger
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	appointmentStore AppointmentStore,
	userStore UserStore,
	notifier Notifier,
	logger *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		appointmentStore: appointmentStore,
		userStore:        userStore,
		notifier:         notifier,
		logger:           logger,
	}
}

// Create schedules a donation by a donor at a hospital
func (s *AppointmentService) Create(ctx context.Context, donorID string, in *model.AppointmentCreate) (*model.Appointment, error) {
	donor, err := s.userStore.GetByID(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if donor == nil {
		return nil, apperr.Unauthorized("unknown user")
	}
	if donor.Role != model.RoleDonor {
		return nil, apperr.Forbidden("only donors can schedule donations")
	}

	hospital, err := s.userStore.GetByID(ctx, in.HospitalID)
	if err != nil {
		return nil, err
	}
	if hospital == nil || hospital.Role != model.RoleHospital {
		return nil, apperr.NotFound("hospital")
	}

	appt := &model.Appointment{
		ID:          uuid.NewString(),
		DonorID:     donor.ID,
		DonorName:   donor.Name,
		HospitalID:  hospital.ID,
		BloodGroup:  donor.BloodGroup,
		ScheduledAt: in.ScheduledAt,
		Status:      model.AppointmentScheduled,
		Notes:       in.Notes,
	}
	appt.CreatedAt = time.Now()

	if err := s.appointmentStore.Create(ctx, appt); err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("%s scheduled a %s donation for %s",
		donor.Name, donor.BloodGroup, in.ScheduledAt.Format("Jan 2 15:04"))
	if err := s.notifier.NotifyUser(ctx, hospital.ID, nil, model.EventAppointment, msg); err != nil {
		return nil, err
	}

	return appt, nil
}

// List retrieves appointments where the viewer is the donor or the hospital
func (s *AppointmentService) List(ctx context.Context, viewerID string) ([]model.Appointment, error) {
	return s.appointmentStore.ListForViewer(ctx, viewerID)
}

// Accept confirms a scheduled appointment; hospital only
func (s *AppointmentService) Accept(ctx context.Context, actorID, id string) (*model.Appointment, error) {
	appt, err := s.transition(ctx, actorID, id, model.AppointmentAccepted, hospitalActor)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Your donation appointment on %s was accepted", appt.ScheduledAt.Format("Jan 2"))
	if err := s.notifier.NotifyUser(ctx, appt.DonorID, nil, model.EventAppointment, msg); err != nil {
		return nil, err
	}

	return appt, nil
}

// Reject declines a scheduled appointment; hospital only
func (s *AppointmentService) Reject(ctx context.Context, actorID, id string) (*model.Appointment, error) {
	appt, err := s.transition(ctx, actorID, id, model.AppointmentRejected, hospitalActor)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Your donation appointment on %s was declined", appt.ScheduledAt.Format("Jan 2"))
	if err := s.notifier.NotifyUser(ctx, appt.DonorID, nil, model.EventAppointment, msg); err != nil {
		return nil, err
	}

	return appt, nil
}

// Cancel withdraws an appointment; donor only
func (s *AppointmentService) Cancel(ctx context.Context, actorID, id string) (*model.Appointment, error) {
	return s.transition(ctx, actorID, id, model.AppointmentCancelled, donorActor)
}

// Complete marks the donation done and records it on the donor, which resets
// their eligibility window
func (s *AppointmentService) Complete(ctx context.Context, actorID, id string) (*model.Appointment, error) {
	appt, err := s.guard(ctx, actorID, id, model.AppointmentCompleted, hospitalActor)
	if err != nil {
		return nil, err
	}

	if err := s.appointmentStore.Complete(ctx, appt.ID, appt.DonorID, time.Now()); err != nil {
		return nil, err
	}
	appt.Status = model.AppointmentCompleted

	return appt, nil
}

type actorRole int

const (
	donorActor actorRole = iota
	hospitalActor
)

// guard fetches the appointment and checks the actor and transition
func (s *AppointmentService) guard(ctx context.Context, actorID, id, to string, role actorRole) (*model.Appointment, error) {
	appt, err := s.appointmentStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, apperr.NotFound("appointment")
	}

	switch role {
	case donorActor:
		if appt.DonorID != actorID {
			return nil, apperr.Forbidden("only the donor can do this")
		}
	case hospitalActor:
		if appt.HospitalID != actorID {
			return nil, apperr.Forbidden("only the hospital can do this")
		}
	}

	if !model.CanTransitionAppointment(appt.Status, to) {
		return nil, apperr.Conflict("invalid_state", "cannot move a %s appointment to %s", appt.Status, to)
	}

	return appt, nil
}

func (s *AppointmentService) transition(ctx context.Context, actorID, id, to string, role actorRole) (*model.Appointment, error) {
	appt, err := s.guard(ctx, actorID, id, to, role)
	if err != nil {
		return nil, err
	}

	if err := s.appointmentStore.UpdateStatus(ctx, appt.ID, to); err != nil {
		return nil, err
	}
	appt.Status = to

	return appt, nil
}
