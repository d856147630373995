package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yourorg/bloodlink/internal/apperr"
	"github.com/yourorg/bloodlink/internal/events"
	"github.com/yourorg/bloodlink/internal/model"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Notifier defines the notification side effects of lifecycle transitions
type Notifier interface {
	FanOutRequest(ctx context.Context, req *model.Request) (int, error)
	NotifyUser(ctx context.Context, userID string, requestID *string, event, message string) error
	SetRequestNotificationStatus(ctx context.Context, requestID, userID, status string) error
	MarkRequestDeclined(ctx context.Context, requestID, userID string) (bool, error)
}

// RequestService governs the blood-request lifecycle: creation, the
// first-come-first-served accept, reject/ignore, dispatch, completion,
// cancellation, and owner deletion
type RequestService struct {
	requestStore RequestStore
	userStore    UserStore
	notifier     Notifier
	producer     *events.Producer
	logger       *zap.Logger
}

// NewRequestService creates a new request service
func NewRequestService(
	requestStore RequestStore,
	userStore UserStore,
	notifier Notifier,
	producer *events.Producer,
	logger *zap.Logger,
) *RequestService {
	return &RequestService{
		requestStore: requestStore,
		userStore:    userStore,
		notifier:     notifier,
		producer:     producer,
		logger:       logger,
	}
}

// Create opens a new request. Exactly one of responder_id and cities must be
// set: stock transfers target a single hospital, p2p and emergency requests
// broadcast to cities. Broadcasts fan out immediately and record how many
// donors were notified.
func (s *RequestService) Create(ctx context.Context, actorID string, in *model.RequestCreate) (*model.Request, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	direct := in.ResponderID != nil && *in.ResponderID != ""
	broadcast := len(in.Cities) > 0
	if direct == broadcast {
		return nil, apperr.Validation("exactly one of responder_id and cities must be set")
	}

	if in.Type == model.TypeStockTransfer && !direct {
		return nil, apperr.Validation("stock transfers require a responder_id")
	}
	if in.Type != model.TypeStockTransfer && direct {
		return nil, apperr.Validation("%s requests broadcast to cities", in.Type)
	}

	if direct {
		responder, err := s.userStore.GetByID(ctx, *in.ResponderID)
		if err != nil {
			return nil, err
		}
		if responder == nil {
			return nil, apperr.NotFound("responder")
		}
		if responder.ID == actor.ID {
			return nil, apperr.Validation("cannot target your own account")
		}
		if responder.Role != model.RoleHospital {
			return nil, apperr.Validation("stock transfers target hospitals")
		}
	}

	urgency := in.Urgency
	if urgency == "" {
		urgency = model.UrgencyNormal
	}

	req := &model.Request{
		ID:             uuid.NewString(),
		RequesterID:    actor.ID,
		RequesterName:  actor.Name,
		ResponderID:    in.ResponderID,
		Type:           in.Type,
		BloodGroup:     in.BloodGroup,
		Units:          in.Units,
		Urgency:        urgency,
		Cities:         pq.StringArray(in.Cities),
		Status:         model.StatusActive,
		PatientName:    in.PatientName,
		PatientNumber:  in.PatientNumber,
		AttenderName:   in.AttenderName,
		AttenderNumber: in.AttenderNumber,
		HospitalName:   in.HospitalName,
		Location:       in.Location,
		CreatedAt:      time.Now(),
		ExpiresAt:      in.ExpiresAt,
	}
	if !direct {
		req.ResponderID = nil
	}

	if err := s.requestStore.Create(ctx, req); err != nil {
		return nil, err
	}

	if broadcast {
		count, err := s.notifier.FanOutRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := s.requestStore.SetNotifiedCount(ctx, req.ID, count); err != nil {
			return nil, err
		}
		req.NotifiedDonorCount = count
	} else {
		message := fmt.Sprintf("%s requests %d unit(s) of %s blood", actor.Name, req.Units, req.BloodGroup)
		if err := s.notifier.NotifyUser(ctx, *req.ResponderID, &req.ID, model.EventRequestCreated, message); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, events.EventRequestCreated, req, actor.ID)

	req.IsOutgoing = true
	return req, nil
}

// Get retrieves a request visible to the viewer. Broadcasts accepted by
// someone else stay hidden from everyone but the acceptor and requester.
func (s *RequestService) Get(ctx context.Context, viewerID, id string) (*model.Request, error) {
	viewer, err := s.actor(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	req, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.visible(req, viewer) {
		return nil, apperr.NotFound("request")
	}

	req.IsOutgoing = req.RequesterID == viewer.ID
	return req, nil
}

// List retrieves the viewer's role-scoped feed
func (s *RequestService) List(ctx context.Context, viewerID string) (*model.RequestListResponse, error) {
	viewer, err := s.actor(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	requests, err := s.requestStore.ListForViewer(ctx, viewer)
	if err != nil {
		return nil, err
	}

	return &model.RequestListResponse{Requests: requests, Total: len(requests)}, nil
}

// Accept claims an open request for the actor. Concurrent accepts are
// serialized by a compare-and-set on accepted_by: exactly one caller wins,
// the rest get the distinct "no longer available" conflict.
func (s *RequestService) Accept(ctx context.Context, actorID, id, message string) (*model.Request, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	req, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RequesterID == actor.ID {
		return nil, apperr.Conflict("own_request", "cannot accept your own request")
	}
	if !req.Broadcast() && *req.ResponderID != actor.ID {
		return nil, apperr.Forbidden("request targets another responder")
	}
	if req.AcceptedBy != nil {
		return nil, apperr.RequestTaken()
	}
	if req.Status != model.StatusActive {
		return nil, apperr.Conflict("request_closed", "request is %s", req.Status)
	}

	won, err := s.requestStore.Accept(ctx, req.ID, actor.ID, message)
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the race within the polling window
		return nil, apperr.RequestTaken()
	}

	req.Status = model.StatusAccepted
	req.AcceptedBy = &actor.ID
	req.ResponseMessage = message

	if err := s.notifier.SetRequestNotificationStatus(ctx, req.ID, actor.ID, model.NotificationAccepted); err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("%s accepted your %s blood request", actor.Name, req.BloodGroup)
	if err := s.notifier.NotifyUser(ctx, req.RequesterID, &req.ID, model.EventRequestAccepted, msg); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventRequestAccepted, req, actor.ID)
	return req, nil
}

// Reject declines a request. Direct transfers flip to Rejected immediately;
// a broadcast only flips once every notified recipient has declined. A decline
// counts once per notified recipient: it lands on the actor's own pending
// notification first, so repeating it or declining a request that never
// reached you changes nothing. The reason is required and stored.
func (s *RequestService) Reject(ctx context.Context, actorID, id, reason string) (*model.Request, error) {
	if reason == "" {
		return nil, apperr.Validation("rejection reason is required")
	}

	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	req, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != model.StatusActive {
		return nil, apperr.Conflict("request_closed", "request is %s", req.Status)
	}

	if req.Broadcast() {
		declined, err := s.notifier.MarkRequestDeclined(ctx, req.ID, actor.ID)
		if err != nil {
			return nil, err
		}
		if !declined {
			return nil, apperr.Conflict("not_notified", "no pending notification for this request")
		}

		updated, err := s.requestStore.RejectBroadcast(ctx, req.ID, reason)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, apperr.Conflict("request_closed", "request is no longer open")
		}

		if updated.Status == model.StatusRejected {
			msg := fmt.Sprintf("Your %s blood request was declined by all notified donors", req.BloodGroup)
			if err := s.notifier.NotifyUser(ctx, req.RequesterID, &req.ID, model.EventRequestRejected, msg); err != nil {
				return nil, err
			}
			s.publish(ctx, events.EventRequestRejected, updated, actor.ID)
		}

		return updated, nil
	}

	if *req.ResponderID != actor.ID {
		return nil, apperr.Forbidden("request targets another responder")
	}

	ok, err := s.requestStore.UpdateStatus(ctx, req.ID, model.StatusRejected, reason, model.StatusActive)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("request_closed", "request is no longer open")
	}
	req.Status = model.StatusRejected
	req.RejectionReason = reason

	msg := fmt.Sprintf("%s declined your %s blood request: %s", actor.Name, req.BloodGroup, reason)
	if err := s.notifier.NotifyUser(ctx, req.RequesterID, &req.ID, model.EventRequestRejected, msg); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventRequestRejected, req, actor.ID)
	return req, nil
}

// Ignore dismisses the actor's own notification for a request without
// touching the request itself
func (s *RequestService) Ignore(ctx context.Context, actorID, id string) error {
	if _, err := s.actor(ctx, actorID); err != nil {
		return err
	}

	req, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	return s.notifier.SetRequestNotificationStatus(ctx, req.ID, actorID, model.NotificationRead)
}

// Dispatch records shipment of an accepted request by its acceptor
func (s *RequestService) Dispatch(ctx context.Context, actorID, id string, in *model.RequestDispatch) (*model.Request, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	req, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != model.StatusAccepted {
		return nil, apperr.Conflict("invalid_state", "cannot dispatch a %s request", req.Status)
	}
	if req.AcceptedBy == nil || *req.AcceptedBy != actor.ID {
		return nil, apperr.Forbidden("only the accepting party can dispatch")
	}

	info := &model.DispatchInfo{
		RequestID:    req.ID,
		TrackingID:   uuid.NewString(),
		Transport:    in.Transport,
		StaffName:    in.StaffName,
		DispatchedBy: actor.ID,
		DispatchedAt: time.Now(),
	}

	ok, err := s.requestStore.CreateDispatch(ctx, info)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("invalid_state", "request changed state")
	}
	req.Status = model.StatusDispatched
	req.Dispatch = info

	msg := fmt.Sprintf("%s dispatched %d unit(s) of %s blood (tracking %s)",
		actor.Name, req.Units, req.BloodGroup, info.TrackingID)
	if err := s.notifier.NotifyUser(ctx, req.RequesterID, &req.ID, model.EventRequestDispatched, msg); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventRequestDispatched, req, actor.ID)
	return req, nil
}

// Complete confirms physical receipt by the requester. The status flip, the
// stock-transfer inventory credit, and the fulfiller's counters commit
// together.
func (s *RequestService) Complete(ctx context.Context, actorID, id string) (*model.Request, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	req, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != actor.ID {
		return nil, apperr.Forbidden("only the requester can confirm receipt")
	}
	if req.Status != model.StatusAccepted && req.Status != model.StatusDispatched {
		return nil, apperr.Conflict("invalid_state", "cannot complete a %s request", req.Status)
	}
	if req.AcceptedBy == nil {
		return nil, apperr.Conflict("invalid_state", "request has no accepting party")
	}

	fulfiller, err := s.userStore.GetByID(ctx, *req.AcceptedBy)
	if err != nil {
		return nil, err
	}
	if fulfiller == nil {
		return nil, apperr.NotFound("accepting party")
	}

	ok, err := s.requestStore.Complete(ctx, req, fulfiller, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("invalid_state", "request changed state")
	}
	req.Status = model.StatusCompleted

	s.publish(ctx, events.EventRequestCompleted, req, actor.ID)
	return req, nil
}

// Cancel withdraws a request by its requester while still open or accepted.
// An acceptor who already committed is notified.
func (s *RequestService) Cancel(ctx context.Context, actorID, id string) (*model.Request, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	req, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != actor.ID {
		return nil, apperr.Forbidden("only the requester can cancel")
	}
	if req.Status != model.StatusActive && req.Status != model.StatusAccepted {
		return nil, apperr.Conflict("invalid_state", "cannot cancel a %s request", req.Status)
	}

	ok, err := s.requestStore.UpdateStatus(ctx, req.ID, model.StatusCancelled, "", model.StatusActive, model.StatusAccepted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("invalid_state", "request changed state")
	}
	req.Status = model.StatusCancelled

	if req.AcceptedBy != nil {
		msg := fmt.Sprintf("%s cancelled the %s blood request you accepted", actor.Name, req.BloodGroup)
		if err := s.notifier.NotifyUser(ctx, *req.AcceptedBy, &req.ID, model.EventRequestCancelled, msg); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, events.EventRequestCancelled, req, actor.ID)
	return req, nil
}

// Delete permanently removes a broadcast that nobody accepted, by its owner.
// Notifications cascade with it.
func (s *RequestService) Delete(ctx context.Context, actorID, id string) error {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return err
	}

	req, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if req.RequesterID != actor.ID {
		return apperr.Forbidden("only the requester can delete")
	}
	if !req.Broadcast() {
		return apperr.Conflict("invalid_state", "only broadcasts can be deleted")
	}
	if req.AcceptedBy != nil || model.TerminalStatus(req.Status) {
		return apperr.Conflict("invalid_state", "request can no longer be deleted")
	}

	if err := s.requestStore.Delete(ctx, req.ID); err != nil {
		return err
	}

	s.publish(ctx, events.EventRequestDeleted, req, actor.ID)
	return nil
}

// get fetches a request and applies read-time expiry
func (s *RequestService) get(ctx context.Context, id string) (*model.Request, error) {
	req, err := s.requestStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperr.NotFound("request")
	}

	req.Status = req.EffectiveStatus(time.Now())
	return req, nil
}

func (s *RequestService) actor(ctx context.Context, actorID string) (*model.User, error) {
	actor, err := s.userStore.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, apperr.Unauthorized("unknown user")
	}
	return actor, nil
}

func (s *RequestService) visible(req *model.Request, viewer *model.User) bool {
	if viewer.Role == model.RoleAdmin || req.RequesterID == viewer.ID {
		return true
	}
	if req.ResponderID != nil && *req.ResponderID == viewer.ID {
		return true
	}
	if req.AcceptedBy != nil {
		return *req.AcceptedBy == viewer.ID
	}
	return req.Broadcast()
}

func (s *RequestService) publish(ctx context.Context, eventType string, req *model.Request, actorID string) {
	s.producer.Publish(ctx, events.RequestEvent{
		Type:       eventType,
		RequestID:  req.ID,
		ActorID:    actorID,
		Status:     req.Status,
		BloodGroup: req.BloodGroup,
		Units:      req.Units,
	})
}
