package service

import (
	"context"
	"sync"
	"time"

	"github.com/yourorg/bloodlink/internal/cache"
	"github.com/yourorg/bloodlink/internal/config"
	"github.com/yourorg/bloodlink/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// In-memory fakes mirroring the SQL semantics of the repositories, shared by
// the service tests.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*model.User)}
}

func (f *fakeUserStore) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := *user
	f.users[u.ID] = &u
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	u := *user
	return &u, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			u := *user
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) List(_ context.Context, role string, limit, offset int) ([]model.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []model.User
	for _, user := range f.users {
		if role == "" || user.Role == role {
			users = append(users, *user)
		}
	}
	return users, len(users), nil
}

func (f *fakeUserStore) SearchDonors(_ context.Context, bloodGroup string, cities []string, eligibleOnly bool, minDays int) ([]model.DonorSearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -minDays)
	var results []model.DonorSearchResult
	for _, u := range f.users {
		if u.Role != model.RoleDonor || u.BloodGroup != bloodGroup {
			continue
		}
		if len(cities) > 0 && !contains(cities, u.City) {
			continue
		}
		if eligibleOnly && u.LastDonationAt != nil && u.LastDonationAt.After(cutoff) {
			continue
		}
		results = append(results, model.DonorSearchResult{
			ID:             u.ID,
			Name:           u.Name,
			BloodGroup:     u.BloodGroup,
			City:           u.City,
			LastDonationAt: u.LastDonationAt,
			DonationCount:  u.DonationCount,
		})
	}
	return results, nil
}

func (f *fakeUserStore) RecordDonation(_ context.Context, donorID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[donorID]; ok {
		t := at
		u.LastDonationAt = &t
		u.DonationCount++
	}
	return nil
}

type fakeInventoryStore struct {
	mu    sync.Mutex
	stock map[string]map[string]int
}

func newFakeInventoryStore() *fakeInventoryStore {
	return &fakeInventoryStore{stock: make(map[string]map[string]int)}
}

func (f *fakeInventoryStore) GetByHospital(_ context.Context, hospitalID string) ([]model.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []model.InventoryItem
	for bg, units := range f.stock[hospitalID] {
		items = append(items, model.InventoryItem{HospitalID: hospitalID, BloodGroup: bg, Units: units})
	}
	return items, nil
}

func (f *fakeInventoryStore) Set(_ context.Context, hospitalID, bloodGroup string, units int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.add(hospitalID, bloodGroup, units, true)
	return nil
}

func (f *fakeInventoryStore) add(hospitalID, bloodGroup string, units int, absolute bool) {
	if f.stock[hospitalID] == nil {
		f.stock[hospitalID] = make(map[string]int)
	}
	if absolute {
		f.stock[hospitalID][bloodGroup] = units
	} else {
		f.stock[hospitalID][bloodGroup] += units
	}
}

func (f *fakeInventoryStore) units(hospitalID, bloodGroup string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stock[hospitalID][bloodGroup]
}

type fakeRequestStore struct {
	mu         sync.Mutex
	requests   map[string]*model.Request
	dispatches map[string]*model.DispatchInfo
	users      *fakeUserStore
	inventory  *fakeInventoryStore
}

func newFakeRequestStore(users *fakeUserStore, inventory *fakeInventoryStore) *fakeRequestStore {
	return &fakeRequestStore{
		requests:   make(map[string]*model.Request),
		dispatches: make(map[string]*model.DispatchInfo),
		users:      users,
		inventory:  inventory,
	}
}

func (f *fakeRequestStore) Create(_ context.Context, req *model.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := *req
	f.requests[r.ID] = &r
	return nil
}

func (f *fakeRequestStore) GetByID(_ context.Context, id string) (*model.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, nil
	}
	r := *req
	r.Status = r.EffectiveStatus(time.Now())
	r.Dispatch = f.dispatches[id]
	return &r, nil
}

func (f *fakeRequestStore) ListForViewer(_ context.Context, viewer *model.User) ([]model.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	var out []model.Request
	for _, req := range f.requests {
		visible := false
		switch {
		case viewer.Role == model.RoleAdmin:
			visible = true
		case req.RequesterID == viewer.ID:
			visible = true
		case req.AcceptedBy != nil && *req.AcceptedBy == viewer.ID:
			visible = true
		case req.ResponderID != nil && *req.ResponderID == viewer.ID:
			visible = true
		case viewer.Role == model.RoleDonor && req.Broadcast() && req.AcceptedBy == nil &&
			req.Status == model.StatusActive && req.BloodGroup == viewer.BloodGroup &&
			contains(req.Cities, viewer.City) && req.Open(now):
			visible = true
		}
		if !visible {
			continue
		}
		r := *req
		r.Status = r.EffectiveStatus(now)
		r.IsOutgoing = r.RequesterID == viewer.ID
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRequestStore) Accept(_ context.Context, requestID, actorID, message string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok || req.Status != model.StatusActive || req.AcceptedBy != nil {
		return false, nil
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		return false, nil
	}
	id := actorID
	req.Status = model.StatusAccepted
	req.AcceptedBy = &id
	req.ResponseMessage = message
	return true, nil
}

func (f *fakeRequestStore) RejectBroadcast(_ context.Context, id, reason string) (*model.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok || req.Status != model.StatusActive {
		return nil, nil
	}
	req.RejectedCount++
	req.RejectionReason = reason
	if req.RejectedCount >= req.NotifiedDonorCount {
		req.Status = model.StatusRejected
	}
	r := *req
	return &r, nil
}

func (f *fakeRequestStore) UpdateStatus(_ context.Context, id, status, reason string, from ...string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok || !contains(from, req.Status) {
		return false, nil
	}
	req.Status = status
	if reason != "" {
		req.RejectionReason = reason
	}
	return true, nil
}

func (f *fakeRequestStore) SetNotifiedCount(_ context.Context, id string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req, ok := f.requests[id]; ok {
		req.NotifiedDonorCount = count
	}
	return nil
}

func (f *fakeRequestStore) CreateDispatch(_ context.Context, info *model.DispatchInfo) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[info.RequestID]
	if !ok || req.Status != model.StatusAccepted {
		return false, nil
	}
	i := *info
	f.dispatches[i.RequestID] = &i
	req.Status = model.StatusDispatched
	return true, nil
}

func (f *fakeRequestStore) Complete(ctx context.Context, req *model.Request, fulfiller *model.User, completedAt time.Time) (bool, error) {
	f.mu.Lock()
	r, ok := f.requests[req.ID]
	if !ok || (r.Status != model.StatusAccepted && r.Status != model.StatusDispatched) {
		f.mu.Unlock()
		return false, nil
	}
	r.Status = model.StatusCompleted
	f.mu.Unlock()

	if req.Type == model.TypeStockTransfer {
		f.inventory.mu.Lock()
		f.inventory.add(req.RequesterID, req.BloodGroup, req.Units, false)
		f.inventory.mu.Unlock()
	}

	switch fulfiller.Role {
	case model.RoleDonor:
		return true, f.users.RecordDonation(ctx, fulfiller.ID, completedAt)
	case model.RoleHospital:
		f.users.mu.Lock()
		if u, ok := f.users.users[fulfiller.ID]; ok {
			u.TransferCount++
		}
		f.users.mu.Unlock()
	}
	return true, nil
}

func (f *fakeRequestStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.requests, id)
	return nil
}

type fakeNotificationStore struct {
	mu            sync.Mutex
	notifications []*model.Notification
	users         *fakeUserStore
}

func newFakeNotificationStore(users *fakeUserStore) *fakeNotificationStore {
	return &fakeNotificationStore{users: users}
}

func (f *fakeNotificationStore) FanOut(_ context.Context, req *model.Request, event, message string, minDays int) ([]string, error) {
	f.users.mu.Lock()
	recipients := make([]string, 0)
	cutoff := time.Now().AddDate(0, 0, -minDays)
	for _, u := range f.users.users {
		if u.Role != model.RoleDonor || u.BloodGroup != req.BloodGroup || u.ID == req.RequesterID {
			continue
		}
		if !contains(req.Cities, u.City) {
			continue
		}
		if u.LastDonationAt != nil && u.LastDonationAt.After(cutoff) {
			continue
		}
		recipients = append(recipients, u.ID)
	}
	f.users.mu.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	var notified []string
	for _, userID := range recipients {
		if f.exists(userID, req.ID, event) {
			continue
		}
		f.notifications = append(f.notifications, &model.Notification{
			ID:        uuid.NewString(),
			UserID:    userID,
			RequestID: &req.ID,
			Event:     event,
			Status:    model.NotificationUnread,
			Message:   message,
			CreatedAt: time.Now(),
			ExpiresAt: req.ExpiresAt,
		})
		notified = append(notified, userID)
	}
	return notified, nil
}

func (f *fakeNotificationStore) Notify(_ context.Context, userID string, requestID *string, event, message string, expiresAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if requestID != nil && f.exists(userID, *requestID, event) {
		return nil
	}
	f.notifications = append(f.notifications, &model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		RequestID: requestID,
		Event:     event,
		Status:    model.NotificationUnread,
		Message:   message,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	})
	return nil
}

func (f *fakeNotificationStore) exists(userID, requestID, event string) bool {
	for _, n := range f.notifications {
		if n.UserID == userID && n.RequestID != nil && *n.RequestID == requestID && n.Event == event {
			return true
		}
	}
	return false
}

func (f *fakeNotificationStore) ListByUser(_ context.Context, userID string, limit, offset int) ([]model.Notification, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	unread := 0
	for _, n := range f.notifications {
		if n.UserID != userID {
			continue
		}
		out = append(out, *n)
		if n.Status == model.NotificationUnread {
			unread++
		}
	}
	return out, unread, nil
}

func (f *fakeNotificationStore) UnreadCount(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.notifications {
		if n.UserID == userID && n.Status == model.NotificationUnread {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationStore) GetByID(_ context.Context, id string) (*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notifications {
		if n.ID == id {
			out := *n
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeNotificationStore) SetStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notifications {
		if n.ID == id {
			n.Status = status
		}
	}
	return nil
}

func (f *fakeNotificationStore) SetStatusForRequest(_ context.Context, requestID, userID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notifications {
		if n.UserID == userID && n.RequestID != nil && *n.RequestID == requestID && pending(n.Status) {
			n.Status = status
		}
	}
	return nil
}

func (f *fakeNotificationStore) MarkDeclined(_ context.Context, requestID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	declined := false
	for _, n := range f.notifications {
		if n.UserID == userID && n.RequestID != nil && *n.RequestID == requestID && pending(n.Status) {
			n.Status = model.NotificationRejected
			declined = true
		}
	}
	return declined, nil
}

func pending(status string) bool {
	return status == model.NotificationUnread || status == model.NotificationRead
}

func (f *fakeNotificationStore) MarkAllRead(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.notifications {
		if n.UserID == userID && n.Status == model.NotificationUnread {
			n.Status = model.NotificationRead
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationStore) forUser(userID string) []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out
}

type fakeAppointmentStore struct {
	mu    sync.Mutex
	appts map[string]*model.Appointment
	users *fakeUserStore
}

func newFakeAppointmentStore(users *fakeUserStore) *fakeAppointmentStore {
	return &fakeAppointmentStore{appts: make(map[string]*model.Appointment), users: users}
}

func (f *fakeAppointmentStore) Create(_ context.Context, appt *model.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := *appt
	f.appts[a.ID] = &a
	return nil
}

func (f *fakeAppointmentStore) GetByID(_ context.Context, id string) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appt, ok := f.appts[id]
	if !ok {
		return nil, nil
	}
	a := *appt
	return &a, nil
}

func (f *fakeAppointmentStore) ListForViewer(_ context.Context, viewerID string) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Appointment
	for _, a := range f.appts {
		if a.DonorID == viewerID || a.HospitalID == viewerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAppointmentStore) UpdateStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.appts[id]; ok {
		a.Status = status
	}
	return nil
}

func (f *fakeAppointmentStore) Complete(ctx context.Context, id, donorID string, completedAt time.Time) error {
	f.mu.Lock()
	if a, ok := f.appts[id]; ok {
		a.Status = model.AppointmentCompleted
	}
	f.mu.Unlock()
	return f.users.RecordDonation(ctx, donorID, completedAt)
}

// testEnv wires the services over the fakes the way main wires them over the
// repositories
type testEnv struct {
	users        *fakeUserStore
	requests     *fakeRequestStore
	notifs       *fakeNotificationStore
	inventory    *fakeInventoryStore
	appts        *fakeAppointmentStore
	authSvc      *AuthService
	requestSvc   *RequestService
	notifSvc     *NotificationService
	donorSvc     *DonorService
	inventorySvc *InventoryService
	apptSvc      *AppointmentService
}

func newTestEnv() *testEnv {
	logger := zap.NewNop()
	users := newFakeUserStore()
	inventory := newFakeInventoryStore()
	requests := newFakeRequestStore(users, inventory)
	notifs := newFakeNotificationStore(users)
	appts := newFakeAppointmentStore(users)

	countCache := cache.NewNotificationCache(nil, 0, logger)
	notifSvc := NewNotificationService(notifs, countCache, 60, logger)

	return &testEnv{
		users:        users,
		requests:     requests,
		notifs:       notifs,
		inventory:    inventory,
		appts:        appts,
		authSvc:      NewAuthService(users, config.AuthConfig{JWTSecret: "test-secret", AccessTokenDuration: time.Hour}, logger),
		requestSvc:   NewRequestService(requests, users, notifSvc, nil, logger),
		notifSvc:     notifSvc,
		donorSvc:     NewDonorService(users, 60, logger),
		inventorySvc: NewInventoryService(inventory, users, logger),
		apptSvc:      NewAppointmentService(appts, users, notifSvc, logger),
	}
}

func (e *testEnv) addUser(u model.User) model.User {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	e.users.Create(context.Background(), &u)
	return u
}

func (e *testEnv) addDonor(name, bloodGroup, city string, lastDonation *time.Time) model.User {
	return e.addUser(model.User{
		Name:           name,
		Email:          name + "@example.com",
		Role:           model.RoleDonor,
		BloodGroup:     bloodGroup,
		City:           city,
		LastDonationAt: lastDonation,
	})
}

func (e *testEnv) addHospital(name, city string) model.User {
	return e.addUser(model.User{
		Name:  name,
		Email: name + "@example.com",
		Role:  model.RoleHospital,
		City:  city,
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func daysAgo(n int) *time.Time {
	t := time.Now().AddDate(0, 0, -n)
	return &t
}
