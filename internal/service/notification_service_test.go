package service

import (
	"context"
	"testing"

	"github.com/yourorg/bloodlink/internal/apperr"
	"github.com/yourorg/bloodlink/internal/model"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

func TestMarkReadIsIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	requester := env.addDonor("hari", "O+", "Chennai", nil)
	donor := env.addDonor("nisha", "O+", "Chennai", nil)

	if _, err := env.requestSvc.Create(ctx, requester.ID, &model.RequestCreate{
		Type:       model.TypeP2P,
		BloodGroup: "O+",
		Units:      1,
		Cities:     []string{"Chennai"},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	notifs := env.notifs.forUser(donor.ID)
	if len(notifs) != 1 {
		t.Fatalf("donor has %d notifications, want 1", len(notifs))
	}
	id := notifs[0].ID

	if err := env.notifSvc.MarkRead(ctx, id, donor.ID); err != nil {
		t.Fatalf("first mark read: %v", err)
	}

	count, err := env.notifSvc.UnreadCount(ctx, donor.ID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 0 {
		t.Fatalf("unread = %d, want 0", count)
	}

	// re-marking read is a no-op, not an error
	if err := env.notifSvc.MarkRead(ctx, id, donor.ID); err != nil {
		t.Fatalf("second mark read: %v", err)
	}
}

func TestMarkReadGuards(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	requester := env.addDonor("lakshmi", "B+", "Madurai", nil)
	donor := env.addDonor("karthik", "B+", "Madurai", nil)
	other := env.addDonor("stranger", "AB+", "Madurai", nil)

	if _, err := env.requestSvc.Create(ctx, requester.ID, &model.RequestCreate{
		Type:       model.TypeP2P,
		BloodGroup: "B+",
		Units:      1,
		Cities:     []string{"Madurai"},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := env.notifSvc.MarkRead(ctx, "no-such-id", donor.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("unknown id: got %v, want not found", err)
	}

	id := env.notifs.forUser(donor.ID)[0].ID
	if err := env.notifSvc.MarkRead(ctx, id, other.ID); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("foreign notification: got %v, want forbidden", err)
	}
}

func TestFanOutIsIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	requester := env.addDonor("ganesh", "A+", "Salem", nil)
	env.addDonor("divya", "A+", "Salem", nil)
	env.addDonor("pradeep", "A+", "Salem", nil)

	req, err := env.requestSvc.Create(ctx, requester.ID, &model.RequestCreate{
		Type:       model.TypeP2P,
		BloodGroup: "A+",
		Units:      1,
		Cities:     []string{"Salem"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.NotifiedDonorCount != 2 {
		t.Fatalf("notified = %d, want 2", req.NotifiedDonorCount)
	}

	// re-running the fan-out delivers nothing new
	full, _ := env.requestSvc.Get(ctx, requester.ID, req.ID)
	again, err := env.notifSvc.FanOutRequest(ctx, full)
	if err != nil {
		t.Fatalf("second fan-out: %v", err)
	}
	if again != 0 {
		t.Fatalf("second fan-out delivered %d, want 0", again)
	}
	if n := len(env.notifs.notifications); n != 2 {
		t.Fatalf("%d notifications total, want 2", n)
	}
}

func TestFanOutReturnsNotifiedRecipients(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	requester := env.addDonor("bhavana", "O+", "Salem", nil)
	d1 := env.addDonor("ramesh", "O+", "Salem", nil)
	d2 := env.addDonor("charu", "O+", "Salem", nil)
	env.addDonor("faraway", "O+", "Chennai", nil)

	req := &model.Request{
		ID:          uuid.NewString(),
		RequesterID: requester.ID,
		Type:        model.TypeP2P,
		BloodGroup:  "O+",
		Cities:      pq.StringArray{"Salem"},
		Status:      model.StatusActive,
	}

	// the store reports exactly who was newly notified; unread-count
	// invalidation keys off this list
	recipients, err := env.notifs.FanOut(ctx, req, model.EventUrgentRequest, "needed", 60)
	if err != nil {
		t.Fatalf("fan-out: %v", err)
	}
	if len(recipients) != 2 {
		t.Fatalf("%d recipients, want 2", len(recipients))
	}
	if !contains(recipients, d1.ID) || !contains(recipients, d2.ID) {
		t.Fatalf("recipients = %v, want both city donors", recipients)
	}

	again, err := env.notifs.FanOut(ctx, req, model.EventUrgentRequest, "needed", 60)
	if err != nil {
		t.Fatalf("second fan-out: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second fan-out reported %d recipients, want 0", len(again))
	}
}

func TestFanOutSkipsIneligibleDonors(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	requester := env.addDonor("swati", "O-", "Trichy", nil)
	eligible := env.addDonor("old-donor", "O-", "Trichy", daysAgo(90))
	recent := env.addDonor("recent-donor", "O-", "Trichy", daysAgo(30))
	wrongCity := env.addDonor("far-donor", "O-", "Chennai", nil)

	req, err := env.requestSvc.Create(ctx, requester.ID, &model.RequestCreate{
		Type:       model.TypeEmergencyAlert,
		BloodGroup: "O-",
		Units:      1,
		Cities:     []string{"Trichy"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.NotifiedDonorCount != 1 {
		t.Fatalf("notified = %d, want 1", req.NotifiedDonorCount)
	}

	if got := env.notifs.forUser(eligible.ID); len(got) != 1 {
		t.Fatalf("eligible donor got %d notifications, want 1", len(got))
	}
	if got := env.notifs.forUser(recent.ID); len(got) != 0 {
		t.Fatalf("recently donated donor got %d notifications, want 0", len(got))
	}
	if got := env.notifs.forUser(wrongCity.ID); len(got) != 0 {
		t.Fatalf("out-of-city donor got %d notifications, want 0", len(got))
	}
}

func TestMarkAllRead(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	requester := env.addDonor("deepak", "AB+", "Vellore", nil)
	donor := env.addDonor("janani", "AB+", "Vellore", nil)

	for i := 0; i < 3; i++ {
		if _, err := env.requestSvc.Create(ctx, requester.ID, &model.RequestCreate{
			Type:       model.TypeP2P,
			BloodGroup: "AB+",
			Units:      1,
			Cities:     []string{"Vellore"},
		}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	count, err := env.notifSvc.MarkAllRead(ctx, donor.ID)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if count != 3 {
		t.Fatalf("marked %d, want 3", count)
	}

	unread, _ := env.notifSvc.UnreadCount(ctx, donor.ID)
	if unread != 0 {
		t.Fatalf("unread = %d, want 0", unread)
	}
}
