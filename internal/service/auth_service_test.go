package service

import (
	"context"
	"testing"

	"github.com/yourorg/bloodlink/internal/apperr"
	"github.com/yourorg/bloodlink/internal/model"
)

func TestRegisterLoginRoundTrip(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	resp, err := env.authSvc.Register(ctx, &model.UserRegister{
		Name:       "asha",
		Email:      "asha@example.com",
		Password:   "correct-horse",
		Role:       model.RoleDonor,
		BloodGroup: "O+",
		City:       "Chennai",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("register returned empty token")
	}

	userID, role, err := env.authSvc.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if userID != resp.User.ID || role != model.RoleDonor {
		t.Fatalf("claims = (%s, %s), want (%s, donor)", userID, role, resp.User.ID)
	}

	login, err := env.authSvc.Login(ctx, &model.UserLogin{Email: "asha@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != resp.User.ID {
		t.Fatal("login returned a different user")
	}

	if _, err := env.authSvc.Login(ctx, &model.UserLogin{Email: "asha@example.com", Password: "wrong"}); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("bad password: got %v, want unauthorized", err)
	}
}

func TestRegisterGuards(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// donors need a blood group and city for broadcasts to reach them
	_, err := env.authSvc.Register(ctx, &model.UserRegister{
		Name:     "noinfo",
		Email:    "noinfo@example.com",
		Password: "password123",
		Role:     model.RoleDonor,
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("donor without blood group: got %v, want validation", err)
	}

	if _, err := env.authSvc.Register(ctx, &model.UserRegister{
		Name:       "first",
		Email:      "dup@example.com",
		Password:   "password123",
		Role:       model.RoleDonor,
		BloodGroup: "A+",
		City:       "Salem",
	}); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err = env.authSvc.Register(ctx, &model.UserRegister{
		Name:       "second",
		Email:      "dup@example.com",
		Password:   "password123",
		Role:       model.RoleHospital,
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("duplicate email: got %v, want conflict", err)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	env := newTestEnv()

	if _, _, err := env.authSvc.ValidateToken("not-a-token"); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("garbage token: got %v, want unauthorized", err)
	}
}
