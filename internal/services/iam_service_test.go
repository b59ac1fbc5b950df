package services

import (
	"context"
	"testing"

	"github.com/akmatori/opsconsole/internal/models"
)

func TestIAMService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)
	meta := LoginMeta{IP: "10.0.0.9", UserAgent: "test"}

	tests := []struct {
		name     string
		input    LoginInput
		wantErr  bool
		wantUser string
	}{
		{"username", LoginInput{Username: "alex.chen", Password: "admin123"}, false, "usr-001"},
		{"email any case", LoginInput{Username: "Maria.Lopez@example.com", Password: "operator123"}, false, "usr-002"},
		{"wrong password", LoginInput{Username: "alex.chen", Password: "nope"}, true, ""},
		{"unknown user", LoginInput{Username: "ghost", Password: "admin123"}, true, ""},
		{"inactive user", LoginInput{Username: "tom.becker", Password: "viewer123"}, true, ""},
		{"no credential", LoginInput{Username: "priya.nair", Password: "anything"}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.IAM.Authenticate(ctx, tt.input, meta)
			if tt.wantErr {
				assertStatus(t, err, 401)
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if user.ID != tt.wantUser || user.LastLoginAt == nil {
				t.Errorf("Authenticate() = %s last_login=%v", user.ID, user.LastLoginAt)
			}
		})
	}

	history, _ := svc.IAM.LoginHistory(ctx, "usr-001")
	// two seeded attempts plus one success and one failure
	if len(history) != 4 {
		t.Fatalf("LoginHistory() = %d records, want 4", len(history))
	}
	if history[0].Success || history[0].IP != "10.0.0.9" {
		t.Errorf("newest record = %+v, want the failed attempt", history[0])
	}
}

func TestIAMService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	err := svc.IAM.ChangePassword(ctx, "usr-002", ChangePasswordInput{CurrentPassword: "wrong", NewPassword: "brandnew123"})
	assertStatus(t, err, 400)

	err = svc.IAM.ChangePassword(ctx, "usr-002", ChangePasswordInput{CurrentPassword: "operator123", NewPassword: "operator123"})
	assertStatus(t, err, 400)

	if err := svc.IAM.ChangePassword(ctx, "usr-002", ChangePasswordInput{CurrentPassword: "operator123", NewPassword: "brandnew123"}); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if _, err := svc.IAM.Authenticate(ctx, LoginInput{Username: "maria.lopez", Password: "brandnew123"}, LoginMeta{}); err != nil {
		t.Errorf("login with the new password failed: %v", err)
	}
	_, err = svc.IAM.Authenticate(ctx, LoginInput{Username: "maria.lopez", Password: "operator123"}, LoginMeta{})
	assertStatus(t, err, 401)
}

func TestIAMService_CreateUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	user, err := svc.IAM.CreateUser(ctx, "usr-001", CreateUserInput{Name: "Lee Park", Username: "lee.park", Email: "lee@example.com", Password: "longenough"})
	if err != nil {
		t.Fatal(err)
	}
	if user.Status != models.UserStatusInvited {
		t.Errorf("Status = %q, want invited", user.Status)
	}

	// first login activates an invited user
	logged, err := svc.IAM.Authenticate(ctx, LoginInput{Username: "lee.park", Password: "longenough"}, LoginMeta{})
	if err != nil {
		t.Fatal(err)
	}
	if logged.Status != models.UserStatusActive {
		t.Errorf("Status after login = %q", logged.Status)
	}

	_, err = svc.IAM.CreateUser(ctx, "usr-001", CreateUserInput{Name: "Dup", Username: "ALEX.CHEN", Email: "dup@example.com"})
	assertStatus(t, err, 409)
}

func TestIAMService_UpdateUserEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	_, err := svc.IAM.UpdateUser(ctx, "usr-001", "usr-003", patchOf(t, map[string]interface{}{"email": "not-an-email"}))
	assertStatus(t, err, 422)

	_, err = svc.IAM.UpdateUser(ctx, "usr-001", "usr-003", patchOf(t, map[string]interface{}{"email": "alex.chen@example.com"}))
	assertStatus(t, err, 409)

	updated, err := svc.IAM.UpdateUser(ctx, "usr-001", "usr-003", patchOf(t, map[string]interface{}{"phone": "+81-3-0000"}))
	if err != nil {
		t.Fatal(err)
	}
	if updated.Phone != "+81-3-0000" || updated.Email != "kenji.sato@example.com" {
		t.Errorf("updated = %+v", updated)
	}
}

func TestIAMService_DeleteRules(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	assertStatus(t, svc.IAM.DeleteUser(ctx, "usr-001", "usr-001"), 400)
	assertStatus(t, svc.IAM.DeleteRole(ctx, "usr-001", "role-001"), 400)

	if err := svc.IAM.DeleteUser(ctx, "usr-001", "usr-002"); err != nil {
		t.Fatal(err)
	}
	_, err := svc.IAM.ActiveUser(ctx, "usr-002")
	assertStatus(t, err, 401)
	_, err = svc.IAM.Authenticate(ctx, LoginInput{Username: "maria.lopez", Password: "operator123"}, LoginMeta{})
	assertStatus(t, err, 401)
}

func TestIAMService_Preferences(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	defaults, err := svc.IAM.Preferences(ctx, "usr-003")
	if err != nil {
		t.Fatal(err)
	}
	if defaults.Theme != "light" || defaults.DefaultPage != "/dashboard" {
		t.Errorf("defaults = %+v", defaults)
	}

	saved, err := svc.IAM.UpdatePreferences(ctx, "usr-003", patchOf(t, map[string]interface{}{"theme": "dark"}))
	if err != nil {
		t.Fatal(err)
	}
	if saved.Theme != "dark" || saved.Language != "en" {
		t.Errorf("saved = %+v", saved)
	}
	again, _ := svc.IAM.Preferences(ctx, "usr-003")
	if again.Theme != "dark" {
		t.Errorf("preferences not stored: %+v", again)
	}

	seeded, _ := svc.IAM.Preferences(ctx, "usr-001")
	if seeded.Theme != "dark" || seeded.DefaultPage != "/incidents" {
		t.Errorf("seeded = %+v", seeded)
	}
}
