package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/akmatori/opsconsole/internal/apierr"
	"github.com/akmatori/opsconsole/internal/events"
	"github.com/akmatori/opsconsole/internal/models"
)

var fieldValidator = validator.New()

// CreateUserInput is the body of POST /users
type CreateUserInput struct {
	Name     string            `json:"name" validate:"required"`
	Username string            `json:"username" validate:"required"`
	Email    string            `json:"email" validate:"required,email"`
	Phone    string            `json:"phone,omitempty"`
	Role     string            `json:"role"`
	Team     string            `json:"team"`
	Status   models.UserStatus `json:"status,omitempty" validate:"omitempty,oneof=active invited inactive"`
	Password string            `json:"password,omitempty" validate:"omitempty,min=8"`
}

// LoginInput is the body of POST /auth/login. Username may also be an email address.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginMeta describes the client of a login attempt
type LoginMeta struct {
	IP        string
	UserAgent string
}

// ChangePasswordInput is the body of POST /me/change-password
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// IAMService manages users, teams, roles and the acting user's own profile
type IAMService struct {
	store   *Store
	changes changes
	now     func() time.Time
}

// NewIAMService creates a new IAMService
func NewIAMService(store *Store, audit *AuditService, publisher events.Publisher) *IAMService {
	return &IAMService{
		store:   store,
		changes: changes{audit: audit, events: publisher},
		now:     time.Now,
	}
}

// ========== Users ==========

// ListUsers returns users, optionally narrowed by role, team, status and keyword
func (s *IAMService) ListUsers(ctx context.Context, role, team, status, keyword string) ([]models.User, error) {
	keyword = strings.ToLower(keyword)
	return s.store.Users.Filter(ctx, func(u *models.User) bool {
		if (role != "" && u.Role != role) || (team != "" && u.Team != team) || (status != "" && string(u.Status) != status) {
			return false
		}
		return keyword == "" ||
			strings.Contains(strings.ToLower(u.Name), keyword) ||
			strings.Contains(strings.ToLower(u.Username), keyword) ||
			strings.Contains(strings.ToLower(u.Email), keyword)
	})
}

// GetUser returns one user
func (s *IAMService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.store.Users.Get(ctx, id)
}

// checkUnique rejects a username or email already used by another active user
func (s *IAMService) checkUnique(ctx context.Context, id, username, email string) error {
	clash, err := s.store.Users.Filter(ctx, func(u *models.User) bool {
		return u.ID != id && (strings.EqualFold(u.Username, username) || strings.EqualFold(u.Email, email))
	})
	if err != nil {
		return err
	}
	if len(clash) > 0 {
		return apierr.Conflict("username or email already in use")
	}
	return nil
}

// CreateUser stores a new user. Status defaults to invited.
func (s *IAMService) CreateUser(ctx context.Context, userID string, input CreateUserInput) (*models.User, error) {
	if err := s.checkUnique(ctx, "", input.Username, input.Email); err != nil {
		return nil, err
	}
	user := &models.User{
		Name:     input.Name,
		Username: input.Username,
		Email:    input.Email,
		Phone:    input.Phone,
		Role:     input.Role,
		Team:     input.Team,
		Status:   input.Status,
	}
	if user.Status == "" {
		user.Status = models.UserStatusInvited
	}
	created, err := s.store.Users.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if input.Password != "" {
		if err := s.setPassword(ctx, created.ID, input.Password); err != nil {
			return nil, err
		}
	}
	logrus.Infof("Created user: %s (%s)", created.Username, created.ID)
	s.changes.record(ctx, userID, events.TypeCreated, "create", "user", created.ID, map[string]interface{}{"username": created.Username}, created)
	return created, nil
}

// UpdateUser shallow-merges patch over the user; email must stay valid
func (s *IAMService) UpdateUser(ctx context.Context, userID, id string, patch map[string]json.RawMessage) (*models.User, error) {
	current, err := s.store.Users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	preview, err := mergePreview(current, patch)
	if err != nil {
		return nil, err
	}
	if err := fieldValidator.Var(preview.Email, "required,email"); err != nil {
		return nil, apierr.Validation(map[string]string{"email": "must be a valid email address"})
	}
	if err := s.checkUnique(ctx, id, preview.Username, preview.Email); err != nil {
		return nil, err
	}

	updated, err := s.store.Users.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "user", id, map[string]interface{}{"fields": patchKeys(patch)}, updated)
	return updated, nil
}

// DeleteUser soft-deletes a user and its credential
func (s *IAMService) DeleteUser(ctx context.Context, userID, id string) error {
	if id == userID {
		return apierr.BadRequest("you cannot delete your own account")
	}
	if err := s.store.Users.SoftDelete(ctx, id); err != nil {
		return err
	}
	if err := s.store.Credentials.SoftDelete(ctx, id); err != nil && !apierr.IsNotFound(err) {
		logrus.Warnf("Failed to remove credential of user %s: %v", id, err)
	}
	s.changes.record(ctx, userID, events.TypeDeleted, "delete", "user", id, nil, nil)
	return nil
}

// ========== Teams ==========

// ListTeams returns every active team
func (s *IAMService) ListTeams(ctx context.Context) ([]models.Team, error) {
	return s.store.Teams.List(ctx)
}

// GetTeam returns one team
func (s *IAMService) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	return s.store.Teams.Get(ctx, id)
}

// CreateTeam stores a new team
func (s *IAMService) CreateTeam(ctx context.Context, userID string, team *models.Team) (*models.Team, error) {
	team.ID = ""
	if strings.TrimSpace(team.Name) == "" {
		return nil, apierr.BadRequest("name is required")
	}
	created, err := s.store.Teams.Create(ctx, team)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	s.changes.record(ctx, userID, events.TypeCreated, "create", "team", created.ID, map[string]interface{}{"name": created.Name}, created)
	return created, nil
}

// UpdateTeam shallow-merges patch over the team
func (s *IAMService) UpdateTeam(ctx context.Context, userID, id string, patch map[string]json.RawMessage) (*models.Team, error) {
	updated, err := s.store.Teams.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "team", id, map[string]interface{}{"fields": patchKeys(patch)}, updated)
	return updated, nil
}

// DeleteTeam soft-deletes a team
func (s *IAMService) DeleteTeam(ctx context.Context, userID, id string) error {
	if err := s.store.Teams.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.changes.record(ctx, userID, events.TypeDeleted, "delete", "team", id, nil, nil)
	return nil
}

// ========== Roles ==========

// ListRoles returns every active role
func (s *IAMService) ListRoles(ctx context.Context) ([]models.Role, error) {
	return s.store.Roles.List(ctx)
}

// GetRole returns one role
func (s *IAMService) GetRole(ctx context.Context, id string) (*models.Role, error) {
	return s.store.Roles.Get(ctx, id)
}

// CreateRole stores a new custom role
func (s *IAMService) CreateRole(ctx context.Context, userID string, role *models.Role) (*models.Role, error) {
	role.ID = ""
	role.BuiltIn = false
	if strings.TrimSpace(role.Name) == "" {
		return nil, apierr.BadRequest("name is required")
	}
	created, err := s.store.Roles.Create(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	s.changes.record(ctx, userID, events.TypeCreated, "create", "role", created.ID, map[string]interface{}{"name": created.Name}, created)
	return created, nil
}

// UpdateRole shallow-merges patch over the role. built_in cannot be changed.
func (s *IAMService) UpdateRole(ctx context.Context, userID, id string, patch map[string]json.RawMessage) (*models.Role, error) {
	delete(patch, "built_in")
	updated, err := s.store.Roles.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "role", id, map[string]interface{}{"fields": patchKeys(patch)}, updated)
	return updated, nil
}

// DeleteRole soft-deletes a custom role. Built-in roles are kept.
func (s *IAMService) DeleteRole(ctx context.Context, userID, id string) error {
	role, err := s.store.Roles.Get(ctx, id)
	if err != nil {
		return err
	}
	if role.BuiltIn {
		return apierr.BadRequest("built-in role %s cannot be deleted", role.Name)
	}
	if err := s.store.Roles.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.changes.record(ctx, userID, events.TypeDeleted, "delete", "role", id, nil, nil)
	return nil
}

// ========== Current User ==========

// Me returns the acting user
func (s *IAMService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.store.Users.Get(ctx, userID)
}

func defaultPreferences(userID string) *models.UserPreferences {
	prefs := &models.UserPreferences{
		Theme:                "light",
		Language:             "en",
		Timezone:             "UTC",
		DefaultPage:          "/dashboard",
		NotificationsEnabled: true,
	}
	prefs.ID = userID
	return prefs
}

// Preferences returns the acting user's preferences, defaults when none are stored
func (s *IAMService) Preferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	prefs, err := s.store.Preferences.Get(ctx, userID)
	if apierr.IsNotFound(err) {
		return defaultPreferences(userID), nil
	}
	return prefs, err
}

// UpdatePreferences shallow-merges patch over the current preferences and stores them
func (s *IAMService) UpdatePreferences(ctx context.Context, userID string, patch map[string]json.RawMessage) (*models.UserPreferences, error) {
	current, err := s.Preferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	merged, err := mergePreview(current, patch)
	if err != nil {
		return nil, err
	}
	merged.ID = userID
	saved, err := s.store.Preferences.Upsert(ctx, merged)
	if err != nil {
		return nil, err
	}
	s.changes.record(ctx, userID, events.TypeUpdated, "update", "preferences", userID, map[string]interface{}{"fields": patchKeys(patch)}, saved)
	return saved, nil
}

// LoginHistory returns the acting user's login attempts, newest first
func (s *IAMService) LoginHistory(ctx context.Context, userID string) ([]models.LoginRecord, error) {
	return s.store.LoginHistory.Filter(ctx, func(r *models.LoginRecord) bool {
		return r.UserID == userID
	})
}

// ChangePassword replaces the acting user's password after checking the current one
func (s *IAMService) ChangePassword(ctx context.Context, userID string, input ChangePasswordInput) error {
	if _, err := s.store.Users.Get(ctx, userID); err != nil {
		return err
	}
	cred, err := s.store.Credentials.Get(ctx, userID)
	if err != nil && !apierr.IsNotFound(err) {
		return err
	}
	if cred == nil || bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(input.CurrentPassword)) != nil {
		return apierr.BadRequest("Current password is incorrect")
	}
	if input.NewPassword == input.CurrentPassword {
		return apierr.BadRequest("New password must differ from the current password")
	}
	if err := s.setPassword(ctx, userID, input.NewPassword); err != nil {
		return err
	}
	s.changes.record(ctx, userID, events.TypeAction, "change_password", "user", userID, nil, nil)
	return nil
}

func (s *IAMService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	cred := &models.Credential{PasswordHash: string(hash)}
	cred.ID = userID
	if _, err := s.store.Credentials.Upsert(ctx, cred); err != nil {
		return fmt.Errorf("failed to store password: %w", err)
	}
	return nil
}

// ========== Authentication ==========

var errInvalidLogin = apierr.Unauthorized("Invalid username or password")

// Authenticate checks a username (or email) and password and records the attempt
// in the user's login history. Inactive users cannot log in.
func (s *IAMService) Authenticate(ctx context.Context, input LoginInput, meta LoginMeta) (*models.User, error) {
	matches, err := s.store.Users.Filter(ctx, func(u *models.User) bool {
		return strings.EqualFold(u.Username, input.Username) || strings.EqualFold(u.Email, input.Username)
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		logrus.Warnf("Login attempt for unknown user %q", input.Username)
		return nil, errInvalidLogin
	}
	user := &matches[0]

	ok := false
	cred, err := s.store.Credentials.Get(ctx, user.ID)
	switch {
	case err == nil:
		ok = bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(input.Password)) == nil
	case !apierr.IsNotFound(err):
		return nil, err
	}
	s.recordLogin(ctx, user.ID, meta, ok)
	if !ok {
		return nil, errInvalidLogin
	}
	if user.Status == models.UserStatusInactive {
		return nil, apierr.Unauthorized("Account %s is inactive", user.Username)
	}

	now := s.now().UTC()
	updated, err := s.store.Users.Mutate(ctx, user.ID, func(u *models.User) error {
		u.LastLoginAt = &now
		if u.Status == models.UserStatusInvited {
			u.Status = models.UserStatusActive
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.Infof("User %s logged in", user.Username)
	return updated, nil
}

func (s *IAMService) recordLogin(ctx context.Context, userID string, meta LoginMeta, success bool) {
	ip := meta.IP
	if ip == "" {
		ip = loopbackIP
	}
	record := &models.LoginRecord{
		UserID:    userID,
		IP:        ip,
		UserAgent: meta.UserAgent,
		Success:   success,
		Timestamp: s.now().UTC(),
	}
	if _, err := s.store.LoginHistory.Create(ctx, record); err != nil {
		logrus.Warnf("Failed to record login of %s: %v", userID, err)
	}
}

// ActiveUser returns the user a verified token belongs to; deleted or inactive users are rejected
func (s *IAMService) ActiveUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.Users.Get(ctx, userID)
	if apierr.IsNotFound(err) {
		return nil, apierr.Unauthorized("User no longer exists")
	}
	if err != nil {
		return nil, err
	}
	if user.Status == models.UserStatusInactive {
		return nil, apierr.Unauthorized("Account %s is inactive", user.Username)
	}
	return user, nil
}
