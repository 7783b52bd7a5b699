package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/authz"
	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/observability/metrics"
	"github.com/yukikurage/team-task-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrDuplicateEmail     = apierrors.New(apierrors.KindConflict, apierrors.ErrCodeDuplicateEmail, "Email already registered")
	ErrInvalidCredentials = apierrors.New(apierrors.KindUnauthenticated, apierrors.ErrCodeInvalidCredentials, "Incorrect email or password")
	ErrUserNotFound       = apierrors.New(apierrors.KindNotFound, apierrors.ErrCodeUserNotFound, "User not found")
	ErrUsernameRequired   = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeInvalidInput, "Username is required")
	ErrUsernameTooLong    = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeInvalidInput, "Username is too long")
	ErrInvalidEmail       = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeInvalidInput, "Email address is invalid")
	ErrPasswordTooShort   = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeInvalidInput, "Password must be at least 8 characters")
	ErrInvalidRole        = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeInvalidRole, "Role must be ADMIN, TEAM_LEADER or MEMBER")
	ErrLeaderOfTeam       = apierrors.New(apierrors.KindConflict, apierrors.ErrCodeLeaderOfTeam, "User leads a team; reassign the team before changing the role")
)

// IdentityService manages users, credentials and session tokens.
type IdentityService struct {
	store    repository.Store
	hasher   PasswordHasher
	tokens   *TokenService
	denylist Denylist
	guard    *Guard
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(store repository.Store, hasher PasswordHasher, tokens *TokenService, denylist Denylist, guard *Guard) *IdentityService {
	return &IdentityService{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		denylist: denylist,
		guard:    guard,
	}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(input RegisterInput) (username, email string, err error) {
	username = strings.TrimSpace(input.Username)
	if username == "" {
		return "", "", ErrUsernameRequired
	}
	if utf8.RuneCountInString(username) > constants.MaxUsernameLength {
		return "", "", ErrUsernameTooLong
	}
	email = normalizeEmail(input.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return "", "", ErrInvalidEmail
	}
	if len(input.Password) < constants.MinPasswordLength {
		return "", "", ErrPasswordTooShort
	}
	return username, email, nil
}

// Register creates an inactive MEMBER. An Admin must activate it before login.
func (s *IdentityService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	username, email, err := validateRegistration(input)
	if err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		Role:         models.RoleMember,
		IsActive:     false,
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Users().FindByEmail(ctx, email); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check email: %w", err)
		}

		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveMutation("user", "register")
	return user, nil
}

// AuthResult is a successful login.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// Authenticate verifies credentials and issues a session token.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.store.Users().FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, authz.ErrUserInactive
	}

	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}, nil
}

// VerifyToken decodes a bearer token and rejects revoked ones.
func (s *IdentityService) VerifyToken(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, apierrors.ErrInvalidOrExpiredToken
	}
	return claims, nil
}

// Logout revokes the token until it expires.
func (s *IdentityService) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	metrics.IncrementRevokedTokens()
	return nil
}

// CurrentUser returns the caller's own profile.
func (s *IdentityService) CurrentUser(ctx context.Context, callerID uuid.UUID) (*models.User, error) {
	user, err := s.store.Users().FindByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// GetUser returns any user's profile.
func (s *IdentityService) GetUser(ctx context.Context, callerID, userID uuid.UUID) (*models.User, error) {
	users := s.store.Users()
	caller, err := loadCaller(ctx, users, callerID)
	if err != nil {
		return nil, err
	}

	user, err := users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound, "user")
	}

	if err := s.guard.Authorize(ctx, caller, authz.ActionViewUser, authz.Target{UserID: user.ID, UserRole: user.Role}); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsersInput filters the Admin user listing.
type ListUsersInput struct {
	Role     *models.Role
	IsActive *bool
	Page     int
	PageSize int
}

// ListUsers returns users for an Admin.
func (s *IdentityService) ListUsers(ctx context.Context, callerID uuid.UUID, input ListUsersInput) ([]models.User, int64, error) {
	users := s.store.Users()
	caller, err := loadCaller(ctx, users, callerID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.guard.Authorize(ctx, caller, authz.ActionListUsers, authz.Target{}); err != nil {
		return nil, 0, err
	}

	list, total, err := users.List(ctx, repository.UserFilter{
		Role:     input.Role,
		IsActive: input.IsActive,
		Page:     input.Page,
		PageSize: input.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return list, total, nil
}

// mutateUser loads caller and target under lock, authorizes action and applies fn.
func (s *IdentityService) mutateUser(ctx context.Context, callerID, userID uuid.UUID, action authz.Action, fn func(tx repository.Store, user *models.User) error) (*models.User, error) {
	var (
		result *models.User
		caller authz.Caller
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		caller, err = loadCaller(ctx, tx.Users(), callerID)
		if err != nil {
			return err
		}

		user, err := tx.Users().FindByIDForUpdate(ctx, userID)
		if err != nil {
			return notFound(err, ErrUserNotFound, "user")
		}

		if err := s.guard.Authorize(ctx, caller, action, authz.Target{UserID: user.ID, UserRole: user.Role}); err != nil {
			return err
		}

		if err := fn(tx, user); err != nil {
			return err
		}

		result = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.guard.Record(ctx, caller, action, "user", result.ID)
	return result, nil
}

// Activate marks a user active. Activating an active user is a no-op.
func (s *IdentityService) Activate(ctx context.Context, callerID, userID uuid.UUID) (*models.User, error) {
	return s.mutateUser(ctx, callerID, userID, authz.ActionActivateUser, func(tx repository.Store, user *models.User) error {
		if user.IsActive {
			return nil
		}
		user.IsActive = true
		if err := tx.Users().Update(ctx, user); err != nil {
			return fmt.Errorf("failed to activate user: %w", err)
		}
		return nil
	})
}

// Deactivate blocks a user from logging in. Deactivating an inactive user is a no-op.
func (s *IdentityService) Deactivate(ctx context.Context, callerID, userID uuid.UUID) (*models.User, error) {
	return s.mutateUser(ctx, callerID, userID, authz.ActionDeactivateUser, func(tx repository.Store, user *models.User) error {
		if !user.IsActive {
			return nil
		}
		user.IsActive = false
		if err := tx.Users().Update(ctx, user); err != nil {
			return fmt.Errorf("failed to deactivate user: %w", err)
		}
		return nil
	})
}

// SetRole changes a user's role. A TEAM_LEADER who still leads a team keeps the role.
func (s *IdentityService) SetRole(ctx context.Context, callerID, userID uuid.UUID, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	return s.mutateUser(ctx, callerID, userID, authz.ActionSetRole, func(tx repository.Store, user *models.User) error {
		if user.Role == role {
			return nil
		}

		if user.Role == models.RoleTeamLeader {
			if _, err := tx.Teams().FindByLeaderID(ctx, user.ID); err == nil {
				return ErrLeaderOfTeam
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to check team leadership: %w", err)
			}
		}

		user.Role = role
		if err := tx.Users().Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		return nil
	})
}

// DeleteUser removes a user and clears every reference to it.
func (s *IdentityService) DeleteUser(ctx context.Context, callerID, userID uuid.UUID) error {
	_, err := s.mutateUser(ctx, callerID, userID, authz.ActionDeleteUser, func(tx repository.Store, user *models.User) error {
		if err := tx.Users().Delete(ctx, user.ID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
	return err
}

// SeedAdmin creates an active ADMIN with the given credentials unless the
// email is already registered. It reports whether a user was created.
func (s *IdentityService) SeedAdmin(ctx context.Context, email, password string) (*models.User, bool, error) {
	email = normalizeEmail(email)
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, false, err
	}

	var (
		user    *models.User
		created bool
	)
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		existing, err := tx.Users().FindByEmail(ctx, email)
		if err == nil {
			user = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check admin: %w", err)
		}

		user = &models.User{
			Username:     "admin",
			Email:        email,
			PasswordHash: hashed,
			Role:         models.RoleAdmin,
			IsActive:     true,
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}

// Promote makes the user with email an active ADMIN. It bypasses the guard
// and is only reachable from the operator CLI.
func (s *IdentityService) Promote(ctx context.Context, email string) (*models.User, error) {
	var user *models.User
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		found, err := tx.Users().FindByEmail(ctx, normalizeEmail(email))
		if err != nil {
			return notFound(err, ErrUserNotFound, "user")
		}
		locked, err := tx.Users().FindByIDForUpdate(ctx, found.ID)
		if err != nil {
			return notFound(err, ErrUserNotFound, "user")
		}

		locked.Role = models.RoleAdmin
		locked.IsActive = true
		if err := tx.Users().Update(ctx, locked); err != nil {
			return fmt.Errorf("failed to promote user: %w", err)
		}
		user = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
