package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hcsem/communityhub/internal/audit"
	"github.com/hcsem/communityhub/internal/cache"
	"github.com/hcsem/communityhub/internal/domain/auditlog"
	"github.com/hcsem/communityhub/internal/domain/role"
	"github.com/hcsem/communityhub/internal/domain/user"
	"github.com/hcsem/communityhub/internal/repo/postgres"
	"github.com/hcsem/communityhub/internal/security"
)

type registryUserStore interface {
	Create(ctx context.Context, u user.User) error
	GetByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	Update(ctx context.Context, id string, req user.UpdateRequest) (user.User, error)
	Delete(ctx context.Context, id string) error
	SetLock(ctx context.Context, id string, locked bool, until *time.Time) error
	ResetAttempts(ctx context.Context, id string) error
	SetMustChangePassword(ctx context.Context, id string, value bool) error
	CountByRole(ctx context.Context, roleID string) (int, error)
}

type registryRoleStore interface {
	Create(ctx context.Context, r role.Role) error
	GetByID(ctx context.Context, id string) (role.Role, error)
	List(ctx context.Context) ([]role.Role, error)
	Update(ctx context.Context, r role.Role) error
	Delete(ctx context.Context, id string) error
}

// CreateUserInput is the admin-side shape; the password arrives in plaintext
// and is hashed here.
type CreateUserInput struct {
	Email              string
	FullName           string
	Password           string
	RoleID             *string
	MustChangePassword bool
}

// UpdateRoleInput follows the nil-means-unchanged convention.
type UpdateRoleInput struct {
	Name        *string
	Description *string
	Permissions *[]string
	IsSuperRole *bool
}

// Registry is the admin surface over users and roles. Mutations land in the
// audit log with the acting admin as the actor.
type Registry struct {
	users   registryUserStore
	roles   registryRoleStore
	roleTTL *cache.Cache
	audit   *audit.Recorder
	log     *slog.Logger
}

func NewRegistry(users registryUserStore, roles registryRoleStore, roleTTL *cache.Cache, rec *audit.Recorder, log *slog.Logger) *Registry {
	return &Registry{
		users:   users,
		roles:   roles,
		roleTTL: roleTTL,
		audit:   rec,
		log:     log,
	}
}

func (r *Registry) CreateUser(ctx context.Context, in CreateUserInput, actorID *string, ip string) (user.User, error) {
	// the transport layer validates too, but the core must hold on its own
	if strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.FullName) == "" {
		return user.User{}, ErrValidation
	}

	if err := validateNewPassword(in.Password); err != nil {
		return user.User{}, err
	}

	if in.RoleID != nil {
		if _, err := r.roles.GetByID(ctx, *in.RoleID); err != nil {
			if errors.Is(err, postgres.ErrRoleNotFound) {
				return user.User{}, ErrValidation
			}
			return user.User{}, err
		}
	}

	hash, err := security.HashPassword(in.Password)

	if err != nil {
		return user.User{}, err
	}

	u := user.NewFromCreateRequest(user.CreateRequest{
		Email:              in.Email,
		FullName:           in.FullName,
		PasswordHash:       hash,
		RoleID:             in.RoleID,
		MustChangePassword: in.MustChangePassword,
	})

	if err := r.users.Create(ctx, u); err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			return user.User{}, ErrDuplicateEmail
		}
		return user.User{}, err
	}

	r.audit.Record(ctx, actorID, auditlog.ActionUserCreated, map[string]any{"user_id": u.ID, "email": u.Email}, ip)

	return u, nil
}

func (r *Registry) GetUser(ctx context.Context, id string) (user.User, error) {
	u, err := r.users.GetByID(ctx, id)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return user.User{}, ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *Registry) ListUsers(ctx context.Context) ([]user.User, error) {
	return r.users.List(ctx)
}

func (r *Registry) UpdateUser(ctx context.Context, id string, req user.UpdateRequest, actorID *string, ip string) (user.User, error) {
	if req.RoleID != nil && *req.RoleID != "" {
		if _, err := r.roles.GetByID(ctx, *req.RoleID); err != nil {
			if errors.Is(err, postgres.ErrRoleNotFound) {
				return user.User{}, ErrValidation
			}
			return user.User{}, err
		}
	}

	u, err := r.users.Update(ctx, id, req)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return user.User{}, ErrNotFound
		}
		return user.User{}, err
	}

	r.audit.Record(ctx, actorID, auditlog.ActionUserUpdated, map[string]any{"user_id": id}, ip)

	return u, nil
}

func (r *Registry) DeleteUser(ctx context.Context, id string, actorID *string, ip string) error {
	if err := r.users.Delete(ctx, id); err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}

	r.audit.Record(ctx, actorID, auditlog.ActionUserDeleted, map[string]any{"user_id": id}, ip)

	return nil
}

// Unlock clears the lock flag and its expiry but deliberately leaves the
// failed-attempt counter alone; clearing the counter is a separate action.
func (r *Registry) Unlock(ctx context.Context, id string, actorID *string, ip string) error {
	if err := r.users.SetLock(ctx, id, false, nil); err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}

	r.audit.Record(ctx, actorID, auditlog.ActionAccountUnlocked, map[string]any{"user_id": id}, ip)

	return nil
}

// Lock flips the lock on with no expiry; only an explicit unlock clears it.
func (r *Registry) Lock(ctx context.Context, id string, actorID *string, ip string) error {
	if err := r.users.SetLock(ctx, id, true, nil); err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}

	r.audit.Record(ctx, actorID, auditlog.ActionAccountLocked, map[string]any{"user_id": id, "manual": true}, ip)

	return nil
}

func (r *Registry) ResetAttempts(ctx context.Context, id string, actorID *string, ip string) error {
	if err := r.users.ResetAttempts(ctx, id); err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}

	r.audit.Record(ctx, actorID, auditlog.ActionAttemptsReset, map[string]any{"user_id": id}, ip)

	return nil
}

// ForcePasswordChange flags the account so its next successful login yields
// a password-change token instead of a session.
func (r *Registry) ForcePasswordChange(ctx context.Context, id string, actorID *string, ip string) error {
	if err := r.users.SetMustChangePassword(ctx, id, true); err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}

	r.audit.Record(ctx, actorID, auditlog.ActionUserUpdated, map[string]any{"user_id": id, "must_change_password": true}, ip)

	return nil
}

func validPermissions(perms []string) bool {
	for _, p := range perms {
		if !role.IsValidPermission(p) {
			return false
		}
	}
	return true
}

func (r *Registry) CreateRole(ctx context.Context, req role.CreateRequest, actorID *string, ip string) (role.Role, error) {
	if req.Name == "" || !validPermissions(req.Permissions) {
		return role.Role{}, ErrValidation
	}

	ro := role.NewFromCreateRequest(req)

	if err := r.roles.Create(ctx, ro); err != nil {
		if errors.Is(err, postgres.ErrRoleNameTaken) {
			return role.Role{}, ErrDuplicateRoleName
		}
		return role.Role{}, err
	}

	r.audit.Record(ctx, actorID, auditlog.ActionRoleCreated, map[string]any{"role_id": ro.ID, "name": ro.Name}, ip)

	return ro, nil
}

func (r *Registry) GetRole(ctx context.Context, id string) (role.Role, error) {
	ro, err := r.roles.GetByID(ctx, id)

	if err != nil {
		if errors.Is(err, postgres.ErrRoleNotFound) {
			return role.Role{}, ErrNotFound
		}
		return role.Role{}, err
	}
	return ro, nil
}

func (r *Registry) ListRoles(ctx context.Context) ([]role.Role, error) {
	return r.roles.List(ctx)
}

// UpdateRole writes the merged role and drops it from the short-TTL cache so
// permission changes take effect on the next request batch.
func (r *Registry) UpdateRole(ctx context.Context, id string, in UpdateRoleInput, actorID *string, ip string) (role.Role, error) {
	ro, err := r.roles.GetByID(ctx, id)

	if err != nil {
		if errors.Is(err, postgres.ErrRoleNotFound) {
			return role.Role{}, ErrNotFound
		}
		return role.Role{}, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return role.Role{}, ErrValidation
		}
		ro.Name = *in.Name
	}
	if in.Description != nil {
		ro.Description = *in.Description
	}
	if in.Permissions != nil {
		if !validPermissions(*in.Permissions) {
			return role.Role{}, ErrValidation
		}
		ro.Permissions = *in.Permissions
	}
	if in.IsSuperRole != nil {
		ro.IsSuperRole = *in.IsSuperRole
	}

	if err := r.roles.Update(ctx, ro); err != nil {
		if errors.Is(err, postgres.ErrRoleNameTaken) {
			return role.Role{}, ErrDuplicateRoleName
		}
		if errors.Is(err, postgres.ErrRoleNotFound) {
			return role.Role{}, ErrNotFound
		}
		return role.Role{}, err
	}

	r.roleTTL.Delete(id)

	r.audit.Record(ctx, actorID, auditlog.ActionRoleUpdated, map[string]any{"role_id": id}, ip)

	return ro, nil
}

// DeleteRole refuses while any user still references the role.
func (r *Registry) DeleteRole(ctx context.Context, id string, actorID *string, ip string) error {
	n, err := r.users.CountByRole(ctx, id)

	if err != nil {
		return err
	}

	if n > 0 {
		return ErrRoleInUse
	}

	if err := r.roles.Delete(ctx, id); err != nil {
		if errors.Is(err, postgres.ErrRoleNotFound) {
			return ErrNotFound
		}
		return err
	}

	r.roleTTL.Delete(id)

	r.audit.Record(ctx, actorID, auditlog.ActionRoleDeleted, map[string]any{"role_id": id}, ip)

	return nil
}
