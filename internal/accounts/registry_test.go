package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hcsem/communityhub/internal/cache"
	"github.com/hcsem/communityhub/internal/domain/role"
	"github.com/hcsem/communityhub/internal/domain/user"
	"github.com/hcsem/communityhub/internal/repo/postgres"
)

type fakeRegistryUsers struct {
	created   []user.User
	createErr error

	lockCalls   []bool
	resetCalls  int
	forceCalls  int
	countByRole int
}

func (f *fakeRegistryUsers) Create(ctx context.Context, u user.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, u)
	return nil
}

func (f *fakeRegistryUsers) GetByID(ctx context.Context, id string) (user.User, error) {
	return user.User{ID: id}, nil
}

func (f *fakeRegistryUsers) List(ctx context.Context) ([]user.User, error) {
	return f.created, nil
}

func (f *fakeRegistryUsers) Update(ctx context.Context, id string, req user.UpdateRequest) (user.User, error) {
	return user.User{ID: id}, nil
}

func (f *fakeRegistryUsers) Delete(ctx context.Context, id string) error { return nil }

func (f *fakeRegistryUsers) SetLock(ctx context.Context, id string, locked bool, until *time.Time) error {
	f.lockCalls = append(f.lockCalls, locked)
	return nil
}

func (f *fakeRegistryUsers) ResetAttempts(ctx context.Context, id string) error {
	f.resetCalls++
	return nil
}

func (f *fakeRegistryUsers) SetMustChangePassword(ctx context.Context, id string, value bool) error {
	f.forceCalls++
	return nil
}

func (f *fakeRegistryUsers) CountByRole(ctx context.Context, roleID string) (int, error) {
	return f.countByRole, nil
}

type fakeRegistryRoles struct {
	byID      map[string]role.Role
	createErr error
	updateErr error
	updated   *role.Role
	deleted   []string
}

func (f *fakeRegistryRoles) Create(ctx context.Context, r role.Role) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byID == nil {
		f.byID = map[string]role.Role{}
	}
	f.byID[r.ID] = r
	return nil
}

func (f *fakeRegistryRoles) GetByID(ctx context.Context, id string) (role.Role, error) {
	r, ok := f.byID[id]
	if !ok {
		return role.Role{}, postgres.ErrRoleNotFound
	}
	return r, nil
}

func (f *fakeRegistryRoles) List(ctx context.Context) ([]role.Role, error) {
	out := make([]role.Role, 0, len(f.byID))
	for _, r := range f.byID {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRegistryRoles) Update(ctx context.Context, r role.Role) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = &r
	f.byID[r.ID] = r
	return nil
}

func (f *fakeRegistryRoles) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.byID, id)
	return nil
}

func newTestRegistry(users *fakeRegistryUsers, roles *fakeRegistryRoles) *Registry {
	return NewRegistry(users, roles, cache.New(30*time.Second), nil, discardLogger())
}

func TestCreateUser(t *testing.T) {
	roleID := "r1"

	tests := []struct {
		name    string
		in      CreateUserInput
		users   *fakeRegistryUsers
		roles   *fakeRegistryRoles
		wantErr error
	}{
		{
			name:    "ok",
			in:      CreateUserInput{Email: "bob@example.com", FullName: "Bob", Password: "long-enough-1"},
			users:   &fakeRegistryUsers{},
			roles:   &fakeRegistryRoles{},
			wantErr: nil,
		},
		{
			name:    "short_password",
			in:      CreateUserInput{Email: "bob@example.com", FullName: "Bob", Password: "short"},
			users:   &fakeRegistryUsers{},
			roles:   &fakeRegistryRoles{},
			wantErr: ErrValidation,
		},
		{
			name:    "missing_email",
			in:      CreateUserInput{Email: "", FullName: "Bob", Password: "long-enough-1"},
			users:   &fakeRegistryUsers{},
			roles:   &fakeRegistryRoles{},
			wantErr: ErrValidation,
		},
		{
			name:    "missing_full_name",
			in:      CreateUserInput{Email: "bob@example.com", FullName: "   ", Password: "long-enough-1"},
			users:   &fakeRegistryUsers{},
			roles:   &fakeRegistryRoles{},
			wantErr: ErrValidation,
		},
		{
			name:    "unknown_role",
			in:      CreateUserInput{Email: "bob@example.com", FullName: "Bob", Password: "long-enough-1", RoleID: &roleID},
			users:   &fakeRegistryUsers{},
			roles:   &fakeRegistryRoles{},
			wantErr: ErrValidation,
		},
		{
			name:    "duplicate_email",
			in:      CreateUserInput{Email: "bob@example.com", FullName: "Bob", Password: "long-enough-1"},
			users:   &fakeRegistryUsers{createErr: postgres.ErrEmailAlreadyUsed},
			roles:   &fakeRegistryRoles{},
			wantErr: ErrDuplicateEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(tt.users, tt.roles)

			u, err := r.CreateUser(context.Background(), tt.in, nil, "127.0.0.1")

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Empty(t, tt.users.created, "rejected input must not be persisted")
				return
			}

			require.NoError(t, err)
			require.NotEmpty(t, u.ID)
			require.True(t, u.IsActive)
			require.NotEqual(t, tt.in.Password, u.PasswordHash)
		})
	}
}

func TestUnlockLeavesCounterAlone(t *testing.T) {
	users := &fakeRegistryUsers{}
	r := newTestRegistry(users, &fakeRegistryRoles{})

	require.NoError(t, r.Unlock(context.Background(), "u1", nil, "127.0.0.1"))

	require.Equal(t, []bool{false}, users.lockCalls)
	require.Zero(t, users.resetCalls, "unlock must not clear the attempt counter")
}

func TestResetAttempts(t *testing.T) {
	users := &fakeRegistryUsers{}
	r := newTestRegistry(users, &fakeRegistryRoles{})

	require.NoError(t, r.ResetAttempts(context.Background(), "u1", nil, "127.0.0.1"))
	require.Equal(t, 1, users.resetCalls)
}

func TestManualLock(t *testing.T) {
	users := &fakeRegistryUsers{}
	r := newTestRegistry(users, &fakeRegistryRoles{})

	require.NoError(t, r.Lock(context.Background(), "u1", nil, "127.0.0.1"))
	require.Equal(t, []bool{true}, users.lockCalls)
}

func TestForcePasswordChange(t *testing.T) {
	users := &fakeRegistryUsers{}
	r := newTestRegistry(users, &fakeRegistryRoles{})

	require.NoError(t, r.ForcePasswordChange(context.Background(), "u1", nil, "127.0.0.1"))
	require.Equal(t, 1, users.forceCalls)
}

func TestCreateRoleValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     role.CreateRequest
		roles   *fakeRegistryRoles
		wantErr error
	}{
		{
			name:    "ok",
			req:     role.CreateRequest{Name: "Editor", Permissions: []string{role.PermManageContent}},
			roles:   &fakeRegistryRoles{},
			wantErr: nil,
		},
		{
			name:    "empty_name",
			req:     role.CreateRequest{Permissions: []string{role.PermManageContent}},
			roles:   &fakeRegistryRoles{},
			wantErr: ErrValidation,
		},
		{
			name:    "unknown_permission",
			req:     role.CreateRequest{Name: "Editor", Permissions: []string{"rule_the_world"}},
			roles:   &fakeRegistryRoles{},
			wantErr: ErrValidation,
		},
		{
			name:    "name_taken",
			req:     role.CreateRequest{Name: "Editor"},
			roles:   &fakeRegistryRoles{createErr: postgres.ErrRoleNameTaken},
			wantErr: ErrDuplicateRoleName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(&fakeRegistryUsers{}, tt.roles)

			_, err := r.CreateRole(context.Background(), tt.req, nil, "127.0.0.1")

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestUpdateRoleMergesFields(t *testing.T) {
	roles := &fakeRegistryRoles{byID: map[string]role.Role{
		"r1": {ID: "r1", Name: "Editor", Permissions: []string{role.PermManageContent}},
	}}
	r := newTestRegistry(&fakeRegistryUsers{}, roles)

	newName := "Content Editor"
	super := true

	got, err := r.UpdateRole(context.Background(), "r1", UpdateRoleInput{Name: &newName, IsSuperRole: &super}, nil, "127.0.0.1")

	require.NoError(t, err)
	require.Equal(t, "Content Editor", got.Name)
	require.True(t, got.IsSuperRole)
	require.Equal(t, []string{role.PermManageContent}, got.Permissions, "untouched fields survive the merge")
}

func TestDeleteRoleInUse(t *testing.T) {
	roles := &fakeRegistryRoles{byID: map[string]role.Role{"r1": {ID: "r1", Name: "Editor"}}}
	users := &fakeRegistryUsers{countByRole: 2}
	r := newTestRegistry(users, roles)

	err := r.DeleteRole(context.Background(), "r1", nil, "127.0.0.1")

	require.ErrorIs(t, err, ErrRoleInUse)
	require.Empty(t, roles.deleted)
}

func TestDeleteRole(t *testing.T) {
	roles := &fakeRegistryRoles{byID: map[string]role.Role{"r1": {ID: "r1", Name: "Editor"}}}
	r := newTestRegistry(&fakeRegistryUsers{}, roles)

	require.NoError(t, r.DeleteRole(context.Background(), "r1", nil, "127.0.0.1"))
	require.Equal(t, []string{"r1"}, roles.deleted)
}
