package accounts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hcsem/communityhub/internal/audit"
	"github.com/hcsem/communityhub/internal/auth"
	"github.com/hcsem/communityhub/internal/cache"
	"github.com/hcsem/communityhub/internal/domain/auditlog"
	"github.com/hcsem/communityhub/internal/domain/role"
	"github.com/hcsem/communityhub/internal/domain/session"
	"github.com/hcsem/communityhub/internal/domain/user"
	"github.com/hcsem/communityhub/internal/repo/postgres"
	"github.com/hcsem/communityhub/internal/security"
)

type sessionStore interface {
	Create(ctx context.Context, s session.Session) error
	Get(ctx context.Context, id string) (session.Session, error)
	Revoke(ctx context.Context, id string) error
}

type gateUserStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type roleStore interface {
	GetByID(ctx context.Context, id string) (role.Role, error)
}

// Identity is a resolved caller: the user row plus the role it carries.
// HasRole is false for accounts with no role assigned; such accounts
// authenticate fine but hold no permissions.
type Identity struct {
	User    user.User
	Role    role.Role
	HasRole bool
}

func (id Identity) Can(permissionID string) bool {
	return id.HasRole && id.Role.HasPermission(permissionID)
}

// LoginResult carries either a session token or, when the account is flagged
// for forced rotation, a short-lived password-change token that unlocks only
// the change-password endpoint.
type LoginResult struct {
	Token              string
	ExpiresAt          time.Time
	User               user.User
	MustChangePassword bool
}

// Gate issues and resolves sessions. Session tokens are signed JWTs whose
// jti points at a revocable database row; presenting a token whose row is
// revoked or expired fails even though the signature still verifies.
type Gate struct {
	creds    *CredentialStore
	sessions sessionStore
	users    gateUserStore
	roles    roleStore
	tokens   *auth.Manager
	roleTTL  *cache.Cache
	audit    *audit.Recorder
	log      *slog.Logger
	now      func() time.Time
}

func NewGate(creds *CredentialStore, sessions sessionStore, users gateUserStore, roles roleStore, tokens *auth.Manager, roleTTL *cache.Cache, rec *audit.Recorder, log *slog.Logger) *Gate {
	return &Gate{
		creds:    creds,
		sessions: sessions,
		users:    users,
		roles:    roles,
		tokens:   tokens,
		roleTTL:  roleTTL,
		audit:    rec,
		log:      log,
		now:      time.Now,
	}
}

// Login verifies the credentials and, on success, either opens a session or
// hands back a password-change token when rotation is forced. No session row
// is written in the forced-rotation case.
func (g *Gate) Login(ctx context.Context, email, password, ip string) (LoginResult, error) {
	u, err := g.creds.Verify(ctx, email, password, ip)

	if err != nil {
		return LoginResult{}, err
	}

	if u.MustChangePassword {
		token, err := g.tokens.GeneratePasswordChangeToken(u.ID)

		if err != nil {
			return LoginResult{}, err
		}

		return LoginResult{Token: token, User: u, MustChangePassword: true}, nil
	}

	raw, jti, expiresAt, err := g.tokens.GenerateSessionToken(u.ID)

	if err != nil {
		return LoginResult{}, err
	}

	s := session.Session{
		ID:        jti,
		UserID:    u.ID,
		TokenHash: g.tokens.HashSessionToken(raw),
		ExpiresAt: expiresAt,
		CreatedAt: g.now().UTC(),
	}

	if err := g.sessions.Create(ctx, s); err != nil {
		return LoginResult{}, err
	}

	return LoginResult{Token: raw, ExpiresAt: expiresAt, User: u}, nil
}

// CurrentUser resolves a bearer token to a live identity. Any defect in the
// chain collapses to ErrUnauthenticated so callers cannot distinguish a
// forged token from a revoked one.
func (g *Gate) CurrentUser(ctx context.Context, rawToken string) (Identity, error) {
	claims, err := g.tokens.VerifySessionToken(rawToken)

	if err != nil {
		return Identity{}, ErrUnauthenticated
	}

	s, err := g.sessions.Get(ctx, claims.JTI)

	if err != nil {
		if errors.Is(err, postgres.ErrSessionNotFound) {
			return Identity{}, ErrUnauthenticated
		}
		return Identity{}, err
	}

	now := g.now().UTC()

	if !s.Live(now) || !security.TokenHashEqual(s.TokenHash, g.tokens.HashSessionToken(rawToken)) {
		return Identity{}, ErrUnauthenticated
	}

	u, err := g.users.GetByID(ctx, claims.UserID)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return Identity{}, ErrUnauthenticated
		}
		return Identity{}, err
	}

	if !u.IsActive {
		return Identity{}, ErrUnauthenticated
	}

	id := Identity{User: u}

	if u.RoleID != nil {
		r, err := g.roleFor(ctx, *u.RoleID)

		if err != nil {
			if !errors.Is(err, postgres.ErrRoleNotFound) {
				return Identity{}, err
			}
			// role deleted out from under the user; treat as roleless
		} else {
			id.Role = r
			id.HasRole = true
		}
	}

	return id, nil
}

// Authorize records the denial before rejecting so every failed permission
// check is visible in the audit trail.
func (g *Gate) Authorize(ctx context.Context, id Identity, permissionID, ip string) error {
	if id.Can(permissionID) {
		return nil
	}

	g.audit.Record(ctx, &id.User.ID, auditlog.ActionPermissionDenied, map[string]any{"permission": permissionID}, ip)

	return ErrForbidden
}

// Logout revokes the session row behind the token. Revoking an already
// revoked or missing session is a no-op.
func (g *Gate) Logout(ctx context.Context, rawToken string) error {
	claims, err := g.tokens.VerifySessionToken(rawToken)

	if err != nil {
		return ErrUnauthenticated
	}

	if err := g.sessions.Revoke(ctx, claims.JTI); err != nil && !errors.Is(err, postgres.ErrSessionNotFound) {
		return err
	}

	return nil
}

func (g *Gate) roleFor(ctx context.Context, roleID string) (role.Role, error) {
	if v, ok := g.roleTTL.Get(roleID); ok {
		if r, ok := v.(role.Role); ok {
			return r, nil
		}
	}

	r, err := g.roles.GetByID(ctx, roleID)

	if err != nil {
		return role.Role{}, err
	}

	g.roleTTL.Set(roleID, r)

	return r, nil
}
