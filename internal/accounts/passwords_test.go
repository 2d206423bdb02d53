package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hcsem/communityhub/internal/auth"
	"github.com/hcsem/communityhub/internal/domain/resettoken"
	"github.com/hcsem/communityhub/internal/domain/user"
	"github.com/hcsem/communityhub/internal/repo/postgres"
	"github.com/hcsem/communityhub/internal/security"
)

type fakeRotationStore struct {
	rotatedUserID string
	rotatedHash   string
	issued        []resettoken.ResetToken
	redeemedHash  string
	redeemErr     error
	redeemUserID  string
}

func (f *fakeRotationStore) RotatePassword(ctx context.Context, userID, newHash string) error {
	f.rotatedUserID = userID
	f.rotatedHash = newHash
	return nil
}

func (f *fakeRotationStore) IssueResetToken(ctx context.Context, t resettoken.ResetToken) error {
	f.issued = append(f.issued, t)
	return nil
}

func (f *fakeRotationStore) RedeemAndRotate(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (string, error) {
	f.redeemedHash = tokenHash
	if f.redeemErr != nil {
		return "", f.redeemErr
	}
	return f.redeemUserID, nil
}

type fakePasswordUsers struct {
	u      user.User
	getErr error
}

func (f *fakePasswordUsers) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getErr != nil {
		return user.User{}, f.getErr
	}
	return f.u, nil
}

func newTestPasswordService(users *fakePasswordUsers, store *fakeRotationStore) *PasswordService {
	tokens := auth.NewManager("test-secret", time.Hour, 10*time.Minute)
	return NewPasswordService(users, store, tokens, time.Hour, nil, discardLogger())
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	store := &fakeRotationStore{}
	s := newTestPasswordService(&fakePasswordUsers{u: activeUser()}, store)

	err := s.ChangePassword(context.Background(), "u1", "not-the-password", "new-password-1", "127.0.0.1")

	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Empty(t, store.rotatedUserID, "a failed check must not rotate anything")
}

func TestChangePasswordTooShort(t *testing.T) {
	store := &fakeRotationStore{}
	s := newTestPasswordService(&fakePasswordUsers{u: activeUser()}, store)

	err := s.ChangePassword(context.Background(), "u1", "correct-horse", "short", "127.0.0.1")

	require.ErrorIs(t, err, ErrValidation)
}

func TestChangePasswordSuccess(t *testing.T) {
	store := &fakeRotationStore{}
	s := newTestPasswordService(&fakePasswordUsers{u: activeUser()}, store)

	err := s.ChangePassword(context.Background(), "u1", "correct-horse", "new-password-1", "127.0.0.1")

	require.NoError(t, err)
	require.Equal(t, "u1", store.rotatedUserID)
	require.NoError(t, security.CheckPassword(store.rotatedHash, "new-password-1"))
}

func TestCompleteForcedChange(t *testing.T) {
	store := &fakeRotationStore{}
	s := newTestPasswordService(&fakePasswordUsers{u: activeUser()}, store)

	tokens := auth.NewManager("test-secret", time.Hour, 10*time.Minute)
	changeToken, err := tokens.GeneratePasswordChangeToken("u1")
	require.NoError(t, err)

	require.NoError(t, s.CompleteForcedChange(context.Background(), changeToken, "new-password-1", "127.0.0.1"))
	require.Equal(t, "u1", store.rotatedUserID)
}

func TestCompleteForcedChangeRejectsSessionToken(t *testing.T) {
	store := &fakeRotationStore{}
	s := newTestPasswordService(&fakePasswordUsers{u: activeUser()}, store)

	tokens := auth.NewManager("test-secret", time.Hour, 10*time.Minute)
	sessionToken, _, _, err := tokens.GenerateSessionToken("u1")
	require.NoError(t, err)

	err = s.CompleteForcedChange(context.Background(), sessionToken, "new-password-1", "127.0.0.1")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCompleteForcedChangeGarbageToken(t *testing.T) {
	store := &fakeRotationStore{}
	s := newTestPasswordService(&fakePasswordUsers{u: activeUser()}, store)

	err := s.CompleteForcedChange(context.Background(), "garbage", "new-password-1", "127.0.0.1")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueTokenStoresDigestOnly(t *testing.T) {
	store := &fakeRotationStore{}
	s := newTestPasswordService(&fakePasswordUsers{u: activeUser()}, store)

	issued, err := s.IssueToken(context.Background(), "u1", nil, "127.0.0.1")

	require.NoError(t, err)
	require.Len(t, store.issued, 1)

	stored := store.issued[0]
	require.Equal(t, security.HashToken(issued.Token), stored.TokenHash)
	require.NotEqual(t, issued.Token, stored.TokenHash, "plaintext must never be persisted")
	require.Equal(t, "u1", stored.UserID)
	require.WithinDuration(t, time.Now().UTC().Add(time.Hour), issued.ExpiresAt, time.Minute)
}

func TestIssueTokenUnknownUser(t *testing.T) {
	s := newTestPasswordService(&fakePasswordUsers{getErr: postgres.ErrUserNotFound}, &fakeRotationStore{})

	_, err := s.IssueToken(context.Background(), "ghost", nil, "127.0.0.1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedeemToken(t *testing.T) {
	tests := []struct {
		name      string
		redeemErr error
		wantErr   error
	}{
		{name: "ok", redeemErr: nil, wantErr: nil},
		{name: "unknown_or_consumed", redeemErr: postgres.ErrResetTokenNotFound, wantErr: ErrInvalidToken},
		{name: "expired", redeemErr: postgres.ErrResetTokenExpired, wantErr: ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeRotationStore{redeemErr: tt.redeemErr, redeemUserID: "u1"}
			s := newTestPasswordService(&fakePasswordUsers{u: activeUser()}, store)

			err := s.RedeemToken(context.Background(), "some-plaintext-token", "new-password-1", "127.0.0.1")

			if tt.wantErr == nil {
				require.NoError(t, err)
				require.Equal(t, security.HashToken("some-plaintext-token"), store.redeemedHash)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRedeemTokenShortPassword(t *testing.T) {
	store := &fakeRotationStore{}
	s := newTestPasswordService(&fakePasswordUsers{u: activeUser()}, store)

	err := s.RedeemToken(context.Background(), "some-plaintext-token", "short", "127.0.0.1")

	require.ErrorIs(t, err, ErrValidation)
	require.Empty(t, store.redeemedHash, "validation failures must not consume the token")
}
