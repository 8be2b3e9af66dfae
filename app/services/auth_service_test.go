package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/pkg/auth"
	"github.com/charvilabs/charvi/pkg/crypt"
)

// ─── Fakes ────────────────────────────────────────────────────────────────────

type fakeUserStore struct {
	byEmail map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: map[string]*models.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, u *models.User) error {
	u.ID = primitive.NewObjectID()
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	for _, u := range f.byEmail {
		if u.ID == id {
			u.Password = hash
			return nil
		}
	}
	return repositories.ErrNotFound
}

type fakeResetStore struct {
	byHash map[string]*models.PasswordReset
}

func newFakeResetStore() *fakeResetStore {
	return &fakeResetStore{byHash: map[string]*models.PasswordReset{}}
}

func (f *fakeResetStore) Create(_ context.Context, pr *models.PasswordReset) error {
	pr.ID = primitive.NewObjectID()
	f.byHash[pr.TokenHash] = pr
	return nil
}

func (f *fakeResetStore) FindByTokenHash(_ context.Context, hash string) (*models.PasswordReset, error) {
	if pr, ok := f.byHash[hash]; ok {
		return pr, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeResetStore) MarkUsed(_ context.Context, id primitive.ObjectID) error {
	for _, pr := range f.byHash {
		if pr.ID == id {
			if pr.Used {
				return repositories.ErrNotFound
			}
			pr.Used = true
			return nil
		}
	}
	return repositories.ErrNotFound
}

// ─── Fixture ──────────────────────────────────────────────────────────────────

type authFixture struct {
	svc      *AuthService
	users    *fakeUserStore
	resets   *fakeResetStore
	notifier *recordingNotifier
	now      time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:    newFakeUserStore(),
		resets:   newFakeResetStore(),
		notifier: &recordingNotifier{},
		now:      time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewAuthService(f.users, f.resets, f.notifier)
	f.svc.now = func() time.Time { return f.now }
	return f
}

var resetTokenRe = regexp.MustCompile(`\b([0-9a-f]{32})\b`)

// resetToken pulls the plain token out of the last recorded mail.
func (f *authFixture) resetToken(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.notifier.sent)
	m := resetTokenRe.FindStringSubmatch(f.notifier.sent[len(f.notifier.sent)-1].Body)
	require.NotNil(t, m, "reset mail must carry the token")
	return m[1]
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestRegisterAndLogin(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.svc.Register(context.Background(), "Asha", "Asha@Example.com ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", user.Email, "email is normalized")
	assert.NotEqual(t, "s3cret-pass", user.Password, "password is stored hashed")
	assert.True(t, auth.CheckPassword(user.Password, "s3cret-pass"))

	_, err = f.svc.Register(context.Background(), "Asha", "asha@example.com", "another")
	assert.ErrorIs(t, err, ErrEmailTaken)

	got, pair, err := f.svc.Login(context.Background(), "asha@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)

	_, _, err = f.svc.Login(context.Background(), "asha@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.svc.Login(context.Background(), "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown email reads the same as a bad password")
}

func TestPasswordResetSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Register(context.Background(), "Asha", "asha@example.com", "old-pass")
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "asha@example.com"))
	token := f.resetToken(t)

	// Only the hash is persisted.
	_, stored := f.resets.byHash[crypt.Hash(token)]
	assert.True(t, stored)
	_, plain := f.resets.byHash[token]
	assert.False(t, plain)

	require.NoError(t, f.svc.ResetPassword(context.Background(), token, "new-pass"))

	_, _, err = f.svc.Login(context.Background(), "asha@example.com", "new-pass")
	assert.NoError(t, err)
	_, _, err = f.svc.Login(context.Background(), "asha@example.com", "old-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Second redemption of the same token is a conflict, not a silent no-op.
	err = f.svc.ResetPassword(context.Background(), token, "third-pass")
	assert.ErrorIs(t, err, ErrResetTokenUsed)
	_, _, err = f.svc.Login(context.Background(), "asha@example.com", "new-pass")
	assert.NoError(t, err, "the used token must not change the password again")
}

func TestPasswordResetExpiry(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Register(context.Background(), "Asha", "asha@example.com", "old-pass")
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "asha@example.com"))
	token := f.resetToken(t)

	f.now = f.now.Add(resetTokenTTL + time.Minute)
	err = f.svc.ResetPassword(context.Background(), token, "new-pass")
	assert.ErrorIs(t, err, ErrResetTokenExpired)
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture(t)
	assert.NoError(t, f.svc.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, f.notifier.sent)
}

func TestPasswordResetBadToken(t *testing.T) {
	f := newAuthFixture(t)
	err := f.svc.ResetPassword(context.Background(), "deadbeefdeadbeefdeadbeefdeadbeef", "x")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
	assert.False(t, errors.Is(err, ErrResetTokenUsed))
}
