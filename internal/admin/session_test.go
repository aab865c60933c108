package admin

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axelsjewelry/storefront/internal/backend"
	"github.com/axelsjewelry/storefront/internal/role"
)

// fakeRecords is an in-memory admin_users table honoring equality filters.
type fakeRecords struct {
	rows      []backend.Record
	insertErr error
	updateErr error
	selectErr error
	calls     int
}

func (f *fakeRecords) Select(ctx context.Context, table string, q backend.Query) ([]backend.Record, error) {
	f.calls++
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	var out []backend.Record
	for _, row := range f.rows {
		if matches(row, q) {
			out = append(out, row)
		}
		if q.LimitRows > 0 && len(out) == q.LimitRows {
			break
		}
	}
	return out, nil
}

func (f *fakeRecords) Insert(ctx context.Context, table string, values backend.Record) (backend.Record, error) {
	f.calls++
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	row := backend.Record{
		"id":         uuid.NewString(),
		"created_at": time.Now().UTC().Format(time.RFC3339),
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range values {
		row[k] = v
	}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakeRecords) Update(ctx context.Context, table string, q backend.Query, values backend.Record) ([]backend.Record, error) {
	f.calls++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	var out []backend.Record
	for _, row := range f.rows {
		if matches(row, q) {
			for k, v := range values {
				row[k] = v
			}
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeRecords) Delete(ctx context.Context, table string, q backend.Query) error {
	f.calls++
	return nil
}

func matches(row backend.Record, q backend.Query) bool {
	for _, flt := range q.Filters {
		if flt.Op != backend.OpEq {
			return false
		}
		if fmt.Sprint(row[flt.Column]) != fmt.Sprint(flt.Value) {
			return false
		}
	}
	return true
}

type fakeSessions struct {
	identity    *backend.Identity
	signInErr   error
	signOutErr  error
	getUserErr  error
	signInCalls int
}

func (f *fakeSessions) GetUser(ctx context.Context) (*backend.Identity, error) {
	return f.identity, f.getUserErr
}

func (f *fakeSessions) SignInWithPassword(ctx context.Context, email, password string) (*backend.Identity, error) {
	f.signInCalls++
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &backend.Identity{ID: "auth-" + email, Email: email}, nil
}

func (f *fakeSessions) SignUp(ctx context.Context, email, password, redirectTo string) (*backend.SignUpResult, error) {
	return nil, errors.New("not supported")
}

func (f *fakeSessions) SignOut(ctx context.Context) error { return f.signOutErr }

func (f *fakeSessions) ResendVerification(ctx context.Context, email, redirectTo string) error {
	return nil
}

func (f *fakeSessions) UpdatePassword(ctx context.Context, newPassword string) error { return nil }

func (f *fakeSessions) OAuthURL(provider, redirectTo string) string { return "" }

func (f *fakeSessions) OnAuthChange(fn func(backend.AuthEvent)) func() { return func() {} }

func newTestSession(sb backend.SessionBackend, records backend.RecordStore) *Session {
	return NewSession(sb, NewRepository(records), Options{DevCredentials: DefaultDevCredentials()})
}

func TestDevSignInProvisionsUnlinkedRecord(t *testing.T) {
	records := &fakeRecords{}
	sb := &fakeSessions{}
	s := newTestSession(sb, records)

	require.NoError(t, s.SignIn(context.Background(), "admin@axels.com", "admin123"))

	u := s.User()
	require.NotNil(t, u)
	assert.Equal(t, role.SuperAdmin, u.Role)
	assert.Equal(t, StatusActive, u.Status)
	assert.Nil(t, u.AuthUserID, "dev records carry no backend identity link")
	assert.False(t, s.IsEphemeral())
	assert.Zero(t, sb.signInCalls, "dev sign-in never reaches the backend")
	assert.True(t, s.HasRole(role.Admin))
}

func TestDevSignInWrongPasswordFailsFast(t *testing.T) {
	records := &fakeRecords{}
	sb := &fakeSessions{}
	s := newTestSession(sb, records)

	err := s.SignIn(context.Background(), "mod@axels.com", "nope")
	require.Error(t, err)
	assert.True(t, backend.IsInvalidCredentials(err))
	assert.Nil(t, s.User())
	assert.Zero(t, sb.signInCalls)
	assert.Zero(t, records.calls, "no record reads or writes on a bad dev password")
}

func TestDevSignInReusesExistingRecord(t *testing.T) {
	records := &fakeRecords{rows: []backend.Record{{
		"id": "a-1", "email": "mod@axels.com", "name": "Moderator User",
		"role": "Moderator", "status": "active",
	}}}
	s := newTestSession(&fakeSessions{}, records)

	require.NoError(t, s.SignIn(context.Background(), "mod@axels.com", "mod123"))
	assert.Equal(t, "a-1", s.User().ID)
	assert.Len(t, records.rows, 1, "no duplicate record created")
}

func TestDevSignInFallsBackToEphemeralRecord(t *testing.T) {
	records := &fakeRecords{insertErr: errors.New("permission denied")}
	s := newTestSession(&fakeSessions{}, records)

	// The profile write failing must not block dev login.
	require.NoError(t, s.SignIn(context.Background(), "manager@axels.com", "manager123"))

	u := s.User()
	require.NotNil(t, u)
	assert.True(t, s.IsEphemeral())
	assert.Equal(t, role.Admin, u.Role)
	assert.Equal(t, "Admin Manager", u.Name)
	assert.Contains(t, u.ID, "dev-manager-")
}

func TestBackendSignInAutoProvisionsModerator(t *testing.T) {
	records := &fakeRecords{}
	sb := &fakeSessions{}
	s := newTestSession(sb, records)

	require.NoError(t, s.SignIn(context.Background(), "new@axels.com", "pw"))

	u := s.User()
	require.NotNil(t, u)
	assert.Equal(t, role.Moderator, u.Role)
	assert.Equal(t, StatusActive, u.Status)
	assert.Equal(t, "new", u.Name, "name defaults to the email local part")
	require.NotNil(t, u.AuthUserID)
	assert.Equal(t, "auth-new@axels.com", *u.AuthUserID)
	assert.Equal(t, 1, sb.signInCalls)
}

func TestBackendSignInBackfillsMissingLink(t *testing.T) {
	records := &fakeRecords{rows: []backend.Record{{
		"id": "a-2", "email": "legacy@axels.com", "name": "Legacy",
		"role": "Admin", "status": "active",
	}}}
	s := newTestSession(&fakeSessions{}, records)

	require.NoError(t, s.SignIn(context.Background(), "legacy@axels.com", "pw"))

	u := s.User()
	require.NotNil(t, u.AuthUserID)
	assert.Equal(t, "auth-legacy@axels.com", *u.AuthUserID)
	assert.Equal(t, "auth-legacy@axels.com", records.rows[0]["auth_user_id"])
}

func TestBackendSignInBackfillFailureIsNotFatal(t *testing.T) {
	records := &fakeRecords{
		rows: []backend.Record{{
			"id": "a-3", "email": "legacy@axels.com", "name": "Legacy",
			"role": "Admin", "status": "active",
		}},
		updateErr: errors.New("update denied"),
	}
	s := newTestSession(&fakeSessions{}, records)

	require.NoError(t, s.SignIn(context.Background(), "legacy@axels.com", "pw"))

	u := s.User()
	require.NotNil(t, u)
	assert.Nil(t, u.AuthUserID)
	assert.True(t, s.HasRole(role.Admin))
}

func TestBackendSignInErrorPassThrough(t *testing.T) {
	sb := &fakeSessions{signInErr: backend.ErrInvalidCredentials}
	s := newTestSession(sb, &fakeRecords{})

	err := s.SignIn(context.Background(), "someone@axels.com", "wrong")
	require.Error(t, err)
	assert.True(t, backend.IsInvalidCredentials(err))
	assert.Nil(t, s.User())
}

func TestBlockedRecordIsInvisibleToSignIn(t *testing.T) {
	records := &fakeRecords{rows: []backend.Record{{
		"id": "a-4", "email": "blocked@axels.com", "name": "Blocked",
		"role": "Admin", "status": "blocked",
	}}}
	s := newTestSession(&fakeSessions{}, records)

	// The active-record lookup misses, so a fresh Moderator record is
	// provisioned; the blocked record never signs in.
	err := s.SignIn(context.Background(), "blocked@axels.com", "pw")
	if err == nil {
		assert.Equal(t, role.Moderator, s.User().Role)
	}
}

func TestCheckAuthStateResolvesExistingSession(t *testing.T) {
	records := &fakeRecords{rows: []backend.Record{{
		"id": "a-5", "auth_user_id": "auth-1", "email": "ops@axels.com",
		"name": "Ops", "role": "SuperAdmin", "status": "active",
	}}}
	sb := &fakeSessions{identity: &backend.Identity{ID: "auth-1", Email: "ops@axels.com"}}
	s := newTestSession(sb, records)

	require.True(t, s.Loading())
	s.CheckAuthState(context.Background())

	assert.False(t, s.Loading())
	require.NotNil(t, s.User())
	assert.Equal(t, "a-5", s.User().ID)
}

func TestCheckAuthStateFailuresLeaveAnonymous(t *testing.T) {
	tests := map[string]struct {
		sb      *fakeSessions
		records *fakeRecords
	}{
		"no backend session": {&fakeSessions{}, &fakeRecords{}},
		"backend error":      {&fakeSessions{getUserErr: errors.New("down")}, &fakeRecords{}},
		"no admin record": {
			&fakeSessions{identity: &backend.Identity{ID: "auth-9"}},
			&fakeRecords{},
		},
		"record store error": {
			&fakeSessions{identity: &backend.Identity{ID: "auth-9"}},
			&fakeRecords{selectErr: errors.New("down")},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := newTestSession(tt.sb, tt.records)
			s.CheckAuthState(context.Background())
			assert.False(t, s.Loading())
			assert.Nil(t, s.User())
		})
	}
}

func TestSignOutClearsUserEvenWhenBackendFails(t *testing.T) {
	sb := &fakeSessions{signOutErr: errors.New("network down")}
	records := &fakeRecords{}
	s := newTestSession(sb, records)

	require.NoError(t, s.SignIn(context.Background(), "admin@axels.com", "admin123"))
	require.NotNil(t, s.User())

	s.SignOut(context.Background())
	assert.Nil(t, s.User())
	assert.False(t, s.IsEphemeral())
	// The record survives sign-out.
	assert.Len(t, records.rows, 1)
}

func TestHasRoleWithoutUser(t *testing.T) {
	s := newTestSession(&fakeSessions{}, &fakeRecords{})
	assert.False(t, s.HasRole(role.User))
}
