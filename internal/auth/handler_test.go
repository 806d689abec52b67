package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/relaydesk/relaydesk/internal/access"
	"github.com/relaydesk/relaydesk/internal/shared"
)

type fakeRepo struct {
	user     *User
	sessions map[string]int64
	deleted  []string
}

func (f *fakeRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if f.user == nil || f.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return f.user, nil
}

func (f *fakeRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if f.sessions == nil {
		f.sessions = map[string]int64{}
	}
	f.sessions[id] = userID
	return nil
}

func (f *fakeRepo) DeleteSession(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeSource struct {
	record *access.Record
}

func (f *fakeSource) RecordForUser(ctx context.Context, userID int64) (*access.Record, error) {
	return f.record, nil
}

func newTestHandler(t *testing.T, repo *fakeRepo, source *fakeSource) (*Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "relaydesk_session", "secret", time.Hour, false)
	return NewHandler(slog.Default(), NewService(repo), sessions, source), sessions
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func loginRequestWithSession(t *testing.T, sessions *shared.SessionManager, body string) (*http.Request, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestLoginSuccess(t *testing.T) {
	repo := &fakeRepo{user: &User{
		ID:           1,
		Email:        "agent@example.com",
		Name:         "Agent",
		PasswordHash: hashPassword(t, "password123"),
		IsActive:     true,
	}}
	handler, sessions := newTestHandler(t, repo, &fakeSource{})

	req, sess := loginRequestWithSession(t, sessions, `{"email":"agent@example.com","password":"password123"}`)
	rec := httptest.NewRecorder()
	handler.handleLogin(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var profile Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, int64(1), profile.ID)
	assert.Nil(t, profile.Access)
	assert.Equal(t, "1", sess.User())
	assert.Equal(t, int64(1), repo.sessions[sess.ID])
}

func TestLoginReturnsRestrictedRecord(t *testing.T) {
	record := &access.Record{
		TotalPages: access.PageInbox,
		Permissions: []access.PagePermission{
			{PageValue: access.PageInbox, TotalValue: access.ActionView},
		},
	}
	repo := &fakeRepo{user: &User{
		ID:           2,
		Email:        "junior@example.com",
		PasswordHash: hashPassword(t, "password123"),
		IsActive:     true,
	}}
	handler, sessions := newTestHandler(t, repo, &fakeSource{record: record})

	req, _ := loginRequestWithSession(t, sessions, `{"email":"junior@example.com","password":"password123"}`)
	rec := httptest.NewRecorder()
	handler.handleLogin(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var profile Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	require.NotNil(t, profile.Access)
	assert.Equal(t, access.PageInbox, profile.Access.TotalPages)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := &fakeRepo{user: &User{
		ID:           1,
		Email:        "agent@example.com",
		PasswordHash: hashPassword(t, "password123"),
		IsActive:     true,
	}}
	handler, sessions := newTestHandler(t, repo, &fakeSource{})

	req, _ := loginRequestWithSession(t, sessions, `{"email":"agent@example.com","password":"wrong-password"}`)
	rec := httptest.NewRecorder()
	handler.handleLogin(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, repo.sessions)
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := &fakeRepo{user: &User{
		ID:           1,
		Email:        "agent@example.com",
		PasswordHash: hashPassword(t, "password123"),
		IsActive:     false,
	}}
	handler, sessions := newTestHandler(t, repo, &fakeSource{})

	req, _ := loginRequestWithSession(t, sessions, `{"email":"agent@example.com","password":"password123"}`)
	rec := httptest.NewRecorder()
	handler.handleLogin(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := &fakeRepo{}
	handler, sessions := newTestHandler(t, repo, &fakeSource{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	sess, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	sess.SetUser("1")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	rec := httptest.NewRecorder()
	handler.handleLogout(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{sess.ID}, repo.deleted)
}

func TestMeRequiresSession(t *testing.T) {
	handler, _ := newTestHandler(t, &fakeRepo{}, &fakeSource{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	handler.handleMe(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
