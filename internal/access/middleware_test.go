package access_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/relaydesk/relaydesk/internal/access"
	"github.com/relaydesk/relaydesk/internal/shared"
)

type staticSource struct {
	records map[int64]*access.Record
}

func (s staticSource) RecordForUser(ctx context.Context, userID int64) (*access.Record, error) {
	return s.records[userID], nil
}

func requestWithUser(t *testing.T, userID string) *http.Request {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := shared.NewSessionManager(client, "test_session", "secret", 0, false)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser(userID)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestRequirePage(t *testing.T) {
	source := staticSource{records: map[int64]*access.Record{
		1: {TotalPages: access.PageInbox},
		// User 2 has no grant rows at all: unrestricted owner convention.
	}}
	mw := access.Middleware{Source: source}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	cases := []struct {
		name   string
		user   string
		page   access.PageBit
		status int
	}{
		{"granted page", "1", access.PageInbox, http.StatusNoContent},
		{"denied page", "1", access.PageUsers, http.StatusForbidden},
		{"absent record allows", "2", access.PageUsers, http.StatusNoContent},
		{"anonymous denied", "", access.PageInbox, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mw.RequirePage(tc.page)(next).ServeHTTP(rec, requestWithUser(t, tc.user))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRequireActionChecksPageFirst(t *testing.T) {
	source := staticSource{records: map[int64]*access.Record{
		1: {
			TotalPages: access.PageInbox,
			Permissions: []access.PagePermission{
				{PageValue: access.PageInbox, TotalValue: access.ActionView},
				// Entry for a page outside TotalPages must stay unreachable.
				{PageValue: access.PageUsers, TotalValue: access.ActionDelete},
			},
		},
	}}
	mw := access.Middleware{Source: source}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	mw.RequireAction(access.PageInbox, access.ActionView)(next).ServeHTTP(rec, requestWithUser(t, "1"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	mw.RequireAction(access.PageInbox, access.ActionDelete)(next).ServeHTTP(rec, requestWithUser(t, "1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	mw.RequireAction(access.PageUsers, access.ActionDelete)(next).ServeHTTP(rec, requestWithUser(t, "1"))
	assert.Equal(t, http.StatusForbidden, rec.Code, "action grant without the page bit must be denied")
}
