package access

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/relaydesk/relaydesk/internal/shared"
)

// Source resolves the permission record for a user. A (nil, nil) return
// means the user carries no grant rows and is unrestricted.
type Source interface {
	RecordForUser(ctx context.Context, userID int64) (*Record, error)
}

// Middleware wires bit-mask authorization guards for HTTP handlers.
type Middleware struct {
	Source Source
	Logger *slog.Logger
}

// RequirePage ensures the current user may view the given page.
func (m Middleware) RequirePage(page PageBit) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			record, ok := m.resolve(w, r)
			if !ok {
				return
			}
			if !record.CanViewPage(page) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAction ensures the current user may perform action on page. The
// page bit is always checked before the action mask is consulted.
func (m Middleware) RequireAction(page PageBit, action ActionBit) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			record, ok := m.resolve(w, r)
			if !ok {
				return
			}
			if !record.CanPerform(page, action) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) resolve(w http.ResponseWriter, r *http.Request) (*Record, bool) {
	userID, ok := m.currentUserID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return nil, false
	}
	record, err := m.Source.RecordForUser(r.Context(), userID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("access resolve record", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	return record, true
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("access parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}
