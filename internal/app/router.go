package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/relaydesk/relaydesk/internal/access"
	"github.com/relaydesk/relaydesk/internal/approvals"
	"github.com/relaydesk/relaydesk/internal/auth"
	"github.com/relaydesk/relaydesk/internal/contacts"
	"github.com/relaydesk/relaydesk/internal/inbox"
	"github.com/relaydesk/relaydesk/internal/insights"
	"github.com/relaydesk/relaydesk/internal/kb"
	"github.com/relaydesk/relaydesk/internal/shared"
	"github.com/relaydesk/relaydesk/internal/users"
	"github.com/relaydesk/relaydesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AccessMiddleware access.Middleware

	AuthHandler      *auth.Handler
	InboxHandler     *inbox.Handler
	ContactsHandler  *contacts.Handler
	KBHandler        *kb.Handler
	InsightsHandler  *insights.Handler
	ApprovalsHandler *approvals.Handler
	UsersHandler     *users.Handler
	JobsHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router with application defaults. Each
// module mounts behind its page guard; mutating verbs additionally pass
// the matching action guard, so the page bit is always checked first.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/csrf", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		token, err := params.CSRFManager.EnsureToken(r.Context(), sess)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"` + token + `"}`))
	})

	guard := params.AccessMiddleware

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/inbox", func(r chi.Router) {
		r.Use(guard.RequirePage(access.PageInbox))
		r.Use(actionGuard(guard, access.PageInbox))
		params.InboxHandler.MountRoutes(r)
	})

	r.Route("/contacts", func(r chi.Router) {
		r.Use(guard.RequirePage(access.PageContacts))
		r.Use(actionGuard(guard, access.PageContacts))
		params.ContactsHandler.MountRoutes(r)
	})

	r.Route("/kb", func(r chi.Router) {
		r.Use(guard.RequirePage(access.PageKnowledge))
		r.Use(actionGuard(guard, access.PageKnowledge))
		params.KBHandler.MountRoutes(r)
	})

	r.Route("/insights", func(r chi.Router) {
		r.Use(guard.RequirePage(access.PageDashboard))
		params.InsightsHandler.MountRoutes(r)
	})

	r.Route("/approvals/requests", func(r chi.Router) {
		r.Use(guard.RequirePage(access.PageRequests))
		r.Use(actionGuard(guard, access.PageRequests))
		params.ApprovalsHandler.MountRequestRoutes(r)
	})

	r.Route("/approvals/history", func(r chi.Router) {
		r.Use(guard.RequirePage(access.PageHistory))
		params.ApprovalsHandler.MountHistoryRoutes(r)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(guard.RequirePage(access.PageUsers))
		r.Use(actionGuard(guard, access.PageUsers))
		params.UsersHandler.MountRoutes(r)
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	return r
}

// actionGuard maps mutating verbs to the action bits of the page. Reads
// pass through: RequirePage already covers viewing.
func actionGuard(guard access.Middleware, page access.PageBit) func(http.Handler) http.Handler {
	create := guard.RequireAction(page, access.ActionCreate)
	edit := guard.RequireAction(page, access.ActionEdit)
	del := guard.RequireAction(page, access.ActionDelete)
	return func(next http.Handler) http.Handler {
		createNext := create(next)
		editNext := edit(next)
		delNext := del(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost:
				createNext.ServeHTTP(w, r)
			case http.MethodPut, http.MethodPatch:
				editNext.ServeHTTP(w, r)
			case http.MethodDelete:
				delNext.ServeHTTP(w, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
