package kb

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/relaydesk/relaydesk/internal/platform/httpx"
	"github.com/relaydesk/relaydesk/internal/shared"
)

// Handler wires HTTP endpoints for the knowledge base.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers knowledge-base routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listing)
	r.Post("/tabs", h.createTab)
	r.Post("/articles", h.createArticle)
	r.Get("/articles/{articleID}", h.getArticle)
	r.Put("/articles/{articleID}", h.updateArticle)
	r.Delete("/articles/{articleID}", h.deleteArticle)
}

func (h *Handler) listing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.Listing(r.Context())
	if err != nil {
		h.logger.Error("kb listing", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tabs": listing})
}

func (h *Handler) createTab(w http.ResponseWriter, r *http.Request) {
	var in CreateTabInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	tab, err := h.service.CreateTab(r.Context(), in)
	if err != nil {
		h.respondWriteError(w, "create tab", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tab)
}

func (h *Handler) createArticle(w http.ResponseWriter, r *http.Request) {
	var in CreateArticleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	article, err := h.service.CreateArticle(r.Context(), in)
	if err != nil {
		h.respondWriteError(w, "create article", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, article)
}

func (h *Handler) getArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.articleID(w, r)
	if !ok {
		return
	}
	article, err := h.service.GetArticle(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("get article", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, article)
}

func (h *Handler) updateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.articleID(w, r)
	if !ok {
		return
	}
	var in UpdateArticleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	article, err := h.service.UpdateArticle(r.Context(), id, in)
	if err != nil {
		h.respondWriteError(w, "update article", err)
		return
	}
	httpx.JSON(w, http.StatusOK, article)
}

func (h *Handler) deleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.articleID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteArticle(r.Context(), id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("delete article", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondWriteError(w http.ResponseWriter, action string, err error) {
	var verr validator.ValidationErrors
	switch {
	case errors.As(err, &verr):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", verr.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error(action, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) articleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "articleID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid article id")
		return 0, false
	}
	return id, true
}
