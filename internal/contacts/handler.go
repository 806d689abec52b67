package contacts

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

// Handler wires HTTP endpoints for contacts.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers contact routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.search)
	r.Post("/", h.create)
	r.Get("/{contactID}", h.get)
	r.Get("/{contactID}/tags", h.tags)
	r.Post("/{contactID}/tags", h.addTag)
	r.Delete("/{contactID}/tags/{tag}", h.removeTag)
	r.Get("/{contactID}/fields", h.fields)
	r.Put("/{contactID}/fields", h.setField)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	contacts, pagination, err := h.service.Search(r.Context(), r.URL.Query().Get("q"), page, perPage)
	if err != nil {
		h.logger.Error("search contacts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"contacts":   contacts,
		"pagination": pagination,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateContactInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	contact, err := h.service.Create(r.Context(), in)
	if err != nil {
		var verr validator.ValidationErrors
		switch {
		case errors.As(err, &verr):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", verr.Error())
		case errors.Is(err, httpx.ErrDuplicate):
			httpx.RespondError(w, err)
		default:
			h.logger.Error("create contact", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, contact)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contactID(w, r)
	if !ok {
		return
	}
	contact, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("get contact", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contact)
}

func (h *Handler) tags(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contactID(w, r)
	if !ok {
		return
	}
	tags, pending, err := h.service.TagsView(r.Context(), id)
	if err != nil {
		h.logger.Error("list tags", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"tags":        tags,
		"provisional": pending,
	})
}

type tagRequest struct {
	Tag string `json:"tag"`
}

func (h *Handler) addTag(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contactID(w, r)
	if !ok {
		return
	}
	var req tagRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.service.AddTag(r.Context(), id, req.Tag); err != nil {
		switch {
		case errors.Is(err, ErrEmptyTag):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, shared.ErrNotFound):
			httpx.RespondError(w, httpx.ErrNotFound)
		case errors.Is(err, httpx.ErrDuplicate):
			httpx.RespondError(w, err)
		default:
			h.logger.Error("add tag", slog.Int64("contact_id", id), slog.Any("error", err))
			httpx.Problem(w, http.StatusBadGateway, "Write Failed", "tag was not saved")
		}
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"tag": NormalizeTag(req.Tag)})
}

func (h *Handler) removeTag(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contactID(w, r)
	if !ok {
		return
	}
	tag := chi.URLParam(r, "tag")
	if err := h.service.RemoveTag(r.Context(), id, tag); err != nil {
		switch {
		case errors.Is(err, ErrEmptyTag):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, shared.ErrNotFound):
			httpx.RespondError(w, httpx.ErrNotFound)
		default:
			h.logger.Error("remove tag", slog.Int64("contact_id", id), slog.Any("error", err))
			httpx.Problem(w, http.StatusBadGateway, "Write Failed", "tag was not removed")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fields(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contactID(w, r)
	if !ok {
		return
	}
	fields, pending, err := h.service.FieldsView(r.Context(), id)
	if err != nil {
		h.logger.Error("list fields", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"fields":      fields,
		"provisional": pending,
	})
}

func (h *Handler) setField(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contactID(w, r)
	if !ok {
		return
	}
	var field CustomField
	if err := httpx.DecodeJSON(r, &field); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.service.SetField(r.Context(), id, field); err != nil {
		var verr validator.ValidationErrors
		switch {
		case errors.As(err, &verr):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", verr.Error())
		case errors.Is(err, shared.ErrNotFound):
			httpx.RespondError(w, httpx.ErrNotFound)
		default:
			h.logger.Error("set field", slog.Int64("contact_id", id), slog.Any("error", err))
			httpx.Problem(w, http.StatusBadGateway, "Write Failed", "field was not saved")
		}
		return
	}
	httpx.JSON(w, http.StatusAccepted, field)
}

func (h *Handler) contactID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "contactID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid contact id")
		return 0, false
	}
	return id, true
}
