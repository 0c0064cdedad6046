package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/fcl-miniapp/internal/application/registration"
	"github.com/fcl-miniapp/internal/domain"
	"github.com/fcl-miniapp/internal/pkg/validate"
	"github.com/fcl-miniapp/internal/transport/http/middleware"
)

const maxBodyBytes = 1 << 20

// DraftRequest is the wire shape of a draft or submit body.
type DraftRequest struct {
	Discipline *string        `json:"discipline" validate:"omitempty,oneof=CS2 DOTA2 FC26"`
	Mode       *string        `json:"mode" validate:"omitempty,oneof=team individual"`
	Data       map[string]any `json:"data"`
}

func (req DraftRequest) toDocument() (domain.DraftDocument, error) {
	var doc domain.DraftDocument
	if req.Discipline != nil {
		d, err := domain.ParseDiscipline(*req.Discipline)
		if err != nil {
			return doc, err
		}
		doc.Discipline = d
	}
	if req.Mode != nil {
		m, err := domain.ParseMode(*req.Mode)
		if err != nil {
			return doc, err
		}
		doc.Mode = m
	}
	doc.Data = req.Data
	return doc, nil
}

// RegistrationHandler serves the draft and submit endpoints.
type RegistrationHandler struct {
	svc    registration.Service
	logger *slog.Logger
}

func NewRegistrationHandler(svc registration.Service, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{svc: svc, logger: logger}
}

func (h *RegistrationHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, DraftEnvelope{Draft: h.svc.GetDraft(r.Context(), identity.ID)})
}

func (h *RegistrationHandler) PutDraft(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	doc, err := decodeDraft(w, r)
	if err != nil {
		httpError(w, r, h.logger, err)
		return
	}
	if doc == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return
	}
	if _, err := h.svc.SaveDraft(r.Context(), identity.ID, *doc); err != nil {
		httpError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RegistrationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	doc, err := decodeDraft(w, r)
	if err != nil {
		httpError(w, r, h.logger, err)
		return
	}
	_, err = h.svc.Submit(r.Context(), registration.SubmitRequest{
		Identity: identity,
		Document: doc,
		InitData: middleware.InitDataFromContext(r.Context()),
	})
	if err != nil {
		httpError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeDraft reads an optional DraftRequest body. It returns nil, nil for an
// empty body; any decode or tag failure wraps domain.ErrBadRequest.
func decodeDraft(w http.ResponseWriter, r *http.Request) (*domain.DraftDocument, error) {
	var req DraftRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid request body: %w", domain.ErrBadRequest)
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	doc, err := req.toDocument()
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
