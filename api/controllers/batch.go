package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightstock/imagery-backend/api/responses"
	"github.com/brightstock/imagery-backend/api/validators"
	"github.com/brightstock/imagery-backend/internal/batch"
	"github.com/brightstock/imagery-backend/internal/intake"
	"github.com/brightstock/imagery-backend/pkg/enums"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
	"github.com/brightstock/imagery-backend/pkg/logger"
)

func sessionIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid session id")
	}
	return id, nil
}

func fileIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "fileId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid file id")
	}
	return id, nil
}

type batchSessionOpenRequest struct {
	ProviderID string `json:"provider_id" validate:"required"`
	Mode       string `json:"mode" validate:"required"`
}

// BatchSessionOpen starts a batch session in create or edit mode.
func BatchSessionOpen(orch *batch.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload batchSessionOpenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		providerID, err := uuid.Parse(strings.TrimSpace(payload.ProviderID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid provider id"))
			return
		}
		mode, err := enums.ParsePageMode(strings.TrimSpace(payload.Mode))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mode"))
			return
		}

		session, err := orch.Open(r.Context(), providerID, mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// BatchSessionGet returns the session's current state.
func BatchSessionGet(orch *batch.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := orch.Get(sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

type batchFileRequest struct {
	FileName  string `json:"file_name" validate:"required"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes" validate:"required"`
	Width     *int   `json:"width"`
	Height    *int   `json:"height"`
	// Head carries the file's leading bytes, base64 in transit, for
	// sniffing when mime_type is absent.
	Head []byte `json:"head,omitempty"`
}

// BatchFileRegister adds a file to the session and mints its upload URL.
// The intake pipeline announces the file back to the session, so the
// draft appears without a second request.
func BatchFileRegister(orch *batch.Orchestrator, files intake.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := orch.Get(sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload batchFileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		file, err := files.Register(r.Context(), intake.RegisterInput{
			SessionID:  sessionID,
			ProviderID: session.ProviderID,
			FileName:   validators.SanitizeString(payload.FileName, 255),
			MimeType:   payload.MimeType,
			SizeBytes:  payload.SizeBytes,
			Width:      payload.Width,
			Height:     payload.Height,
			Head:       payload.Head,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, file)
	}
}

// BatchFileRemove drops a registered file from the session.
func BatchFileRemove(files intake.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fileID, err := fileIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := files.Remove(r.Context(), sessionID, fileID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

type batchListingPatchRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Keywords    []string         `json:"keywords"`
	Categories  []string         `json:"categories"`
	Usage       *string          `json:"usage"`
	Releases    *string          `json:"releases"`
	Price       *decimal.Decimal `json:"price"`
	PreviewURL  *string          `json:"preview_url"`
	IsAI        *bool            `json:"is_ai"`
}

func (p batchListingPatchRequest) toPatch() (batch.ListingPatch, error) {
	patch := batch.ListingPatch{
		Title:       p.Title,
		Description: p.Description,
		Keywords:    p.Keywords,
		Categories:  p.Categories,
		Price:       p.Price,
		PreviewURL:  p.PreviewURL,
		IsAI:        p.IsAI,
	}
	if p.Usage != nil {
		usage, err := enums.ParseUsage(strings.TrimSpace(*p.Usage))
		if err != nil {
			return batch.ListingPatch{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid usage")
		}
		patch.Usage = &usage
	}
	if p.Releases != nil {
		releases := enums.Releases(strings.ToLower(strings.TrimSpace(*p.Releases)))
		if !releases.IsValid() {
			return batch.ListingPatch{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid releases value")
		}
		patch.Releases = &releases
	}
	if p.Price != nil && p.Price.IsNegative() {
		return batch.ListingPatch{}, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	return patch, nil
}

// BatchListingEdit merges a user patch into one draft listing.
func BatchListingEdit(orch *batch.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fileID, err := fileIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload batchListingPatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		patch, err := payload.toPatch()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := orch.Edit(sessionID, fileID, patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

type batchSelectionRequest struct {
	IDs []string `json:"ids"`
}

// BatchSelectionSet replaces the selected listing id set.
func BatchSelectionSet(orch *batch.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload batchSelectionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ids := make([]uuid.UUID, 0, len(payload.IDs))
		for _, raw := range payload.IDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing id"))
				return
			}
			ids = append(ids, id)
		}

		session, err := orch.SetSelection(sessionID, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// BatchAITermsAccept marks the AI-content terms accepted.
func BatchAITermsAccept(orch *batch.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := orch.AcceptAITerms(sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// BatchCommit runs a commit pass over the selection and returns the
// settled session, including gate aborts.
func BatchCommit(orch *batch.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := orch.Commit(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}
