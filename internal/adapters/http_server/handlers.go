package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"brightnest/internal/app"
	"brightnest/internal/domain"
)

type Handlers struct {
	R *app.ReviewService
	Q *app.QueryService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/v1/appointments/{id}/reviews", h.submitReview)
	s.mux.Post("/v1/appointments/{id}/reviews/legacy", h.submitLegacyReview)
	s.mux.Get("/v1/appointments/{id}/reviews/status", h.reviewStatus)
	s.mux.Get("/v1/users/{id}/reviews", h.userReviews)
	s.mux.Get("/v1/me/reviews", h.myReviews)
	s.mux.Get("/v1/me/reviews/pending", h.pendingReviews)
	s.mux.Delete("/v1/reviews/{id}", h.deleteReview)
}

// callerID is the authenticated user, injected by the upstream auth gateway.
func callerID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

type submitRequest struct {
	UserID         string                   `json:"userId"`
	ReviewType     domain.ReviewType        `json:"reviewType"`
	Rating         *float64                 `json:"review"`
	ReviewComment  *string                  `json:"reviewComment"`
	PrivateComment *string                  `json:"privateComment"`
	SetAsPreferred bool                     `json:"setAsPreferred"`
	Homeowner      *domain.HomeownerAspects `json:"homeownerAspects"`
	Cleaner        *domain.CleanerAspects   `json:"cleanerAspects"`
}

func (h *Handlers) submitReview(w http.ResponseWriter, r *http.Request) {
	reviewer := callerID(r)
	if reviewer == "" {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing caller identity")
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "request body must be valid JSON")
		return
	}
	if req.UserID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "userId is required")
		return
	}
	// System penalty rows are written by the billing pipeline, never through
	// this endpoint.
	if !req.ReviewType.Valid() || req.ReviewType == domain.SystemCancellationPenalty {
		writeProblem(w, http.StatusBadRequest, "Invalid review type", string(req.ReviewType))
		return
	}
	if req.Rating != nil && (*req.Rating < 0 || *req.Rating > 5) {
		writeProblem(w, http.StatusBadRequest, "Invalid rating", "review must be between 0 and 5")
		return
	}

	res, err := h.R.Submit(r.Context(), app.Submission{
		AppointmentID:  chi.URLParam(r, "id"),
		ReviewerID:     reviewer,
		UserID:         req.UserID,
		Type:           req.ReviewType,
		Rating:         req.Rating,
		Comment:        req.ReviewComment,
		PrivateComment: req.PrivateComment,
		SetAsPreferred: req.SetAsPreferred,
		Homeowner:      req.Homeowner,
		Cleaner:        req.Cleaner,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateReview) {
			writeProblem(w, http.StatusConflict, "Duplicate review", domain.ErrDuplicateReview.Error())
			return
		}
		log.Error().Err(err).Msg("review submission failed")
		writeProblem(w, http.StatusInternalServerError, "Internal error", "failed to submit review")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type legacyRequest struct {
	UserID        string            `json:"userId"`
	ReviewType    domain.ReviewType `json:"reviewType"`
	Rating        float64           `json:"review"`
	ReviewComment *string           `json:"reviewComment"`
}

func (h *Handlers) submitLegacyReview(w http.ResponseWriter, r *http.Request) {
	reviewer := callerID(r)
	if reviewer == "" {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing caller identity")
		return
	}
	var req legacyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "request body must be valid JSON")
		return
	}
	if req.UserID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "userId is required")
		return
	}
	if req.ReviewType == "" {
		req.ReviewType = domain.HomeownerToCleaner
	}
	if req.Rating < 0 || req.Rating > 5 {
		writeProblem(w, http.StatusBadRequest, "Invalid rating", "review must be between 0 and 5")
		return
	}

	rv, err := h.R.AddLegacyReview(r.Context(), reviewer, req.UserID, chi.URLParam(r, "id"), req.ReviewType, req.Rating, req.ReviewComment)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateReview) {
			writeProblem(w, http.StatusConflict, "Duplicate review", domain.ErrDuplicateReview.Error())
			return
		}
		log.Error().Err(err).Msg("legacy review submission failed")
		writeProblem(w, http.StatusInternalServerError, "Internal error", "failed to submit review")
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

func (h *Handlers) reviewStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Q.Status(r.Context(), chi.URLParam(r, "id"), callerID(r))
	if err != nil {
		log.Error().Err(err).Msg("review status failed")
		writeProblem(w, http.StatusInternalServerError, "Internal error", "failed to load review status")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) userReviews(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.ReviewsAbout(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Error().Err(err).Msg("user reviews failed")
		writeProblem(w, http.StatusInternalServerError, "Internal error", "failed to load reviews")
		return
	}

	etag, body := calcETagAndBody(out)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write userReviews body")
	}
}

func (h *Handlers) myReviews(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing caller identity")
		return
	}
	out, err := h.Q.AuthoredBy(r.Context(), caller)
	if err != nil {
		log.Error().Err(err).Msg("authored reviews failed")
		writeProblem(w, http.StatusInternalServerError, "Internal error", "failed to load reviews")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) pendingReviews(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing caller identity")
		return
	}
	role := app.Role(r.URL.Query().Get("role"))
	if role != app.RoleHomeowner && role != app.RoleCleaner {
		writeProblem(w, http.StatusBadRequest, "Invalid role", "role must be homeowner or cleaner")
		return
	}
	out, err := h.Q.PendingFor(r.Context(), caller, role)
	if err != nil {
		log.Error().Err(err).Msg("pending reviews failed")
		writeProblem(w, http.StatusInternalServerError, "Internal error", "failed to load pending reviews")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) deleteReview(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing caller identity")
		return
	}
	err := h.R.Delete(r.Context(), caller, chi.URLParam(r, "id"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "review not found")
	case errors.Is(err, domain.ErrNotReviewOwner):
		writeProblem(w, http.StatusForbidden, "Forbidden", domain.ErrNotReviewOwner.Error())
	case errors.Is(err, domain.ErrReviewPublished):
		writeProblem(w, http.StatusConflict, "Conflict", domain.ErrReviewPublished.Error())
	default:
		log.Error().Err(err).Msg("review deletion failed")
		writeProblem(w, http.StatusInternalServerError, "Internal error", "failed to delete review")
	}
}
