package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Clark-Hu/care-map/internal/domain"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type submitRatingRequest struct {
	Institution string `json:"institution"`
	Rating      *int   `json:"rating"`
}

type submitRatingResponse struct {
	Status string         `json:"status"`
	Rating ratingResponse `json:"rating"`
}

type ratingResponse struct {
	ID          int64     `json:"id"`
	Institution string    `json:"institution"`
	Value       int       `json:"value"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	var req submitRatingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	institutionID := strings.TrimSpace(req.Institution)
	if institutionID == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "institution is required")
		return
	}
	if req.Rating == nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "rating is required")
		return
	}

	rating, err := s.coord.SubmitRating(r.Context(), institutionID, *req.Rating)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("Institution '%s' not found", institutionID))
			return
		}
		s.logger.Error("submit rating failed", "institution_id", institutionID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to submit rating")
		return
	}

	s.respondJSON(w, http.StatusOK, submitRatingResponse{
		Status: "Rating submitted successfully",
		Rating: ratingResponse{
			ID:          rating.ID,
			Institution: rating.InstitutionID,
			Value:       rating.Value,
			CreatedAt:   rating.CreatedAt,
		},
	})
}

func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	snap, err := s.coord.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("build snapshot failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load data")
		return
	}
	s.respondJSON(w, http.StatusOK, snap)
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Error: message,
		Code:  code,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError), errors.Is(err, io.ErrUnexpectedEOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Request body too large")
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}
