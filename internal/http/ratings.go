package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Clark-Hu/rating-pulse/internal/domain"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type rateRequest struct {
	Value *int `json:"value"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if req.Value == nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "value is required")
		return
	}

	if _, err := s.repo.Ratings.Insert(r.Context(), *req.Value); err != nil {
		if errors.Is(err, domain.ErrInvalidValue) {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "value must be an integer between 1 and 5")
			return
		}
		s.logger.Printf("insert rating error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record rating")
		return
	}

	s.respondJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleGetRatings(w http.ResponseWriter, r *http.Request) {
	agg, err := s.repo.Ratings.Aggregate(r.Context())
	if err != nil {
		s.logger.Printf("aggregate ratings error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch ratings")
		return
	}
	s.respondJSON(w, http.StatusOK, agg)
}

func (s *Server) handleClearRatings(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.repo.Ratings.Clear(r.Context())
	if err != nil {
		s.logger.Printf("clear ratings error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to clear ratings")
		return
	}
	s.logger.Printf("cleared %d rating events", deleted)
	s.respondJSON(w, http.StatusOK, successResponse{Success: true})
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
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}
