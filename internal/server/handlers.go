package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/labelscore/internal/model"
	"github.com/sells-group/labelscore/internal/resilience"
	"github.com/sells-group/labelscore/internal/scoring"
)

// Wire error codes.
const (
	CodeInvalidRequest = "invalid_request"
	CodeMissingLLMKey  = "missing_llm_key"
	CodeBlockedDomain  = "blocked_domain"
	CodeNoHTML         = "no_html"
	CodeInternal       = "internal_error"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// extractErrorBody carries the error code alongside the partial response so
// _meta reaches the caller.
type extractErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	*model.ExtractResponse
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req model.ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid request body")
		return
	}

	resp, err := s.extractor.Extract(r.Context(), req)
	if err == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	status := resilience.StatusOf(err)
	if status == 0 {
		status = http.StatusInternalServerError
	}
	code := extractErrorCode(status)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("server: extract failed", zap.String("url", req.URL), zap.Error(err))
		msg = "extraction failed"
	}
	if resp == nil {
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, status, extractErrorBody{Error: code, Message: msg, ExtractResponse: resp})
}

func extractErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidRequest
	case http.StatusUnavailableForLegalReasons:
		return CodeBlockedDomain
	case http.StatusBadGateway:
		return CodeNoHTML
	default:
		return CodeInternal
	}
}

// scoreBody accepts the canonical request plus the legacy
// supplementFacts.raw shape.
type scoreBody struct {
	Title           string   `json:"title"`
	Ingredients     []string `json:"ingredients"`
	Facts           string   `json:"facts"`
	Warnings        []string `json:"warnings"`
	SupplementFacts *struct {
		Raw string `json:"raw"`
	} `json:"supplementFacts"`
}

// normalize folds the legacy facts field into Facts.
func (b scoreBody) normalize() model.ScoreRequest {
	facts := strings.TrimSpace(b.Facts)
	if facts == "" && b.SupplementFacts != nil {
		facts = strings.TrimSpace(b.SupplementFacts.Raw)
	}
	return model.ScoreRequest{
		Title:       strings.TrimSpace(b.Title),
		Ingredients: b.Ingredients,
		Facts:       facts,
		Warnings:    b.Warnings,
	}
}

type coder interface {
	Code() string
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var body scoreBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid request body")
		return
	}
	req := body.normalize()
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "title is required")
		return
	}
	if s.scorer == nil {
		writeError(w, http.StatusBadRequest, CodeMissingLLMKey, "scoring is not configured: missing LLM API key")
		return
	}

	resp, err := s.scorer.Score(r.Context(), req)
	if err == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	var c coder
	switch {
	case errors.Is(err, scoring.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
	case errors.As(err, &c) && c.Code() == model.CodeQuotaExceeded:
		writeError(w, http.StatusServiceUnavailable, model.CodeQuotaExceeded, "LLM quota exhausted, try again later")
	default:
		zap.L().Error("server: score failed", zap.String("title", req.Title), zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternal, "scoring failed")
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: write response", zap.Error(err))
	}
}
