package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sells-group/labelscore/internal/extract"
	"github.com/sells-group/labelscore/internal/model"
	"github.com/sells-group/labelscore/internal/scoring"
	"github.com/sells-group/labelscore/pkg/functions"
)

// Function names on the BaaS transport.
const (
	FunctionExtract = "extract"
	FunctionScore   = "score"
)

// BoundaryError is a non-2xx reply from a boundary endpoint with its
// decoded error code, if any.
type BoundaryError struct {
	Status  int
	ErrCode string
	Message string
}

func (e *BoundaryError) Error() string {
	if e.ErrCode != "" {
		return fmt.Sprintf("pipeline: boundary HTTP %d: %s: %s", e.Status, e.ErrCode, e.Message)
	}
	return fmt.Sprintf("pipeline: boundary HTTP %d: %s", e.Status, e.Message)
}

// HTTPStatus returns the boundary status code.
func (e *BoundaryError) HTTPStatus() int { return e.Status }

// Code returns the wire error code.
func (e *BoundaryError) Code() string { return e.ErrCode }

// RemoteExtractor calls the hosted extraction function.
type RemoteExtractor struct {
	fn functions.Client
}

// NewRemoteExtractor creates a RemoteExtractor.
func NewRemoteExtractor(fn functions.Client) *RemoteExtractor {
	return &RemoteExtractor{fn: fn}
}

// Extract implements Extractor. For 451 and 502 replies the decoded body is
// returned alongside the error so remediation reaches the caller.
func (r *RemoteExtractor) Extract(ctx context.Context, req model.ExtractRequest) (*model.ExtractResponse, error) {
	var resp model.ExtractResponse
	err := r.fn.Invoke(ctx, FunctionExtract, req, &resp)
	if err == nil {
		return &resp, nil
	}
	var apiErr *functions.APIError
	if !errors.As(err, &apiErr) {
		return nil, err
	}
	be := decodeBoundaryError(apiErr)
	var body model.ExtractResponse
	if json.Unmarshal(apiErr.Body, &body) == nil && body.Meta.Status != "" {
		return &body, be
	}
	return nil, be
}

// RemoteScorer calls the hosted scoring function.
type RemoteScorer struct {
	fn functions.Client
}

// NewRemoteScorer creates a RemoteScorer.
func NewRemoteScorer(fn functions.Client) *RemoteScorer {
	return &RemoteScorer{fn: fn}
}

// Score implements ScoreClient.
func (r *RemoteScorer) Score(ctx context.Context, req model.ScoreRequest) (*model.ScoreResponse, error) {
	var resp model.ScoreResponse
	err := r.fn.Invoke(ctx, FunctionScore, req, &resp)
	if err == nil {
		return &resp, nil
	}
	var apiErr *functions.APIError
	if errors.As(err, &apiErr) {
		return nil, decodeBoundaryError(apiErr)
	}
	return nil, err
}

func decodeBoundaryError(e *functions.APIError) *BoundaryError {
	be := &BoundaryError{Status: e.StatusCode, Message: string(e.Body)}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(e.Body, &body) == nil {
		be.ErrCode = body.Error
		if body.Message != "" {
			be.Message = body.Message
		}
	}
	return be
}

// LocalExtractor runs extraction in-process.
type LocalExtractor struct {
	svc *extract.Service
}

// NewLocalExtractor wraps an extract.Service.
func NewLocalExtractor(svc *extract.Service) *LocalExtractor {
	return &LocalExtractor{svc: svc}
}

// Extract implements Extractor.
func (l *LocalExtractor) Extract(ctx context.Context, req model.ExtractRequest) (*model.ExtractResponse, error) {
	return l.svc.Extract(ctx, req)
}

// LocalScorer runs the scoring call in-process.
type LocalScorer struct {
	scorer *scoring.Scorer
}

// NewLocalScorer wraps a scoring.Scorer.
func NewLocalScorer(s *scoring.Scorer) *LocalScorer {
	return &LocalScorer{scorer: s}
}

// Score implements ScoreClient.
func (l *LocalScorer) Score(ctx context.Context, req model.ScoreRequest) (*model.ScoreResponse, error) {
	payload, steps, err := l.scorer.Score(ctx, req)
	if err != nil {
		return nil, err
	}
	return &model.ScoreResponse{
		ScorePayload: payload,
		Meta: model.ScoreMeta{
			Model: l.scorer.Model(),
			TS:    time.Now().UTC(),
			Chain: steps,
		},
	}, nil
}
