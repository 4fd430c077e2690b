package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/labelscore/internal/model"
)

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, req model.ExtractRequest) (*model.ExtractResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExtractResponse), args.Error(1)
}

type mockScoreClient struct {
	mock.Mock
}

func (m *mockScoreClient) Score(ctx context.Context, req model.ScoreRequest) (*model.ScoreResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScoreResponse), args.Error(1)
}

// failingCache errors on every call.
type failingCache struct{}

func (failingCache) Get(context.Context, string) (*model.CachedEntry, error) {
	return nil, context.DeadlineExceeded
}

func (failingCache) Put(context.Context, string, *model.CachedEntry) error {
	return context.DeadlineExceeded
}

func (failingCache) Delete(context.Context, string) error { return nil }
