package processor

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/cx-engine/internal/model"
	"github.com/sells-group/cx-engine/internal/store"
	"github.com/sells-group/cx-engine/pkg/anthropic"
)

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveAnalysis(ctx context.Context, outcome model.AnalysisOutcome) error {
	args := m.Called(ctx, outcome)
	return args.Error(0)
}

func (m *mockStore) GetAnalysis(ctx context.Context, analysisID string) (*model.AnalysisOutcome, error) {
	args := m.Called(ctx, analysisID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalysisOutcome), args.Error(1)
}

func (m *mockStore) ListAnalyses(ctx context.Context, filter store.AnalysisFilter) ([]model.AnalysisOutcome, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AnalysisOutcome), args.Error(1)
}

func (m *mockStore) MarkFeedbackProcessed(ctx context.Context, feedbackID, analysisID string) error {
	args := m.Called(ctx, feedbackID, analysisID)
	return args.Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Ensure interface compliance ---
var (
	_ anthropic.Client = (*mockAnthropicClient)(nil)
	_ store.Store      = (*mockStore)(nil)
)
