package planner

import (
	"context"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/featuregraph/internal/connector"
	"github.com/josephgoksu/featuregraph/internal/graph"
	"github.com/josephgoksu/featuregraph/internal/tags"
)

// MockChatModel replays responses in order; the last one repeats.
type MockChatModel struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Prompts   []string
}

func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range input {
		m.Prompts = append(m.Prompts, msg.Content)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	i := min(len(m.Prompts)-1, len(m.Responses)-1)
	return &schema.Message{Role: schema.Assistant, Content: m.Responses[i]}, nil
}

func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func (m *MockChatModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

func newTestConnector(t *testing.T) *connector.Connector {
	t.Helper()
	tm := tags.NewManager(tags.Options{Fs: afero.NewMemMapFs()})
	return connector.New(graph.NewMemoryStore(), tm)
}

func checkoutFeature() connector.FeatureInput {
	return connector.FeatureInput{Feature: connector.Feature{
		ID:   "feature-12",
		Name: "Checkout",
		Requirements: []string{
			"Design the checkout page wireframe",
			"Integrate the payment provider",
			"Add order confirmation email",
			"Write tests for payment failures",
		},
		UserStories: []string{"As a shopper, I want to save my card so that I can pay faster"},
	}}
}

func addFeature(t *testing.T, c *connector.Connector, in connector.FeatureInput) {
	t.Helper()
	_, err := c.AddFeature(context.Background(), in)
	require.NoError(t, err)
}
