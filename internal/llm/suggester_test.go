package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/recyclerie/bascule/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient scripts the raw LLM client.
type mockClient struct {
	reply      string
	models     []string
	err        error
	calls      int
	modelCalls int
}

func (m *mockClient) Complete(_ context.Context, _, _ string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockClient) ListModels(_ context.Context) ([]string, error) {
	m.modelCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.models, nil
}

func TestSuggester_Suggest(t *testing.T) {
	client := &mockClient{reply: "chaise | Meubles | 88\n"}
	s := &Suggester{client: client, provider: "mistral"}

	suggestions, err := s.Suggest(context.Background(), []string{"chaise"}, []string{"Meubles", "Vaisselle"})
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Meubles", suggestions[0].TargetName)
	assert.Equal(t, "mistral", s.Provider())
}

func TestSuggester_EmptyBatchSkipsCall(t *testing.T) {
	client := &mockClient{}
	s := &Suggester{client: client, provider: "mistral"}

	suggestions, err := s.Suggest(context.Background(), nil, []string{"Meubles"})
	require.NoError(t, err)
	assert.Empty(t, suggestions)
	assert.Equal(t, 0, client.calls)
}

func TestSuggester_ErrorWrapped(t *testing.T) {
	client := &mockClient{err: errors.New("503 from provider")}
	s := &Suggester{client: client, provider: "mistral"}

	_, err := s.Suggest(context.Background(), []string{"chaise"}, []string{"Meubles"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrSuggestionFailed))
	// Default retry policy tried more than once before giving up
	assert.Greater(t, client.calls, 1)
}

func TestSuggester_ModelsUsesInjectedCache(t *testing.T) {
	client := &mockClient{models: []string{"mistral-small-latest", "mistral-large-latest"}}
	cache := NewModelsCache(time.Hour)
	s := &Suggester{client: client, models: cache, provider: "mistral"}
	ctx := context.Background()

	first, err := s.Models(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, 1, client.modelCalls)

	// Second call is served from the cache
	second, err := s.Models(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.modelCalls)
}

func TestModelsCache_Expiry(t *testing.T) {
	cache := NewModelsCache(10 * time.Millisecond)

	_, ok := cache.Get()
	assert.False(t, ok, "empty cache must miss")

	cache.Set([]string{"gpt-4o-mini"})
	got, ok := cache.Get()
	require.True(t, ok)
	assert.Equal(t, []string{"gpt-4o-mini"}, got)

	time.Sleep(20 * time.Millisecond)
	_, ok = cache.Get()
	assert.False(t, ok, "expired cache must miss")
}
