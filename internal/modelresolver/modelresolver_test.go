package modelresolver

import (
	"context"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	ids []string
	err error
}

func (f fakeLister) ListModels(ctx context.Context) (openai.ModelsList, error) {
	if f.err != nil {
		return openai.ModelsList{}, f.err
	}
	list := openai.ModelsList{}
	for _, id := range f.ids {
		list.Models = append(list.Models, openai.Model{ID: id})
	}
	return list, nil
}

func TestResolvePicksPreferredDecisionModel(t *testing.T) {
	r := NewWithLister(fakeLister{ids: []string{"gpt-3.5-turbo", "gpt-4o", "gpt-5-mini"}})
	resolved, err := r.Resolve(context.Background(), "", "", false)
	require.NoError(t, err)
	require.Equal(t, "gpt-5-mini", resolved.DecisionModel)
	require.Empty(t, resolved.CUAModel)
}

func TestResolveHonorsConfiguredModel(t *testing.T) {
	r := NewWithLister(fakeLister{ids: []string{"gpt-4o", "custom-model"}})
	resolved, err := r.Resolve(context.Background(), "custom-model", "", false)
	require.NoError(t, err)
	require.Equal(t, "custom-model", resolved.DecisionModel)
}

func TestResolveRejectsUnavailableConfiguredModel(t *testing.T) {
	r := NewWithLister(fakeLister{ids: []string{"gpt-4o"}})
	_, err := r.Resolve(context.Background(), "nonexistent-model", "", false)
	require.Error(t, err)
}

func TestResolvePlannerModeAddsCUAModel(t *testing.T) {
	r := NewWithLister(fakeLister{ids: []string{"gpt-4o", "computer-use-preview"}})
	resolved, err := r.Resolve(context.Background(), "gpt-4o", "", true)
	require.NoError(t, err)
	require.Equal(t, "computer-use-preview", resolved.CUAModel)
}
