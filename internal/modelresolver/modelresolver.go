// Package modelresolver selects, at startup, a decision model and an
// optional computer-use model from those the configured LLM provider
// advertises as available, and folds the choice into the immutable
// RunContext. Availability comes from a live ListModels call via
// sashabaranov/go-openai, never a hard-coded slice.
package modelresolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Resolved is the outcome folded into RunContext.
type Resolved struct {
	DecisionModel string
	CUAModel      string
}

// ModelLister abstracts the subset of the provider client this package
// needs, so tests can supply a fake without hitting the network.
type ModelLister interface {
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// Resolver picks models from what the provider advertises.
type Resolver struct {
	lister ModelLister
}

// New builds a Resolver over an OpenAI-compatible client.
func New(client *openai.Client) *Resolver {
	return &Resolver{lister: client}
}

// NewWithLister builds a Resolver over an arbitrary ModelLister, for tests.
func NewWithLister(lister ModelLister) *Resolver {
	return &Resolver{lister: lister}
}

// decisionPreference and cuaPreference rank candidate model-ID substrings
// from most to least preferred when the config doesn't pin an exact model.
var decisionPreference = []string{"gpt-5", "o3", "gpt-4.1", "gpt-4o"}
var cuaPreference = []string{"computer-use", "gpt-4o"}

// Resolve chooses a decision model (required) and, when plannerMode is
// true, a computer-use model (optional: left empty if none advertised).
// configuredDecision/configuredCUA pin an exact model id when non-empty,
// bypassing preference ranking but still validated against the advertised
// list.
func (r *Resolver) Resolve(ctx context.Context, configuredDecision, configuredCUA string, plannerMode bool) (Resolved, error) {
	list, err := r.lister.ListModels(ctx)
	if err != nil {
		return Resolved{}, fmt.Errorf("modelresolver: list models: %w", err)
	}

	available := make(map[string]bool, len(list.Models))
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		available[m.ID] = true
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)

	decisionModel := configuredDecision
	if decisionModel == "" {
		decisionModel = pickPreferred(ids, decisionPreference)
	} else if !available[decisionModel] {
		return Resolved{}, fmt.Errorf("modelresolver: configured decision_model %q not advertised by provider", decisionModel)
	}
	if decisionModel == "" {
		return Resolved{}, fmt.Errorf("modelresolver: no decision model available")
	}

	cuaModel := ""
	if plannerMode {
		cuaModel = configuredCUA
		if cuaModel == "" {
			cuaModel = pickPreferred(ids, cuaPreference)
		} else if !available[cuaModel] {
			return Resolved{}, fmt.Errorf("modelresolver: configured cua_model %q not advertised by provider", cuaModel)
		}
	}

	return Resolved{DecisionModel: decisionModel, CUAModel: cuaModel}, nil
}

func pickPreferred(available []string, preference []string) string {
	for _, want := range preference {
		for _, id := range available {
			if strings.Contains(id, want) {
				return id
			}
		}
	}
	if len(available) > 0 {
		return available[0]
	}
	return ""
}
