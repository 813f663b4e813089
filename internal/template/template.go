// Package template renders the user's message template against a verdict
// and extracted profile fields, enforcing a maximum length and a banned
// phrase list.
//
// Slots are substituted literally (not via text/template's control-flow
// surface) so a user-authored template can never change meaning after
// substitution — see DESIGN.md for why Go's text/template is not used here.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/haasonsaas/outreach-autopilot/internal/domain"
)

var slotPattern = regexp.MustCompile(`\{[a-zA-Z_][a-zA-Z0-9_]*\}`)

// Renderer renders templates with a configured maximum length and banned
// phrase list.
type Renderer struct {
	MaxLength     int
	BannedPhrases []string
}

// New creates a Renderer with the given limits.
func New(maxLength int, bannedPhrases []string) *Renderer {
	return &Renderer{MaxLength: maxLength, BannedPhrases: bannedPhrases}
}

// ErrBanned is returned when a rendered draft contains a banned phrase and
// the verdict carried no usable fallback draft.
var ErrBanned = fmt.Errorf("template: rendered output contains a banned phrase and no fallback draft was available")

// Render substitutes known slots in tmpl using verdict and fields, then
// caps the result at MaxLength and checks it against BannedPhrases.
//
// Known slots: {name} from fields["name"], {why_match} from
// verdict.Rationale, {draft} from verdict.Draft. {cta} has no built-in
// mapping and is filled only from fields["cta"]. Unknown or unmapped
// slots are replaced with a neutral filler, never a visible placeholder.
//
// On a banned-phrase rejection, Render returns the verdict's original
// Draft unchanged if it is non-empty; otherwise it returns ErrBanned.
func (r *Renderer) Render(tmpl string, verdict domain.Verdict, fields map[string]string) (string, error) {
	slots := map[string]string{
		"name":      fields["name"],
		"why_match": verdict.Rationale,
		"draft":     verdict.Draft,
	}
	for k, v := range fields {
		slots[k] = v
	}

	rendered := slotPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		key := token[1 : len(token)-1]
		if v, ok := slots[key]; ok && v != "" {
			return v
		}
		return "" // neutral filler: drop the slot rather than show a placeholder
	})
	rendered = collapseExtraSpaces(rendered)

	if r.MaxLength > 0 && len(rendered) > r.MaxLength {
		rendered = rendered[:r.MaxLength]
	}

	if phrase, banned := r.findBanned(rendered); banned {
		if verdict.Draft != "" {
			return verdict.Draft, nil
		}
		return "", fmt.Errorf("%w: %q", ErrBanned, phrase)
	}

	return rendered, nil
}

func (r *Renderer) findBanned(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, phrase := range r.BannedPhrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return phrase, true
		}
	}
	return "", false
}

var extraSpacePattern = regexp.MustCompile(`[ \t]{2,}`)

// collapseExtraSpaces tidies up runs of horizontal whitespace left behind
// by a dropped slot, without touching the template author's line breaks.
func collapseExtraSpaces(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(extraSpacePattern.ReplaceAllString(line, " "))
	}
	return strings.Join(lines, "\n")
}
