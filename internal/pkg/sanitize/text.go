// Package sanitize strips markup from user supplied plain text.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Text removes every HTML element from user text. Script and style bodies
// are dropped along with their tags; character entities come back decoded
// so the stored value stays plain text.
type Text struct {
	policy *bluemonday.Policy
}

func NewText() *Text {
	return &Text{policy: bluemonday.StrictPolicy()}
}

func (t *Text) Clean(raw string) string {
	if t == nil || t.policy == nil {
		return strings.TrimSpace(raw)
	}
	if !strings.ContainsAny(raw, "<>&") {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(html.UnescapeString(t.policy.Sanitize(raw)))
}
