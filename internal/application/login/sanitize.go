package login

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

const maxFailureLength = 200

var (
	bannerPolicyOnce sync.Once
	bannerPolicy     *bluemonday.Policy
)

// sanitize strips markup from messages coming back from the auth API before
// they are shown in the failure banner. The result is plain text; renderers
// escape it again.
func sanitize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	cleaned := html.UnescapeString(bannerSanitizer().Sanitize(trimmed))
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if runes := []rune(cleaned); len(runes) > maxFailureLength {
		cleaned = string(runes[:maxFailureLength]) + "…"
	}
	return cleaned
}

func bannerSanitizer() *bluemonday.Policy {
	bannerPolicyOnce.Do(func() {
		bannerPolicy = bluemonday.StrictPolicy()
	})
	return bannerPolicy
}
