package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	nonHandle   = regexp.MustCompile(`[^a-z0-9_]+`)
	underscores = regexp.MustCompile(`_+`)
	nonSlug     = regexp.MustCompile(`[^a-z0-9]+`)
	mention     = regexp.MustCompile(`@([A-Za-z0-9._-]{2,30})`)
)

// Handle normalizes user input into a handle: lower case, [a-z0-9_] only,
// no leading, trailing or repeated underscores, at most max runes.
func Handle(s string, max int) string {
	h := nonHandle.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")
	h = underscores.ReplaceAllString(h, "_")
	h = strings.Trim(h, "_")
	if len(h) > max {
		h = strings.TrimRight(h[:max], "_")
	}
	return h
}

// BaseHandle maps every rune outside [a-z0-9_] of the lower-cased input
// to "_" one for one and cuts the result to max.
func BaseHandle(s string, max int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		if b.Len() == max {
			break
		}
	}
	return b.String()
}

// Slug turns a display name into a dash separated URL slug.
func Slug(s string) string {
	out := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if out == "" {
		return "dashboard"
	}
	if len(out) > 60 {
		out = strings.TrimRight(out[:60], "-")
	}
	return out
}

// Mentions returns the distinct handles mentioned with @ in text, lower cased,
// in order of first appearance.
func Mentions(text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range mention.FindAllStringSubmatch(text, -1) {
		h := strings.ToLower(m[1])
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	return out
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// Snippet is Truncate with an ellipsis when anything was cut.
func Snippet(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return Truncate(s, n) + "…"
}

// Personalize fills the bulk-message placeholders for one recipient.
func Personalize(text, displayName, handle string) string {
	first := handle
	if f := strings.Fields(displayName); len(f) > 0 {
		first = f[0]
	}
	r := strings.NewReplacer(
		"{{name}}", first,
		"{firstName}", first,
		"{displayName}", displayName,
		"{handle}", handle,
	)
	return r.Replace(text)
}
