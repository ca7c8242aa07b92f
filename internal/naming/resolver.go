// Package naming renders file-name templates into collision-free names.
package naming

import (
	"errors"
	"fmt"
	"strings"

	"github.com/scanforge/scanforge/internal/model"
)

// DefaultTemplate is used when the config collaborator supplies none.
const DefaultTemplate = "scan-{date}-{counter}"

// ErrExhausted means no free name was found within the retry budget, which
// only happens when existingNames is effectively unbounded.
var ErrExhausted = errors.New("could not find a free file name")

// maxAttempts bounds the counter search; hitting it means something is
// feeding us a pathological existing-name set.
const maxAttempts = 1_000_000

// tokenPattern matches a known substitution token.
var tokens = []string{"{date}", "{time}", "{counter}", "{profile}", "{format}", "{dpi}", "{pages}"}

// Resolve substitutes the template tokens from ctx and appends the format
// extension, incrementing the counter until the name is absent from
// existing. The counter starts at ctx.Counter and only ever increases, so
// for a fixed template, context and name set the result is deterministic.
// Unknown tokens are left literally in place and reported as warnings.
func Resolve(template string, ctx model.NamingContext, existing map[string]struct{}) (string, []string, error) {
	if template == "" {
		template = DefaultTemplate
	}
	warnings := unknownTokens(template)

	counter := ctx.Counter
	if counter < 1 {
		counter = 1
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		t := template
		// A template without a counter token cannot disambiguate on
		// retry; grow one on the end once the first candidate collides.
		if attempt > 0 && !strings.Contains(template, "{counter}") {
			t = template + "-{counter}"
		}
		name := render(t, ctx, counter) + ctx.Format.Ext()
		if _, taken := existing[name]; !taken {
			return name, warnings, nil
		}
		counter++
	}
	return "", warnings, fmt.Errorf("%w: template %q", ErrExhausted, template)
}

func render(template string, ctx model.NamingContext, counter int) string {
	r := strings.NewReplacer(
		"{date}", ctx.Timestamp.Format("2006-01-02"),
		"{time}", ctx.Timestamp.Format("150405"),
		"{counter}", fmt.Sprintf("%03d", counter),
		"{profile}", ctx.Profile,
		"{format}", string(ctx.Format),
		"{dpi}", fmt.Sprintf("%d", ctx.DPI),
		"{pages}", fmt.Sprintf("%d", ctx.PageCount),
	)
	return r.Replace(template)
}

// unknownTokens reports {...} groups that are not recognized tokens. They
// stay in the rendered name verbatim; a typo'd template is a warning, not
// an error.
func unknownTokens(template string) []string {
	var warnings []string
	rest := template
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			break
		}
		tok := rest[start : start+end+1]
		known := false
		for _, t := range tokens {
			if tok == t {
				known = true
				break
			}
		}
		if !known {
			warnings = append(warnings, fmt.Sprintf("unknown template token %s left as-is", tok))
		}
		rest = rest[start+end+1:]
	}
	return warnings
}
