package naming

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanforge/scanforge/internal/model"
)

func testContext() model.NamingContext {
	return model.NamingContext{
		Timestamp: time.Date(2026, 8, 31, 14, 30, 5, 0, time.UTC),
		Profile:   "text",
		Format:    model.FormatPDF,
		Counter:   1,
		PageCount: 5,
		DPI:       150,
	}
}

func TestResolveTokens(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "default template",
			template: "",
			want:     "scan-2026-08-31-001.pdf",
		},
		{
			name:     "date and counter",
			template: "{date}-{counter}",
			want:     "2026-08-31-001.pdf",
		},
		{
			name:     "all tokens",
			template: "{date}_{time}_{profile}_{format}_{dpi}dpi_{pages}p_{counter}",
			want:     "2026-08-31_143005_text_pdf_150dpi_5p_001.pdf",
		},
		{
			name:     "literal text",
			template: "invoice",
			want:     "invoice.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings, err := Resolve(tt.template, testContext(), nil)
			require.NoError(t, err)
			assert.Empty(t, warnings)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveSkipsTakenNames(t *testing.T) {
	existing := map[string]struct{}{
		"2026-08-31-001.pdf": {},
		"2026-08-31-002.pdf": {},
	}

	got, _, err := Resolve("{date}-{counter}", testContext(), existing)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-31-003.pdf", got)
}

func TestResolveCounterStartsAtContext(t *testing.T) {
	ctx := testContext()
	ctx.Counter = 42

	got, _, err := Resolve("{counter}", ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "042.pdf", got)
}

func TestResolveGrowsCounterForCounterlessTemplate(t *testing.T) {
	existing := map[string]struct{}{
		"invoice.pdf":     {},
		"invoice-001.pdf": {},
	}

	got, _, err := Resolve("invoice", testContext(), existing)
	require.NoError(t, err)
	assert.Equal(t, "invoice-002.pdf", got)
}

func TestResolveDeterministic(t *testing.T) {
	existing := map[string]struct{}{"scan-2026-08-31-001.pdf": {}}

	first, _, err := Resolve("", testContext(), existing)
	require.NoError(t, err)
	second, _, err := Resolve("", testContext(), existing)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveSequenceNeverRepeats(t *testing.T) {
	// Resolving and claiming names in a loop yields strictly fresh names.
	existing := map[string]struct{}{}
	ctx := testContext()
	for i := 0; i < 25; i++ {
		name, _, err := Resolve("{date}-{counter}", ctx, existing)
		require.NoError(t, err)
		_, taken := existing[name]
		require.False(t, taken, "iteration %d produced duplicate %s", i, name)
		existing[name] = struct{}{}
	}
	assert.Len(t, existing, 25)
}

func TestResolveWarnsOnUnknownTokens(t *testing.T) {
	got, warnings, err := Resolve("{datum}-{counter}", testContext(), nil)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "{datum}")
	// The typo stays in the name verbatim.
	assert.Equal(t, "{datum}-001.pdf", got)
}

func TestResolveFormatExtension(t *testing.T) {
	for _, format := range []model.Format{model.FormatPDF, model.FormatPNG, model.FormatJPG} {
		ctx := testContext()
		ctx.Format = format
		got, _, err := Resolve("x-{counter}", ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("x-001.%s", format), got)
	}
}
