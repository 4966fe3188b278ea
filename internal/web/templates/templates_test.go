package templates

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/khosimport/internal/importer"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestErrorAlert(t *testing.T) {
	html := render(t, ErrorAlert("The file is <broken>", "Upload it again", "FILE002"))

	assert.Equal(t, `<div class="alert alert-error" role="alert">`+
		`<p class="alert-title">The file is &lt;broken&gt;</p>`+
		`<p class="alert-action">Upload it again</p>`+
		`<p class="alert-code">Code: FILE002</p></div>`, html)
}

func TestErrorAlert_OmitsEmptyParts(t *testing.T) {
	html := render(t, ErrorAlert("Something failed", "", ""))

	assert.Equal(t, `<div class="alert alert-error" role="alert"><p class="alert-title">Something failed</p></div>`, html)
}

func TestImportSummary(t *testing.T) {
	res := importer.BatchResult{
		Success: 2,
		Failed:  1,
		Errors:  []string{`Row 3: "<b>" is not a phone`},
		Outcome: importer.OutcomePartial,
	}

	html := render(t, ImportSummary(res))

	assert.Contains(t, html, `data-outcome="partial"`)
	assert.NotContains(t, html, "<h3>")
	assert.Contains(t, html, "<p>"+res.Message()+"</p>")
	assert.Contains(t, html, "<dt>Imported</dt><dd>2</dd><dt>Failed</dt><dd>1</dd>")
	assert.Contains(t, html, `<li>Row 3: &#34;&lt;b&gt;&#34; is not a phone</li>`)
}

func TestImportSummary_FailedHeadline(t *testing.T) {
	res := importer.BatchResult{Failed: 2, Outcome: importer.OutcomeFailed}

	html := render(t, ImportSummary(res))

	assert.Contains(t, html, "<h3>Import failed</h3>")
	assert.NotContains(t, html, "import-errors")
}

func TestPreviewTable(t *testing.T) {
	p := importer.PreviewResult{
		TotalRows:       5,
		ValidRows:       4,
		InvalidRows:     1,
		MissingRequired: []string{importer.FieldCode, importer.FieldPhone},
		Fields: []importer.FieldPreview{
			{Field: importer.FieldPhone, Header: "Утас", Sample: "99009900", MatchedRows: 5},
			{Field: importer.FieldCode},
		},
	}

	html := render(t, PreviewTable(p))

	assert.Contains(t, html, "<p>5 rows, 4 valid, 1 invalid</p>")
	assert.Contains(t, html, "Missing required columns: "+importer.FieldCode+", "+importer.FieldPhone)
	assert.Contains(t, html, "<td>Утас</td><td>99009900</td><td>5</td>")
	assert.Contains(t, html, "<td>"+importer.FieldCode+"</td><td>-</td><td></td><td>0</td>")
}
