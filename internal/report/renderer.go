package report

import (
	"bytes"
	"html/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/temirov/tokenwatch/internal/expiry"
)

const (
	headerTemplateNameConstant  = "header"
	blockTemplateNameConstant   = "block"
	checkedAtLayoutConstant     = "2006-01-02 15:04:05.000000-07:00"
	missingExpiryMarkerConstant = "N/A"
	headerTemplateConstant      = `<h2>GitLab Token Expiry Check (Current time: {{ .CheckedAt }})</h2>
<hr>
`
	blockTemplateConstant = `<b>Token ID:</b> {{ .ID }}<br>` +
		`<b>Token Name:</b> {{ .Name }}<br>` +
		`<b>Created At:</b> {{ .CreatedAt }}<br>` +
		`<b>Expires At:</b> {{ .ExpiresAt | default "` + missingExpiryMarkerConstant + `" }}<br>` +
		`<b>Status:</b> {{ .Status }}<br><br>` +
		`<b>--------------------------------------------------------</b><br>
`
)

type headerParameters struct {
	CheckedAt template.HTML
}

type blockParameters struct {
	ID        int64
	Name      string
	CreatedAt string
	ExpiresAt string
	Status    string
}

// Renderer produces the HTML fragments that make up a token expiry report.
type Renderer struct {
	headerTemplate *template.Template
	blockTemplate  *template.Template
}

// NewRenderer parses the report templates.
func NewRenderer() (*Renderer, error) {
	headerTemplate, headerParseError := template.New(headerTemplateNameConstant).Funcs(sprig.HtmlFuncMap()).Parse(headerTemplateConstant)
	if headerParseError != nil {
		return nil, headerParseError
	}

	blockTemplate, blockParseError := template.New(blockTemplateNameConstant).Funcs(sprig.HtmlFuncMap()).Parse(blockTemplateConstant)
	if blockParseError != nil {
		return nil, blockParseError
	}

	return &Renderer{headerTemplate: headerTemplate, blockTemplate: blockTemplate}, nil
}

// RenderHeader renders the report heading stating when the check ran, in UTC.
func (renderer *Renderer) RenderHeader(checkedAt time.Time) (string, error) {
	return render(renderer.headerTemplate, headerParameters{CheckedAt: template.HTML(FormatCheckedAt(checkedAt))})
}

// RenderBlock renders the report block describing one classified token.
func (renderer *Renderer) RenderBlock(classified expiry.ClassifiedToken) (string, error) {
	return render(renderer.blockTemplate, blockParameters{
		ID:        classified.Token.ID,
		Name:      classified.Token.Name,
		CreatedAt: classified.Token.CreatedAt,
		ExpiresAt: classified.Token.ExpiresAtText(),
		Status:    classified.StatusText(),
	})
}

// FormatCheckedAt renders the run instant the way report headers display it.
func FormatCheckedAt(checkedAt time.Time) string {
	return checkedAt.UTC().Format(checkedAtLayoutConstant)
}

func render(reportTemplate *template.Template, parameters any) (string, error) {
	var renderedContent bytes.Buffer
	if executionError := reportTemplate.Execute(&renderedContent, parameters); executionError != nil {
		return "", executionError
	}
	return renderedContent.String(), nil
}
