// Package markup builds the HTML document printed by the rendering engine.
package markup

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"report-service-go/internal/domain/document"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"display": document.Display,
}

var (
	documentTemplate = template.Must(template.New("document.html").Funcs(funcs).ParseFS(templateFS, "templates/document.html"))
	footerTemplate   = template.Must(template.New("footer.html").ParseFS(templateFS, "templates/footer.html"))
)

// Options carries everything the markup needs besides the document itself.
type Options struct {
	CompanyName string
	// LogoSrc and QRSrc are image URLs relative to the document, typically
	// the names of assets uploaded with it. Empty LogoSrc draws a text mark;
	// empty QRSrc omits the QR code.
	LogoSrc     string
	QRSrc       string
	GeneratedAt time.Time
}

// Build returns the complete HTML document for cfg and content.
func Build(cfg document.Config, content document.Content, opts Options) (string, error) {
	if err := document.Validate(content); err != nil {
		return "", err
	}
	cfg = cfg.WithDefaults()

	b := &builder{}
	for i, sec := range content.Sections {
		if err := sec.Accept(b); err != nil {
			return "", fmt.Errorf("section %d (%q): %w", i, sec.SectionTitle(), err)
		}
	}

	company := opts.CompanyName
	if company == "" {
		company = document.CompanyName(cfg.Company)
	}
	reportNumber := content.Footer.ReportNumber
	if reportNumber == "" {
		reportNumber = cfg.ReportNumber
	}

	data := page{
		Config:       cfg,
		Header:       content.Header,
		Company:      company,
		TextMark:     textMark(cfg.Company, company),
		LogoSrc:      opts.LogoSrc,
		QRSrc:        opts.QRSrc,
		Sections:     b.sections,
		Inspector:    signatory(content.Footer.Inspector),
		ReportNumber: document.Display(reportNumber),
		GeneratedAt:  opts.GeneratedAt.Format(document.TimestampLayout),
	}
	if content.Footer.Manager != nil {
		m := signatory(*content.Footer.Manager)
		data.Manager = &m
	}

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute document template: %w", err)
	}
	return buf.String(), nil
}

// BuildPageFooter returns the per-page footer printed by the engine inside
// the bottom margin. The engine fills in the page number spans.
func BuildPageFooter(cfg document.Config) (string, error) {
	var buf bytes.Buffer
	if err := footerTemplate.Execute(&buf, struct{ ReportNumber string }{document.Display(cfg.ReportNumber)}); err != nil {
		return "", fmt.Errorf("failed to execute footer template: %w", err)
	}
	return buf.String(), nil
}

type page struct {
	Config       document.Config
	Header       document.Header
	Company      string
	TextMark     string
	LogoSrc      string
	QRSrc        string
	Sections     []sectionView
	Inspector    signatoryView
	Manager      *signatoryView
	ReportNumber string
	GeneratedAt  string
}

type signatoryView struct {
	Name string
	Date string
}

func signatory(s document.Signatory) signatoryView {
	return signatoryView{Name: document.Display(s.Name), Date: document.Display(s.Date)}
}

func textMark(code, company string) string {
	if code != "" {
		return code
	}
	return company
}
