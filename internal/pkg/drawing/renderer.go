// Package drawing renders documents with imperative drawing commands on an
// fpdf canvas. It needs no external process and lays out pages by hand.
package drawing

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"report-service-go/internal/domain/document"
	"report-service-go/internal/pkg/assets"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
)

// Page geometry in millimetres. A4 portrait with 15mm sides, 10mm top and a
// 20mm bottom margin, same as the markup renderer.
const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	marginSide   = 15.0
	marginTop    = 10.0
	marginBottom = 20.0
	contentWidth = pageWidth - 2*marginSide

	// PageBottom is the pagination threshold: nothing is drawn below it
	// except the page number line.
	PageBottom = pageHeight - marginBottom

	footerHeight = 34.0
	footerTop    = PageBottom - footerHeight
)

// Layout reports what was drawn. Tests use it to check pagination and block
// counts without parsing the PDF.
type Layout struct {
	Pages           int
	Sections        []SectionLayout
	SignatureBlocks int
	Callouts        int
	LogoFallback    bool
	// Overflows counts text lines placed below PageBottom. A correct layout
	// keeps it at zero.
	Overflows int
}

// SectionLayout is the position of one drawn section.
type SectionLayout struct {
	Kind      document.SectionType
	Title     string
	Page      int
	Y         float64
	Rows      int // data rows drawn, for parameters and table sections
	FirstPage int // page of the first data row
	LastPage  int // page of the last data row
}

// Renderer draws documents. It is safe for concurrent use; all drawing state
// lives in a per-call canvas.
type Renderer struct {
	assets   *assets.Loader
	branding document.Branding
	compress bool
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithAssets sets the loader for logos and QR marks. Without one the
// renderer draws the text mark and no QR code.
func WithAssets(l *assets.Loader) Option {
	return func(r *Renderer) { r.assets = l }
}

func WithBranding(b document.Branding) Option {
	return func(r *Renderer) { r.branding = b }
}

// WithCompression toggles stream compression. Uncompressed output keeps the
// drawn text searchable in the raw bytes.
func WithCompression(on bool) Option {
	return func(r *Renderer) { r.compress = on }
}

func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		compress: true,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws the document and returns the PDF bytes.
func (r *Renderer) Render(cfg document.Config, content document.Content) ([]byte, error) {
	buf, _, err := r.RenderLayout(cfg, content)
	return buf, err
}

// RenderLayout is Render that also returns the drawn layout.
func (r *Renderer) RenderLayout(cfg document.Config, content document.Content) ([]byte, Layout, error) {
	if err := document.Validate(content); err != nil {
		return nil, Layout{}, err
	}
	cfg = cfg.WithDefaults()

	c := r.newCanvas(cfg)
	c.drawHeader(cfg, content.Header)

	for i, sec := range content.Sections {
		if err := c.drawSection(sec); err != nil {
			return nil, Layout{}, fmt.Errorf("section %d (%q): %w", i, sec.SectionTitle(), err)
		}
	}

	c.drawFooter(cfg, content.Footer)
	if err := c.pdf.Error(); err != nil {
		return nil, Layout{}, fmt.Errorf("failed to draw document: %w", err)
	}

	var out bytes.Buffer
	if err := c.pdf.Output(&out); err != nil {
		return nil, Layout{}, fmt.Errorf("failed to serialize document: %w", err)
	}
	c.layout.Pages = c.pdf.PageNo()
	return out.Bytes(), c.layout, nil
}

func (r *Renderer) newCanvas(cfg document.Config) *canvas {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginSide, marginTop, marginSide)
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.SetCompression(r.compress)
	pdf.AliasNbPages("")
	registerFonts(pdf)
	pdf.SetCreationDate(r.now())

	company, logo := r.branding.Lookup(cfg.Company)
	pdf.SetTitle(cfg.Title, true)
	pdf.SetAuthor(company, true)
	pdf.SetSubject(cfg.Type, true)
	pdf.SetCreator("report-service-go", true)

	c := &canvas{
		pdf:      pdf,
		company:  company,
		logoPath: logo,
		assets:   r.assets,
		now:      r.now(),
		logger:   r.logger,
	}

	pdf.SetFooterFunc(c.drawPageNumber)
	c.addPage()
	return c
}

// loadLogo never fails the render; a missing or broken logo yields ok=false.
func (c *canvas) loadLogo() (assets.Image, bool) {
	if c.assets == nil {
		return assets.Image{}, false
	}
	img, err := c.assets.Logo(context.Background(), c.logoPath)
	if err != nil {
		c.logger.Warn("logo unavailable, drawing text mark",
			zap.String("path", c.logoPath),
			zap.Error(err),
		)
		return assets.Image{}, false
	}
	return img, true
}

func (c *canvas) loadQR(text string) (assets.Image, bool) {
	if c.assets == nil || text == "" {
		return assets.Image{}, false
	}
	img, err := c.assets.QRCode(context.Background(), text, 160)
	if err != nil {
		c.logger.Warn("qr code unavailable", zap.Error(err))
		return assets.Image{}, false
	}
	return img, true
}
