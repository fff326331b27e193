package drawing

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"report-service-go/internal/domain/document"
	"report-service-go/internal/pkg/assets"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
)

const (
	lineHeight = 5.0
	cellPad    = 1.5
	fontFamily = "Go"

	logoBoxWidth  = 30.0
	logoBoxHeight = 15.0
	qrSize        = 14.0
	signatureBoxW = 55.0
)

type rgb struct{ r, g, b int }

var (
	colorText       = rgb{33, 37, 41}
	colorMuted      = rgb{108, 117, 125}
	colorRule       = rgb{173, 181, 189}
	colorTitleBand  = rgb{233, 236, 239}
	colorTableHead  = rgb{52, 58, 64}
	colorCalloutBg  = rgb{255, 248, 220}
	colorCalloutBar = rgb{245, 158, 11}
)

// canvas is the per-render drawing state: the fpdf document and the
// vertical cursor y.
type canvas struct {
	pdf *fpdf.Fpdf
	y   float64

	company  string
	logoPath string
	assets   *assets.Loader
	now      time.Time
	logger   *zap.Logger

	images int
	layout Layout
}

func (c *canvas) addPage() {
	c.pdf.AddPage()
	c.y = marginTop
}

// ensure starts a new page when h more millimetres would cross the page
// bottom. It reports whether a page was added.
func (c *canvas) ensure(h float64) bool {
	if c.y+h <= PageBottom {
		return false
	}
	c.addPage()
	return true
}

func (c *canvas) font(style string, size float64, col rgb) {
	c.pdf.SetFont(fontFamily, style, size)
	c.pdf.SetTextColor(col.r, col.g, col.b)
}

func (c *canvas) fill(col rgb) { c.pdf.SetFillColor(col.r, col.g, col.b) }
func (c *canvas) draw(col rgb) { c.pdf.SetDrawColor(col.r, col.g, col.b) }

// text writes one line inside a box of width w starting at (x, y).
func (c *canvas) text(x, y, w float64, s, align string) {
	if y+lineHeight > PageBottom+0.01 {
		c.layout.Overflows++
	}
	c.pdf.SetXY(x, y)
	c.pdf.CellFormat(w, lineHeight, printable(s), "", 0, align, false, 0, "")
}

// wrap splits s into lines no wider than w in the current font. Explicit
// line breaks are kept.
func (c *canvas) wrap(s string, w float64) []string {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(para) == "" {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, c.pdf.SplitText(printable(para), w)...)
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

func (c *canvas) image(img assets.Image, x, y, w, h float64) bool {
	c.images++
	name := fmt.Sprintf("img%d", c.images)
	opts := fpdf.ImageOptions{ImageType: "PNG"}

	c.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.PNG))
	if c.pdf.Err() {
		c.logger.Warn("image rejected by canvas", zap.Error(c.pdf.Error()))
		c.pdf.ClearError()
		return false
	}
	c.pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	return true
}

func (c *canvas) drawHeader(cfg document.Config, h document.Header) {
	top := c.y

	drewLogo := false
	if img, ok := c.loadLogo(); ok {
		w, hh := fitBox(img.Width, img.Height, logoBoxWidth, logoBoxHeight)
		drewLogo = c.image(img, marginSide, top, w, hh)
	}
	if !drewLogo {
		c.layout.LogoFallback = true
		c.draw(colorRule)
		c.pdf.Rect(marginSide, top, logoBoxWidth, logoBoxHeight, "D")
		c.font("B", 11, colorTableHead)
		c.text(marginSide, top+logoBoxHeight/2-lineHeight/2, logoBoxWidth, textMark(cfg.Company, c.company), "C")
	}

	// Centre column leaves room for the logo on the left and metadata on the right.
	centreX := marginSide + logoBoxWidth + 5
	centreW := contentWidth - 2*(logoBoxWidth+5) - 10
	c.font("B", 14, colorText)
	c.text(centreX, top+1, centreW, c.company, "C")
	c.font("B", 12, colorText)
	c.text(centreX, top+8, centreW, h.Title, "C")
	if h.Subtitle != "" {
		c.font("", 10, colorMuted)
		c.text(centreX, top+13, centreW, h.Subtitle, "C")
	}

	metaW := logoBoxWidth + 15
	metaX := pageWidth - marginSide - metaW
	c.font("", 8, colorText)
	for i, line := range []string{
		"Doc No: " + document.Display(cfg.DocumentNumber),
		"Report No: " + document.Display(cfg.ReportNumber),
		"Rev: " + document.Display(cfg.RevisionNumber),
		"Date: " + document.Display(h.Date),
	} {
		c.text(metaX, top+float64(i)*4, metaW, line, "R")
	}

	c.y = top + 20
	c.draw(colorText)
	c.pdf.SetLineWidth(0.4)
	c.pdf.Line(marginSide, c.y, pageWidth-marginSide, c.y)
	c.pdf.SetLineWidth(0.2)
	c.y += 5
}

func (c *canvas) drawFooter(cfg document.Config, f document.Footer) {
	if c.y > footerTop {
		c.addPage()
	}
	top := footerTop

	c.draw(colorRule)
	c.pdf.Line(marginSide, top, pageWidth-marginSide, top)
	boxTop := top + 3
	boxH := footerHeight - 5

	c.signatureBox(marginSide, boxTop, boxH, "Inspected by", f.Inspector)

	reportNumber := f.ReportNumber
	if reportNumber == "" {
		reportNumber = cfg.ReportNumber
	}
	centreX := marginSide + signatureBoxW + 5
	centreW := contentWidth - 2*(signatureBoxW+5)
	c.font("B", 9, colorText)
	c.text(centreX, boxTop, centreW, "Report No: "+document.Display(reportNumber), "C")
	c.font("", 8, colorMuted)
	c.text(centreX, boxTop+5, centreW, "Generated: "+c.now.Format(document.TimestampLayout), "C")
	if img, ok := c.loadQR(reportNumber); ok {
		c.image(img, centreX+(centreW-qrSize)/2, boxTop+11, qrSize, qrSize)
	}

	if f.Manager != nil {
		c.signatureBox(pageWidth-marginSide-signatureBoxW, boxTop, boxH, "Approved by", *f.Manager)
	}
}

// signatureBox is a rectangle with a role line, a signature rule, the name
// and the date.
func (c *canvas) signatureBox(x, y, h float64, role string, s document.Signatory) {
	c.layout.SignatureBlocks++

	c.draw(colorRule)
	c.pdf.Rect(x, y, signatureBoxW, h, "D")

	inner := signatureBoxW - 2*cellPad
	c.font("B", 8, colorMuted)
	c.text(x+cellPad, y+1, inner, role, "L")

	c.draw(colorText)
	c.pdf.Line(x+cellPad, y+h-12, x+signatureBoxW-cellPad, y+h-12)

	c.font("B", 9, colorText)
	c.text(x+cellPad, y+h-11, inner, document.Display(s.Name), "L")
	c.font("", 8, colorMuted)
	c.text(x+cellPad, y+h-6, inner, "Date: "+document.Display(s.Date), "L")
}

func (c *canvas) drawPageNumber() {
	c.font("", 8, colorMuted)
	c.pdf.SetXY(marginSide, pageHeight-marginBottom/2-lineHeight/2)
	c.pdf.CellFormat(contentWidth, lineHeight,
		fmt.Sprintf("Page %d of {nb}", c.pdf.PageNo()), "", 0, "C", false, 0, "")
}

// textMark is drawn in place of a missing logo.
func textMark(code, company string) string {
	if code = strings.TrimSpace(code); code != "" {
		return strings.ToUpper(code)
	}
	return company
}

// fitBox scales a w x h pixel image into the box, keeping its aspect ratio.
func fitBox(w, h int, boxW, boxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return boxW, boxH
	}
	ratio := float64(w) / float64(h)
	if boxH*ratio <= boxW {
		return boxH * ratio, boxH
	}
	return boxW, boxW / ratio
}
