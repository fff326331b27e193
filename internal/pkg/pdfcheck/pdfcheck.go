// Package pdfcheck inspects rendered buffers before they are handed out.
package pdfcheck

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// A4 in PDF points.
const (
	A4Width  = 595.28
	A4Height = 841.89

	// Chromium rounds paper sizes given in inches; 2pt absorbs that.
	sizeTolerance = 2.0
)

var (
	ErrNotPDF   = errors.New("output is not a PDF document")
	ErrNoPages  = errors.New("output has no pages")
	ErrPageSize = errors.New("output page is not A4 portrait")
)

// Info describes a parsed document.
type Info struct {
	Pages int
	Sizes []PageSize
}

// PageSize is one page's media box in points.
type PageSize struct {
	Width  float64
	Height float64
}

// IsA4 reports whether the page is A4 portrait.
func (s PageSize) IsA4() bool {
	return math.Abs(s.Width-A4Width) <= sizeTolerance && math.Abs(s.Height-A4Height) <= sizeTolerance
}

// Inspect parses buf and returns its page count and page sizes.
func Inspect(buf []byte) (Info, error) {
	if !bytes.HasPrefix(buf, []byte("%PDF-")) {
		return Info{}, ErrNotPDF
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.PageCount(bytes.NewReader(buf), conf)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	if pages == 0 {
		return Info{}, ErrNoPages
	}

	dims, err := api.PageDims(bytes.NewReader(buf), conf)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}

	info := Info{Pages: pages, Sizes: make([]PageSize, 0, len(dims))}
	for _, d := range dims {
		info.Sizes = append(info.Sizes, PageSize{Width: d.Width, Height: d.Height})
	}
	return info, nil
}

// Verify is Inspect plus the A4 portrait check on every page.
func Verify(buf []byte) (Info, error) {
	info, err := Inspect(buf)
	if err != nil {
		return info, err
	}
	for i, s := range info.Sizes {
		if !s.IsA4() {
			return info, fmt.Errorf("%w: page %d is %.1fx%.1fpt", ErrPageSize, i+1, s.Width, s.Height)
		}
	}
	return info, nil
}

// IsA4 reports whether every page is A4 portrait.
func (i Info) IsA4() bool {
	if len(i.Sizes) == 0 {
		return false
	}
	for _, s := range i.Sizes {
		if !s.IsA4() {
			return false
		}
	}
	return true
}
