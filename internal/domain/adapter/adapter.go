// Package adapter maps business records onto the generic document model.
// The mapping functions are pure; the Generate helpers hand the result to a
// pdf.Service.
package adapter

import (
	"math"
	"strings"

	"report-service-go/internal/domain/document"
)

// Person is someone signing a record.
type Person struct {
	Name string `json:"name"`
	Date string `json:"date,omitempty"`
}

func (p Person) signatory() document.Signatory {
	return document.Signatory{Name: p.Name, Date: p.Date}
}

func (p *Person) optionalSignatory() *document.Signatory {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return nil
	}
	s := p.signatory()
	return &s
}

// Letterhead is the identification shared by every record type.
type Letterhead struct {
	Company        string `json:"company"`
	ReportNumber   string `json:"reportNumber"`
	DocumentNumber string `json:"documentNumber,omitempty"`
	RevisionNumber string `json:"revisionNumber,omitempty"`
	Department     string `json:"department,omitempty"`
}

func (l Letterhead) config(title, docType, defaultDocNumber string) document.Config {
	docNumber := l.DocumentNumber
	if strings.TrimSpace(docNumber) == "" {
		docNumber = defaultDocNumber
	}
	return document.Config{
		Title:          title,
		Company:        l.Company,
		ReportNumber:   l.ReportNumber,
		DocumentNumber: docNumber,
		RevisionNumber: l.RevisionNumber,
		Department:     l.Department,
		Type:           docType,
	}.WithDefaults()
}

func text(s string) document.Value {
	if strings.TrimSpace(s) == "" {
		return document.Null()
	}
	return document.String(s)
}

func number(f *float64) document.Value {
	if f == nil {
		return document.Null()
	}
	return document.Number(*f)
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
