package document

import (
	"strconv"
	"strings"
)

// DefaultRevisionNumber is used when the adapter input carries no revision.
const DefaultRevisionNumber = "01"

// Config identifies one report instance.
type Config struct {
	Title          string `json:"title"`
	Company        string `json:"company"`
	ReportNumber   string `json:"reportNumber"`
	DocumentNumber string `json:"documentNumber"`
	RevisionNumber string `json:"revisionNumber"`
	Department     string `json:"department"`
	Type           string `json:"type"`
}

// WithDefaults returns a copy of the config with absent fields defaulted.
func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.RevisionNumber) == "" {
		c.RevisionNumber = DefaultRevisionNumber
	}
	return c
}

// Header is the title block of the document.
type Header struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Date     string `json:"date"`
}

// Signatory is a person signing off the report.
type Signatory struct {
	Name string `json:"name"`
	Date string `json:"date,omitempty"`
}

// Footer holds the sign-off block. A nil Manager omits the manager signature box.
type Footer struct {
	Inspector    Signatory  `json:"inspector"`
	Manager      *Signatory `json:"manager,omitempty"`
	ReportNumber string     `json:"reportNumber"`
}

// Content is the renderable payload. Sections are rendered top to bottom in slice order.
type Content struct {
	Header   Header   `json:"header"`
	Sections Sections `json:"sections"`
	Footer   Footer   `json:"footer"`
}

// Sections is an ordered list of sections with a tagged-union JSON encoding.
type Sections []Section

// SectionType is the wire tag of a section.
type SectionType string

const (
	SectionForm       SectionType = "form"
	SectionParameters SectionType = "parameters"
	SectionTable      SectionType = "table"
	SectionText       SectionType = "text"
)

// Section is a closed sum type: only the four section kinds of this package implement it.
type Section interface {
	Kind() SectionType
	SectionTitle() string
	Accept(v SectionVisitor) error
	section()
}

// SectionVisitor must handle every section kind. Adding a kind adds a method here,
// so every renderer stops compiling until it handles the new kind.
type SectionVisitor interface {
	VisitForm(s *FormSection) error
	VisitParameters(s *ParametersSection) error
	VisitTable(s *TableSection) error
	VisitText(s *TextSection) error
}

// FormSection is a two-column grid of label/value pairs.
type FormSection struct {
	Title  string
	Fields []Field
}

// Field is one form entry. Key is formatted with FormatLabel for display.
type Field struct {
	Key   string
	Value Value
}

// ParametersSection is a test-parameter table with an optional remarks callout.
type ParametersSection struct {
	Title      string
	Parameters []ParameterRow
	Remarks    string
}

// ParameterRow is a single tested parameter.
type ParameterRow struct {
	TestName    string   `json:"testName"`
	Standard    string   `json:"standard"`
	Tolerance   string   `json:"tolerance"`
	Result      string   `json:"result"`
	HankResults []string `json:"hankResults,omitempty"`
}

// TableSection is generic tabular content. Both Columns and Rows nil means no content.
type TableSection struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// TextSection is flowed paragraph text; line breaks in Text are kept.
type TextSection struct {
	Title string
	Text  string
}

func (s *FormSection) Kind() SectionType       { return SectionForm }
func (s *ParametersSection) Kind() SectionType { return SectionParameters }
func (s *TableSection) Kind() SectionType      { return SectionTable }
func (s *TextSection) Kind() SectionType       { return SectionText }

func (s *FormSection) SectionTitle() string       { return s.Title }
func (s *ParametersSection) SectionTitle() string { return s.Title }
func (s *TableSection) SectionTitle() string      { return s.Title }
func (s *TextSection) SectionTitle() string       { return s.Title }

func (s *FormSection) Accept(v SectionVisitor) error       { return v.VisitForm(s) }
func (s *ParametersSection) Accept(v SectionVisitor) error { return v.VisitParameters(s) }
func (s *TableSection) Accept(v SectionVisitor) error      { return v.VisitTable(s) }
func (s *TextSection) Accept(v SectionVisitor) error       { return v.VisitText(s) }

func (*FormSection) section()       {}
func (*ParametersSection) section() {}
func (*TableSection) section()      {}
func (*TextSection) section()       {}

// HasHankResults reports whether any row carries a hankResults list.
func (s *ParametersSection) HasHankResults() bool {
	for _, row := range s.Parameters {
		if row.HankResults != nil {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the table section has no content at all.
func (s *TableSection) IsEmpty() bool {
	return s.Columns == nil && s.Rows == nil
}

// Placeholder is displayed for unset values.
const Placeholder = "-"

// HankDisplay joins sub-readings for display; an empty list renders the placeholder.
func (r ParameterRow) HankDisplay() string {
	var parts []string
	for _, h := range r.HankResults {
		if strings.TrimSpace(h) != "" {
			parts = append(parts, h)
		}
	}
	if len(parts) == 0 {
		return Placeholder
	}
	return strings.Join(parts, ", ")
}

// Display returns s, or the placeholder when s is blank.
func Display(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

type valueKind int

const (
	kindNull valueKind = iota
	kindString
	kindNumber
	kindBool
	kindComplex
)

// Value is a form field value: string, number or null. Anything else decoded
// from JSON (objects, arrays) is kept as complex and displays as the placeholder.
type Value struct {
	kind valueKind
	str  string
	num  float64
	b    bool
}

// String creates a text value.
func String(s string) Value { return Value{kind: kindString, str: s} }

// Number creates a numeric value.
func Number(f float64) Value { return Value{kind: kindNumber, num: f} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: kindBool, b: b} }

// Null creates an unset value.
func Null() Value { return Value{} }

// IsSet reports whether the value displays as something other than the placeholder.
func (v Value) IsSet() bool {
	return v.Display() != Placeholder
}

// Display returns the text shown in both renderers.
func (v Value) Display() string {
	switch v.kind {
	case kindString:
		return Display(v.str)
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindBool:
		return strconv.FormatBool(v.b)
	default:
		return Placeholder
	}
}

// TimestampLayout formats the generation timestamp printed in the footer.
const TimestampLayout = "2006-01-02 15:04"
