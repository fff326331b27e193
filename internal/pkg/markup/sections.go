package markup

import (
	"report-service-go/internal/domain/document"
)

// sectionView is what the template sees of one section. Only the fields of
// its Kind are set.
type sectionView struct {
	Kind  document.SectionType
	Title string

	Fields [][]fieldView // form rows, two fields each

	Columns []string
	Rows    [][]string
	Remarks string
	Empty   bool

	Text string
}

type fieldView struct {
	Label string
	Value string
}

// builder turns sections into views in document order.
type builder struct {
	sections []sectionView
}

func (b *builder) VisitForm(s *document.FormSection) error {
	v := sectionView{Kind: s.Kind(), Title: s.Title}
	for i := 0; i < len(s.Fields); i += 2 {
		var row []fieldView
		for _, f := range s.Fields[i:min(i+2, len(s.Fields))] {
			row = append(row, fieldView{Label: document.FormatLabel(f.Key), Value: f.Value.Display()})
		}
		v.Fields = append(v.Fields, row)
	}
	b.sections = append(b.sections, v)
	return nil
}

func (b *builder) VisitParameters(s *document.ParametersSection) error {
	v := sectionView{
		Kind:    s.Kind(),
		Title:   s.Title,
		Columns: []string{"Parameter", "Standard", "Tolerance", "Result"},
		Rows:    make([][]string, 0, len(s.Parameters)),
		Remarks: s.Remarks,
	}
	withHank := s.HasHankResults()
	if withHank {
		v.Columns = append(v.Columns, "Hank Results")
	}
	for _, p := range s.Parameters {
		row := []string{
			document.Display(p.TestName),
			document.Display(p.Standard),
			document.Display(p.Tolerance),
			document.Display(p.Result),
		}
		if withHank {
			row = append(row, p.HankDisplay())
		}
		v.Rows = append(v.Rows, row)
	}
	b.sections = append(b.sections, v)
	return nil
}

func (b *builder) VisitTable(s *document.TableSection) error {
	v := sectionView{Kind: s.Kind(), Title: s.Title}
	if s.IsEmpty() || len(s.Columns) == 0 {
		v.Empty = true
		b.sections = append(b.sections, v)
		return nil
	}

	v.Columns = s.Columns
	for _, r := range s.Rows {
		row := make([]string, len(s.Columns))
		for j := range row {
			if j < len(r) {
				row[j] = document.Display(r[j])
			} else {
				row[j] = document.Placeholder
			}
		}
		v.Rows = append(v.Rows, row)
	}
	b.sections = append(b.sections, v)
	return nil
}

func (b *builder) VisitText(s *document.TextSection) error {
	b.sections = append(b.sections, sectionView{
		Kind:  s.Kind(),
		Title: s.Title,
		Text:  s.Text,
	})
	return nil
}
