package drawing

import (
	"report-service-go/internal/domain/document"
)

const (
	sectionTitleHeight = 7.0
	formLabelWidth     = 35.0
	formColumnGap      = 4.0
	tableHeaderHeight  = 7.0
)

var (
	parameterColumns = []string{"Parameter", "Standard", "Tolerance", "Result"}
	parameterWidths  = []float64{60, 45, 35, 40}

	hankColumns = []string{"Parameter", "Standard", "Tolerance", "Result", "Hank Results"}
	hankWidths  = []float64{48, 35, 30, 27, 40}
)

func (c *canvas) drawSection(sec document.Section) error {
	// Title plus one body line must fit, so a title never ends a page alone.
	c.ensure(sectionTitleHeight + 2 + lineHeight + 2)

	c.layout.Sections = append(c.layout.Sections, SectionLayout{
		Kind:  sec.Kind(),
		Title: sec.SectionTitle(),
		Page:  c.pdf.PageNo(),
		Y:     c.y,
	})

	c.fill(colorTitleBand)
	c.pdf.Rect(marginSide, c.y, contentWidth, sectionTitleHeight, "F")
	c.draw(colorTableHead)
	c.pdf.Line(marginSide, c.y+sectionTitleHeight, pageWidth-marginSide, c.y+sectionTitleHeight)
	c.font("B", 11, colorText)
	c.text(marginSide+cellPad, c.y+1, contentWidth-2*cellPad, sec.SectionTitle(), "L")
	c.y += sectionTitleHeight + 2

	if err := sec.Accept(c); err != nil {
		return err
	}
	c.y += 4
	return nil
}

func (c *canvas) current() *SectionLayout {
	return &c.layout.Sections[len(c.layout.Sections)-1]
}

// VisitForm lays fields out two per row.
func (c *canvas) VisitForm(s *document.FormSection) error {
	colW := (contentWidth - formColumnGap) / 2
	valueW := colW - formLabelWidth

	for i := 0; i < len(s.Fields); i += 2 {
		pair := s.Fields[i:min(i+2, len(s.Fields))]

		c.font("", 9, colorText)
		values := make([][]string, len(pair))
		rowLines := 1
		for j, f := range pair {
			values[j] = c.wrap(f.Value.Display(), valueW-cellPad)
			rowLines = max(rowLines, len(values[j]))
		}

		c.flowRow(rowLines, 1, 0, nil, func(from, n int, _ float64) {
			for j, f := range pair {
				x := marginSide + float64(j)*(colW+formColumnGap)
				if from == 0 {
					c.font("B", 9, colorMuted)
					c.text(x, c.y, formLabelWidth, document.FormatLabel(f.Key)+":", "L")
				}
				c.font("", 9, colorText)
				for k, line := range window(values[j], from, n) {
					c.text(x+formLabelWidth, c.y+float64(k)*lineHeight, valueW, line, "L")
				}
			}
		})
	}
	return nil
}

// VisitParameters draws the parameter table, breaking pages between rows and
// repeating the header row on each new page.
func (c *canvas) VisitParameters(s *document.ParametersSection) error {
	columns, widths := parameterColumns, parameterWidths
	withHank := s.HasHankResults()
	if withHank {
		columns, widths = hankColumns, hankWidths
	}

	rows := make([][]string, len(s.Parameters))
	for i, p := range s.Parameters {
		row := []string{
			document.Display(p.TestName),
			document.Display(p.Standard),
			document.Display(p.Tolerance),
			document.Display(p.Result),
		}
		if withHank {
			row = append(row, p.HankDisplay())
		}
		rows[i] = row
	}

	c.drawTable(columns, widths, rows)

	if s.Remarks != "" {
		c.drawCallout("Remarks", s.Remarks)
	}
	return nil
}

// VisitTable draws generic tabular content. A table without content leaves
// only the section title.
func (c *canvas) VisitTable(s *document.TableSection) error {
	if s.IsEmpty() || len(s.Columns) == 0 {
		return nil
	}

	widths := make([]float64, len(s.Columns))
	for i := range widths {
		widths[i] = contentWidth / float64(len(s.Columns))
	}

	rows := make([][]string, len(s.Rows))
	for i, r := range s.Rows {
		row := make([]string, len(s.Columns))
		for j := range row {
			if j < len(r) {
				row[j] = document.Display(r[j])
			} else {
				row[j] = document.Placeholder
			}
		}
		rows[i] = row
	}

	c.drawTable(s.Columns, widths, rows)
	return nil
}

// VisitText flows the text line by line, breaking pages between lines.
func (c *canvas) VisitText(s *document.TextSection) error {
	c.font("", 10, colorText)
	for _, line := range c.wrap(s.Text, contentWidth) {
		c.ensure(lineHeight)
		c.text(marginSide, c.y, contentWidth, line, "L")
		c.y += lineHeight
	}
	return nil
}

func (c *canvas) drawTable(columns []string, widths []float64, rows [][]string) {
	sec := c.current()

	c.ensure(tableHeaderHeight + lineHeight + 2*cellPad)
	c.tableHeader(columns, widths)
	repeatHeader := func() { c.tableHeader(columns, widths) }

	for _, row := range rows {
		c.font("", 9, colorText)
		cells := make([][]string, len(row))
		lines := 1
		for i, v := range row {
			cells[i] = c.wrap(v, widths[i]-2*cellPad)
			lines = max(lines, len(cells[i]))
		}

		first := true
		c.flowRow(lines, 2*cellPad, tableHeaderHeight, repeatHeader, func(from, n int, h float64) {
			page := c.pdf.PageNo()
			if first {
				if sec.Rows == 0 {
					sec.FirstPage = page
				}
				sec.Rows++
				first = false
			}
			sec.LastPage = page

			x := marginSide
			c.draw(colorRule)
			c.font("", 9, colorText)
			for i, cell := range cells {
				c.pdf.Rect(x, c.y, widths[i], h, "D")
				for k, line := range window(cell, from, n) {
					c.text(x+cellPad, c.y+cellPad+float64(k)*lineHeight, widths[i]-2*cellPad, line, "L")
				}
				x += widths[i]
			}
		})
	}
}

// flowRow places a row of text lines plus vertical padding. A row that fits
// on a page moves whole to the next one; a taller row is drawn in slices
// across pages. reserve is what onBreak takes at the top of a new page.
// draw renders lines [from, from+n) at c.y in a box of height h.
func (c *canvas) flowRow(lines int, pad, reserve float64, onBreak func(), draw func(from, n int, h float64)) {
	breakPage := func() {
		c.addPage()
		if onBreak != nil {
			onBreak()
		}
	}

	full := float64(lines)*lineHeight + pad
	if full <= PageBottom-marginTop-reserve && c.y+full > PageBottom {
		breakPage()
	}

	for from := 0; from < lines; {
		fit := int((PageBottom-c.y-pad)/lineHeight + 1e-9)
		if fit < 1 {
			breakPage()
			continue
		}
		n := min(fit, lines-from)
		h := float64(n)*lineHeight + pad
		draw(from, n, h)
		c.y += h
		from += n
	}
}

// window returns lines[from:from+n], clipped to what lines holds.
func window(lines []string, from, n int) []string {
	if from >= len(lines) {
		return nil
	}
	return lines[from:min(from+n, len(lines))]
}

func (c *canvas) tableHeader(columns []string, widths []float64) {
	c.fill(colorTableHead)
	c.draw(colorTableHead)
	c.font("B", 9, rgb{255, 255, 255})

	x := marginSide
	for i, col := range columns {
		c.pdf.Rect(x, c.y, widths[i], tableHeaderHeight, "FD")
		c.text(x+cellPad, c.y+1, widths[i]-2*cellPad, col, "L")
		x += widths[i]
	}
	c.y += tableHeaderHeight
}

// drawCallout is a shaded block with an accent bar on the left, used for
// remarks under a parameter table. Long remarks continue on the next page.
func (c *canvas) drawCallout(label, body string) {
	c.layout.Callouts++
	const bar = 1.5
	innerW := contentWidth - bar - 2*cellPad
	x := marginSide + bar + cellPad

	c.font("", 9, colorText)
	lines := c.wrap(body, innerW)

	c.y += 2
	c.ensure(2*lineHeight + 2*cellPad)

	first := true
	for first || len(lines) > 0 {
		head := 0
		if first {
			head = 1
		}
		fit := int((PageBottom-c.y-2*cellPad)/lineHeight) - head
		if fit < 1 {
			c.addPage()
			continue
		}
		chunk := lines[:min(fit, len(lines))]
		lines = lines[len(chunk):]
		h := float64(len(chunk)+head)*lineHeight + 2*cellPad

		c.fill(colorCalloutBg)
		c.pdf.Rect(marginSide, c.y, contentWidth, h, "F")
		c.fill(colorCalloutBar)
		c.pdf.Rect(marginSide, c.y, bar, h, "F")

		if first {
			c.font("B", 9, colorText)
			c.text(x, c.y+cellPad, innerW, label+":", "L")
		}
		c.font("", 9, colorText)
		for i, line := range chunk {
			c.text(x, c.y+cellPad+float64(i+head)*lineHeight, innerW, line, "L")
		}
		c.y += h
		first = false
	}
}
