package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type wireSection struct {
	Type    SectionType     `json:"type"`
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content,omitempty"`
}

type wireParameters struct {
	Parameters *[]ParameterRow `json:"parameters"`
	Remarks    *string         `json:"remarks,omitempty"`
}

type wireTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// UnmarshalJSON decodes the {type, title, content} tagged union. A content shape
// that does not match the declared type is rejected with ErrMalformedContent.
func (s *Sections) UnmarshalJSON(data []byte) error {
	var raw []wireSection
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: sections: %v", ErrMalformedContent, err)
	}
	out := make(Sections, 0, len(raw))
	for i, ws := range raw {
		sec, err := decodeSection(ws)
		if err != nil {
			return fmt.Errorf("section %d (%q): %w", i+1, ws.Title, err)
		}
		out = append(out, sec)
	}
	*s = out
	return nil
}

// MarshalJSON encodes sections in the same tagged-union shape.
func (s Sections) MarshalJSON() ([]byte, error) {
	out := make([]wireSection, 0, len(s))
	for i, sec := range s {
		if sec == nil {
			return nil, fmt.Errorf("%w: section %d is nil", ErrMalformedContent, i+1)
		}
		content, err := encodeContent(sec)
		if err != nil {
			return nil, err
		}
		out = append(out, wireSection{Type: sec.Kind(), Title: sec.SectionTitle(), Content: content})
	}
	return json.Marshal(out)
}

func decodeSection(ws wireSection) (Section, error) {
	absent := len(bytes.TrimSpace(ws.Content)) == 0 || bytes.Equal(bytes.TrimSpace(ws.Content), []byte("null"))

	switch ws.Type {
	case SectionForm:
		if absent {
			return nil, fmt.Errorf("%w: form content is required", ErrMalformedContent)
		}
		fields, err := decodeFields(ws.Content)
		if err != nil {
			return nil, err
		}
		return &FormSection{Title: ws.Title, Fields: fields}, nil

	case SectionParameters:
		if absent {
			return nil, fmt.Errorf("%w: parameters content is required", ErrMalformedContent)
		}
		var wp wireParameters
		if err := json.Unmarshal(ws.Content, &wp); err != nil {
			return nil, fmt.Errorf("%w: parameters content: %v", ErrMalformedContent, err)
		}
		if wp.Parameters == nil {
			return nil, fmt.Errorf("%w: content.parameters is not a list", ErrMalformedContent)
		}
		sec := &ParametersSection{Title: ws.Title, Parameters: *wp.Parameters}
		if wp.Remarks != nil {
			sec.Remarks = *wp.Remarks
		}
		return sec, nil

	case SectionTable:
		sec := &TableSection{Title: ws.Title}
		if absent {
			return sec, nil
		}
		var wt wireTable
		if err := json.Unmarshal(ws.Content, &wt); err != nil {
			return nil, fmt.Errorf("%w: table content: %v", ErrMalformedContent, err)
		}
		sec.Columns, sec.Rows = wt.Columns, wt.Rows
		return sec, nil

	case SectionText:
		if absent {
			return nil, fmt.Errorf("%w: text content is required", ErrMalformedContent)
		}
		var text string
		if err := json.Unmarshal(ws.Content, &text); err != nil {
			return nil, fmt.Errorf("%w: text content must be a string", ErrMalformedContent)
		}
		return &TextSection{Title: ws.Title, Text: text}, nil

	default:
		return nil, fmt.Errorf("%w: unknown section type %q", ErrMalformedContent, ws.Type)
	}
}

// decodeFields keeps the key order of the JSON object, since it is the grid order.
func decodeFields(data json.RawMessage) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: form content: %v", ErrMalformedContent, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: form content must be an object", ErrMalformedContent)
	}

	fields := []Field{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: form content: %v", ErrMalformedContent, err)
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: form field %q: %v", ErrMalformedContent, key, err)
		}
		fields = append(fields, Field{Key: key, Value: decodeValue(raw)})
	}
	return fields, nil
}

func decodeValue(raw json.RawMessage) Value {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Null()
	}
	switch trimmed[0] {
	case 'n':
		return Null()
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Value{kind: kindComplex}
		}
		return String(s)
	case 't', 'f':
		return Bool(trimmed[0] == 't')
	case '{', '[':
		return Value{kind: kindComplex}
	default:
		f, err := strconv.ParseFloat(string(trimmed), 64)
		if err != nil {
			return Value{kind: kindComplex}
		}
		return Number(f)
	}
}

func encodeContent(sec Section) (json.RawMessage, error) {
	switch s := sec.(type) {
	case *FormSection:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, f := range s.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Key)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			val, err := f.Value.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case *ParametersSection:
		params := s.Parameters
		if params == nil {
			params = []ParameterRow{}
		}
		wp := wireParameters{Parameters: &params}
		if s.Remarks != "" {
			wp.Remarks = &s.Remarks
		}
		return json.Marshal(wp)
	case *TableSection:
		if s.IsEmpty() {
			return nil, nil
		}
		return json.Marshal(wireTable{Columns: s.Columns, Rows: s.Rows})
	case *TextSection:
		return json.Marshal(s.Text)
	default:
		return nil, fmt.Errorf("%w: unsupported section %T", ErrMalformedContent, sec)
	}
}

// MarshalJSON encodes the value as a JSON primitive; complex values encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindString:
		return json.Marshal(v.str)
	case kindNumber:
		return json.Marshal(v.num)
	case kindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}
