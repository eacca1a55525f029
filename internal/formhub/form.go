package formhub

import (
	"errors"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Form is a Formhub form descriptor (form.json).
type Form struct {
	IDString string     `json:"id_string"`
	Name     string     `json:"name"`
	Title    string     `json:"title"`
	Children []Question `json:"children"`

	// URL is the form.json location the form was loaded from.
	URL string `json:"-"`
	// Raw is the descriptor exactly as served.
	Raw []byte `json:"-"`
}

// Question is one node of a form tree. Groups and repeats have children.
type Question struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Label    json.RawMessage `json:"label,omitempty"`
	Children []Question      `json:"children,omitempty"`
}

// Field is a leaf question addressed the way it appears in submitted records.
type Field struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// ParseForm decodes a form descriptor.
func ParseForm(raw []byte) (*Form, error) {
	var form Form
	if err := json.Unmarshal(raw, &form); err != nil {
		return nil, err
	}
	if form.IDString == "" {
		return nil, errors.New("form descriptor has no id_string")
	}
	if form.Title == "" {
		form.Title = form.Name
	}
	form.Raw = raw
	return &form, nil
}

// Fields flattens the question tree. Questions nested in groups are named
// with their group path, e.g. "household/members".
func (f *Form) Fields() []Field {
	var fields []Field
	var walk func(prefix string, qs []Question)
	walk = func(prefix string, qs []Question) {
		for _, q := range qs {
			name := q.Name
			if prefix != "" {
				name = prefix + "/" + q.Name
			}
			if len(q.Children) > 0 && (q.Type == "group" || q.Type == "repeat") {
				walk(name, q.Children)
				continue
			}
			fields = append(fields, Field{Name: name, Label: labelText(q.Label), Type: q.Type})
		}
	}
	walk("", f.Children)
	return fields
}

// labelText returns a plain label. Multilingual labels prefer English, then
// the first language alphabetically.
func labelText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var byLang map[string]string
	if err := json.Unmarshal(raw, &byLang); err != nil || len(byLang) == 0 {
		return strings.Trim(string(raw), `"`)
	}
	if en, ok := byLang["English"]; ok {
		return en
	}
	langs := make([]string, 0, len(byLang))
	for lang := range byLang {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return byLang[langs[0]]
}
