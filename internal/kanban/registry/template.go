package registry

import (
	"fmt"
	"os"
	"strings"

	"ga03-kanban/internal/kanban/domain"

	"gopkg.in/yaml.v3"
)

// TemplateColumn is one column of a board template file
type TemplateColumn struct {
	ID                 string   `yaml:"id"`
	Name               string   `yaml:"name"`
	Color              string   `yaml:"color"`
	Type               string   `yaml:"type"`
	GmailLabelID       string   `yaml:"gmail_label_id"`
	GmailLabelName     string   `yaml:"gmail_label_name"`
	AddLabelsOnMove    []string `yaml:"add_labels_on_move"`
	RemoveLabelsOnMove []string `yaml:"remove_labels_on_move"`
}

// Template is the set of columns seeded into new boards
type Template struct {
	Columns []TemplateColumn `yaml:"columns"`
}

// LoadTemplate reads and validates a YAML board template
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read column template: %w", err)
	}
	return ParseTemplate(data)
}

// ParseTemplate decodes a template and checks it would produce a valid board
func ParseTemplate(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse column template: %w", err)
	}
	if len(t.Columns) == 0 {
		return nil, domain.Validationf("column template has no columns")
	}

	check := New()
	for _, c := range t.Build("") {
		if check.Get(c.ID) != nil {
			return nil, domain.Validationf("column template repeats id %q", c.ID)
		}
		if _, err := check.Put(c); err != nil {
			return nil, fmt.Errorf("invalid column template: %w", err)
		}
	}
	if check.Fallback("") == nil {
		return nil, domain.Validationf("column template needs an %s column", domain.ColumnTypeInbox)
	}
	return &t, nil
}

// Build returns the default columns of userID's board. Orders follow file
// order and ids default to the lowercased type or a slug of the name.
func (t *Template) Build(userID string) []*domain.Column {
	cols := make([]*domain.Column, 0, len(t.Columns))
	for i, tc := range t.Columns {
		typ := domain.ColumnType(strings.ToUpper(strings.TrimSpace(tc.Type)))
		if typ == "" {
			typ = domain.ColumnTypeCustom
		}
		id := strings.TrimSpace(tc.ID)
		if id == "" {
			if typ.IsStandard() {
				id = strings.ToLower(string(typ))
			} else {
				id = slug(tc.Name)
			}
		}
		cols = append(cols, &domain.Column{
			ID:                 id,
			UserID:             userID,
			Name:               tc.Name,
			Color:              tc.Color,
			Type:               typ,
			Order:              i,
			IsDefault:          true,
			GmailLabelID:       tc.GmailLabelID,
			GmailLabelName:     tc.GmailLabelName,
			AddLabelsOnMove:    append(domain.StringArray{}, tc.AddLabelsOnMove...),
			RemoveLabelsOnMove: append(domain.StringArray{}, tc.RemoveLabelsOnMove...),
		})
	}
	return cols
}

func slug(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('_')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
