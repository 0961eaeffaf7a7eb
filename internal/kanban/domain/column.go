package domain

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// StringArray is a custom type to handle JSON array in GORM
type StringArray []string

// Value implements driver.Valuer
func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	if len(bytes) == 0 {
		*a = StringArray{}
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// Contains reports whether id is in the array
func (a StringArray) Contains(id string) bool {
	for _, v := range a {
		if v == id {
			return true
		}
	}
	return false
}

// ColumnType tags what a column means to the board
type ColumnType string

const (
	ColumnTypeInbox      ColumnType = "INBOX"
	ColumnTypeTodo       ColumnType = "TODO"
	ColumnTypeInProgress ColumnType = "IN_PROGRESS"
	ColumnTypeDone       ColumnType = "DONE"
	ColumnTypeSnoozed    ColumnType = "SNOOZED"
	ColumnTypeCustom     ColumnType = "CUSTOM"
)

// Valid reports whether t is one of the known column types
func (t ColumnType) Valid() bool {
	switch t {
	case ColumnTypeInbox, ColumnTypeTodo, ColumnTypeInProgress, ColumnTypeDone, ColumnTypeSnoozed, ColumnTypeCustom:
		return true
	}
	return false
}

// IsStandard reports whether at most one column of this type may exist
func (t ColumnType) IsStandard() bool {
	return t.Valid() && t != ColumnTypeCustom
}

// Column represents a user-defined Kanban board column configuration
type Column struct {
	ID                 string      `json:"id" gorm:"primaryKey" db:"id"`
	UserID             string      `json:"user_id" gorm:"primaryKey" db:"user_id"`
	Name               string      `json:"name" gorm:"not null" db:"name"`
	Color              string      `json:"color,omitempty" db:"color"`
	Type               ColumnType  `json:"type" gorm:"not null;default:CUSTOM" db:"type"`
	Order              int         `json:"order" gorm:"column:display_order;not null;default:0" db:"display_order"`
	IsDefault          bool        `json:"is_default" gorm:"not null;default:false" db:"is_default"`
	GmailLabelID       string      `json:"gmail_label_id,omitempty" gorm:"default:''" db:"gmail_label_id"`
	GmailLabelName     string      `json:"gmail_label_name,omitempty" gorm:"default:''" db:"gmail_label_name"`
	AddLabelsOnMove    StringArray `json:"add_labels_on_move" gorm:"type:text" db:"add_labels_on_move"`
	RemoveLabelsOnMove StringArray `json:"remove_labels_on_move" gorm:"type:text" db:"remove_labels_on_move"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at" db:"updated_at"`
}

// TableName specifies the table name for GORM
func (Column) TableName() string {
	return "kanban_columns"
}

// Clone returns a deep copy so callers can never alias registry state
func (c *Column) Clone() *Column {
	if c == nil {
		return nil
	}
	out := *c
	out.AddLabelsOnMove = append(StringArray{}, c.AddLabelsOnMove...)
	out.RemoveLabelsOnMove = append(StringArray{}, c.RemoveLabelsOnMove...)
	return &out
}

// ColumnPatch carries the fields of an UpdateColumn call; nil means unchanged
type ColumnPatch struct {
	Name               *string   `json:"name,omitempty"`
	Color              *string   `json:"color,omitempty"`
	Order              *int      `json:"order,omitempty"`
	GmailLabelID       *string   `json:"gmail_label_id,omitempty"`
	GmailLabelName     *string   `json:"gmail_label_name,omitempty"`
	AddLabelsOnMove    *[]string `json:"add_labels_on_move,omitempty"`
	RemoveLabelsOnMove *[]string `json:"remove_labels_on_move,omitempty"`
}

// Apply returns a copy of c with the patch applied
func (p ColumnPatch) Apply(c *Column) *Column {
	out := c.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Color != nil {
		out.Color = *p.Color
	}
	if p.Order != nil {
		out.Order = *p.Order
	}
	if p.GmailLabelID != nil {
		out.GmailLabelID = *p.GmailLabelID
	}
	if p.GmailLabelName != nil {
		out.GmailLabelName = *p.GmailLabelName
	}
	if p.AddLabelsOnMove != nil {
		out.AddLabelsOnMove = append(StringArray{}, (*p.AddLabelsOnMove)...)
	}
	if p.RemoveLabelsOnMove != nil {
		out.RemoveLabelsOnMove = append(StringArray{}, (*p.RemoveLabelsOnMove)...)
	}
	return out
}

// DefaultColumns returns the columns every board starts with
func DefaultColumns(userID string) []*Column {
	return []*Column{
		{
			ID:           "inbox",
			Name:         "Inbox",
			Type:         ColumnTypeInbox,
			Order:        0,
			IsDefault:    true,
			GmailLabelID: "INBOX",
			UserID:       userID,
		},
		{
			ID:                 "todo",
			Name:               "To Do",
			Type:               ColumnTypeTodo,
			Order:              1,
			IsDefault:          true,
			GmailLabelID:       "IMPORTANT",
			RemoveLabelsOnMove: StringArray{"INBOX"},
			UserID:             userID,
		},
		{
			ID:                 "in_progress",
			Name:               "In Progress",
			Type:               ColumnTypeInProgress,
			Order:              2,
			IsDefault:          true,
			RemoveLabelsOnMove: StringArray{"INBOX"},
			UserID:             userID,
		},
		{
			ID:                 "done",
			Name:               "Done",
			Type:               ColumnTypeDone,
			Order:              3,
			IsDefault:          true,
			GmailLabelID:       "STARRED",
			RemoveLabelsOnMove: StringArray{"INBOX"},
			UserID:             userID,
		},
		{
			ID:                 "snoozed",
			Name:               "Snoozed",
			Type:               ColumnTypeSnoozed,
			Order:              4,
			IsDefault:          true,
			RemoveLabelsOnMove: StringArray{"INBOX"},
			UserID:             userID,
		},
	}
}
