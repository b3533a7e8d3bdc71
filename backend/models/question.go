package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Option is a single answer choice. The catalog stores choices either as
// a plain string or as an object with text and an optional image URL, so
// both JSON forms are accepted on input.
type Option struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

func (o *Option) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &o.Text)
	}
	type plain Option
	return json.Unmarshal(data, (*plain)(o))
}

// OptionMap maps an option label ("A".."D") to its choice. It is stored
// as a single JSON column.
type OptionMap map[string]Option

func (m OptionMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *OptionMap) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return fmt.Errorf("cannot scan %T into OptionMap", value)
}

func (OptionMap) GormDataType() string { return "json" }

func (OptionMap) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "JSONB"
	}
	return "JSON"
}

// Has reports whether the map contains the label, ignoring case.
func (m OptionMap) Has(label string) bool {
	_, ok := m[strings.ToUpper(label)]
	return ok
}

// Labels returns the option labels in alphabetical order.
func (m OptionMap) Labels() []string {
	labels := make([]string, 0, len(m))
	for l := range m {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Question is one multiple-choice item in the question bank. Questions
// are never mutated by the session workflow; sessions only reference
// them through SessionQuestion links.
type Question struct {
	gorm.Model
	SubjectID        uint `gorm:"not null;index"`
	Subject          Subject
	CompetencyID     *uint
	Competency       *Competency
	Context          string    `gorm:"type:text"`
	Prompt           string    `gorm:"type:text;not null"`
	Options          OptionMap `gorm:"not null"`
	CorrectOption    string    `gorm:"size:1;not null"`
	Feedback         string    `gorm:"type:text"`
	Explanation      string    `gorm:"type:text"`
	WrongOptionNotes datatypes.JSON // label -> why that choice is wrong
	Strategies       string         `gorm:"type:text"`
	CommonErrors     string         `gorm:"type:text"`
	Difficulty       string         `gorm:"size:10;default:medium"`
	EstimatedSeconds int            `gorm:"default:60"`
	Active           bool           `gorm:"default:true"`
	Tags             datatypes.JSON
}

// Validate checks catalog invariants before a question is stored.
func (q *Question) Validate() error {
	if len(q.Options) < 2 {
		return fmt.Errorf("question needs at least 2 options, got %d", len(q.Options))
	}
	if !q.Options.Has(q.CorrectOption) {
		return fmt.Errorf("correct option %q is not among the option labels", q.CorrectOption)
	}
	return nil
}
