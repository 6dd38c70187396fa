package entry

import (
	"fmt"
	"strings"
)

// Type classifies what kind of knowledge an entry holds.
type Type uint8

const (
	TypeNote Type = iota
	TypeFact
	TypePreference
	TypePersonalInfo
	TypeGoal
	TypeProject
	TypeRelationship
	TypeSkill
	TypeConstraint
	TypeText
)

var typeNames = [...]string{
	TypeNote:         "note",
	TypeFact:         "fact",
	TypePreference:   "preference",
	TypePersonalInfo: "personal_info",
	TypeGoal:         "goal",
	TypeProject:      "project",
	TypeRelationship: "relationship",
	TypeSkill:        "skill",
	TypeConstraint:   "constraint",
	TypeText:         "text",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return typeNames[TypeNote]
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseType maps a persisted type identifier to a Type.
// The empty string maps to TypeNote.
func ParseType(s string) (Type, error) {
	key := canonical(s)
	if key == "" {
		return TypeNote, nil
	}
	for i, name := range typeNames {
		if name == key {
			return Type(i), nil
		}
	}
	return TypeNote, fmt.Errorf("unknown entry type %q", s)
}

// Category groups entries by subject area. Retrieval uses it for intent matching.
type Category uint8

const (
	CategoryOther Category = iota
	CategoryPersonalInfo
	CategoryPreferences
	CategoryWork
	CategoryGoals
	CategoryProjects
	CategoryRelationships
	CategorySkills
	CategoryTechnical
	CategoryHealth
)

var categoryNames = [...]string{
	CategoryOther:         "other",
	CategoryPersonalInfo:  "personal_info",
	CategoryPreferences:   "preferences",
	CategoryWork:          "work",
	CategoryGoals:         "goals",
	CategoryProjects:      "projects",
	CategoryRelationships: "relationships",
	CategorySkills:        "skills",
	CategoryTechnical:     "technical",
	CategoryHealth:        "health",
}

// legacyCategories maps identifiers written by older schemas.
var legacyCategories = map[string]Category{
	"personal":     CategoryPersonalInfo,
	"professional": CategoryWork,
	"preference":   CategoryPreferences,
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return categoryNames[CategoryOther]
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory maps a persisted category identifier to a Category.
func ParseCategory(s string) (Category, error) {
	key := canonical(s)
	if key == "" {
		return CategoryOther, nil
	}
	for i, name := range categoryNames {
		if name == key {
			return Category(i), nil
		}
	}
	if c, ok := legacyCategories[key]; ok {
		return c, nil
	}
	return CategoryOther, fmt.Errorf("unknown entry category %q", s)
}

// Source records where an entry came from.
type Source uint8

const (
	SourceManual Source = iota
	SourceUserPrompt
	SourceAIResponse
	SourceImported
)

var sourceNames = [...]string{
	SourceManual:     "manual",
	SourceUserPrompt: "user_prompt",
	SourceAIResponse: "ai_response",
	SourceImported:   "imported",
}

var legacySources = map[string]Source{
	"conversation": SourceUserPrompt,
	"extracted":    SourceUserPrompt,
	"api":          SourceManual,
}

func (s Source) String() string {
	if int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return sourceNames[SourceManual]
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(b []byte) error {
	parsed, err := ParseSource(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSource maps a persisted source identifier to a Source.
func ParseSource(str string) (Source, error) {
	key := canonical(str)
	if key == "" {
		return SourceManual, nil
	}
	for i, name := range sourceNames {
		if name == key {
			return Source(i), nil
		}
	}
	if s, ok := legacySources[key]; ok {
		return s, nil
	}
	return SourceManual, fmt.Errorf("unknown entry source %q", str)
}

// Status is the outcome of validating a candidate.
type Status uint8

const (
	StatusRejected Status = iota
	StatusUncertain
	StatusNeedsReview
	StatusValid
)

var statusNames = [...]string{
	StatusRejected:    "rejected",
	StatusUncertain:   "uncertain",
	StatusNeedsReview: "needs_review",
	StatusValid:       "valid",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return statusNames[StatusRejected]
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	key := canonical(string(b))
	for i, name := range statusNames {
		if name == key {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown validation status %q", string(b))
}

// Storable reports whether entries with this status may be persisted.
func (s Status) Storable() bool {
	return s == StatusValid || s == StatusNeedsReview
}

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// canonical lowercases and converts hyphenated identifiers to their
// underscore form.
func canonical(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}
