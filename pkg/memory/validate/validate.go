// Package validate classifies extracted candidates for storage eligibility.
//
// Validation is a pure function of the candidate. The status is decided by
// the first violated policy rule; advisory issues are reported alongside but
// never change the status.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/memory"
)

const (
	MinTokens = 3

	RejectBelow    = 0.3
	UncertainBelow = 0.6
	ReviewBelow    = 0.85

	// MaxContentLength is the advisory limit on content length in characters.
	MaxContentLength = 500
)

const (
	IssueTooShort      = "too short"
	IssueLowConfidence = "confidence too low"
	IssueTooLong       = "too long"
	IssueUncertainty   = "contains uncertainty marker"
	IssueSensitive     = "may contain sensitive data"
)

var (
	pronouns     = []string{"he", "she", "they", "him", "her", "them", "his", "hers", "their", "theirs"}
	hedges       = []string{"maybe", "perhaps", "might", "probably", "i think", "i guess", "not sure"}
	emailPattern = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().-]{8,}\d`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)
)

// Validator implements memory.Validator.
type Validator struct{}

// New creates a Validator.
func New() *Validator {
	return &Validator{}
}

// Validate classifies a single candidate.
func (v *Validator) Validate(c entry.Candidate) entry.ValidationResult {
	res := entry.ValidationResult{
		Status:     classify(c.Confidence),
		Confidence: c.Confidence,
	}

	switch {
	case len(entry.Tokens(c.Content)) < MinTokens:
		res.Status = entry.StatusRejected
		res.Issues = append(res.Issues, IssueTooShort)
	case c.Confidence < RejectBelow:
		res.Issues = append(res.Issues, IssueLowConfidence)
	}

	res.Issues = append(res.Issues, advisories(c.Content)...)

	if p := danglingPronoun(c.Content); p != "" {
		res.Suggestions = append(res.Suggestions,
			fmt.Sprintf("review manually: %q has no antecedent", p))
	}

	return res
}

// ValidateBatch validates each candidate; result i belongs to candidate i.
func (v *Validator) ValidateBatch(cs []entry.Candidate) []entry.ValidationResult {
	out := make([]entry.ValidationResult, len(cs))
	for i, c := range cs {
		out[i] = v.Validate(c)
	}
	return out
}

func classify(confidence float64) entry.Status {
	switch {
	case confidence < RejectBelow:
		return entry.StatusRejected
	case confidence < UncertainBelow:
		return entry.StatusUncertain
	case confidence < ReviewBelow:
		return entry.StatusNeedsReview
	default:
		return entry.StatusValid
	}
}

func advisories(content string) []string {
	var issues []string
	if utf8.RuneCountInString(content) > MaxContentLength {
		issues = append(issues, IssueTooLong)
	}

	padded := " " + entry.Normalize(content) + " "
	for _, h := range hedges {
		if strings.Contains(padded, " "+h+" ") {
			issues = append(issues, IssueUncertainty)
			break
		}
	}

	if emailPattern.MatchString(content) || phonePattern.MatchString(content) || cardPattern.MatchString(content) {
		issues = append(issues, IssueSensitive)
	}
	return issues
}

// danglingPronoun returns the first third-person pronoun in content when the
// content names nobody the pronoun could refer to.
func danglingPronoun(content string) string {
	words := strings.FieldsFunc(content, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	var found string
	for i, w := range words {
		lw := strings.ToLower(w)
		for _, p := range pronouns {
			if lw == p && found == "" {
				found = lw
			}
		}
		if i > 0 && lw != "i" && !strings.HasPrefix(lw, "i'") && startsUpper(w) {
			return ""
		}
	}
	return found
}

func startsUpper(w string) bool {
	r, _ := utf8.DecodeRuneInString(w)
	return unicode.IsUpper(r)
}

var _ memory.Validator = (*Validator)(nil)
