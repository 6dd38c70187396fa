package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/papercomputeco/recall/pkg/entry"
)

// Rule is one independent extraction pattern.
type Rule struct {
	Name     string
	Type     entry.Type
	Category entry.Category

	// Base is the confidence assigned before message-level adjustments.
	Base float64

	// Pattern captures the fact value in its last submatch group.
	Pattern *regexp.Regexp

	// Cuts are extra clause boundaries applied to the captured value.
	Cuts []string

	// Accept optionally rejects implausible values.
	Accept func(value string) bool

	// Render produces first-person candidate content from the match groups.
	Render func(groups []string, value string) string
}

const valueClass = `([^.!?;,\n]+)`

var defaultCuts = []string{" and ", " but ", " because ", " so ", " which ", " who ", " though "}

// maxValueWords bounds captured values; longer captures are run-on clauses.
const maxValueWords = 8

// DefaultRules returns the built-in rule set in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "name",
			Type:     entry.TypePersonalInfo,
			Category: entry.CategoryPersonalInfo,
			Base:     0.9,
			// Case-sensitive: a name must be capitalized.
			Pattern: regexp.MustCompile(`\b(?:[Mm]y name is|[Cc]all me|I'm|I am)\s+([A-Z][\p{L}'-]+)`),
			Accept:  func(v string) bool { return !notNames[strings.ToLower(v)] },
			Render:  func(_ []string, v string) string { return "My name is " + v },
		},
		{
			Name:     "employer",
			Type:     entry.TypeFact,
			Category: entry.CategoryWork,
			Base:     0.85,
			Pattern:  regexp.MustCompile(`(?i)\bI (?:currently )?work (?:at|for)\s+` + valueClass),
			Cuts:     []string{" as ", " in ", " on "},
			Render:   func(_ []string, v string) string { return "I work at " + v },
		},
		{
			Name:     "profession",
			Type:     entry.TypeFact,
			Category: entry.CategoryWork,
			Base:     0.8,
			Pattern: regexp.MustCompile(`(?i)\b(?:I (?:currently )?work as|I'm working as|I am working as|my job is|my role is|` +
				`I work (?:at|for) [^.!?;,\n]+? as|I'm an?|I am an?)\s+(?:an?\s+)?` + valueClass),
			Cuts:   []string{" at ", " for ", " in "},
			Accept: looksLikeRole,
			Render: func(_ []string, v string) string { return "I work as " + article(v) + " " + v },
		},
		{
			Name:     "location",
			Type:     entry.TypePersonalInfo,
			Category: entry.CategoryPersonalInfo,
			Base:     0.85,
			Pattern: regexp.MustCompile(`(?i)\b(?:I live in|I'm living in|I am living in|I'm from|I am from|` +
				`I'm based in|I am based in|I moved to|I'm located in|I am located in)\s+` + valueClass),
			Render: func(_ []string, v string) string { return "I live in " + v },
		},
		{
			Name:     "preference",
			Type:     entry.TypePreference,
			Category: entry.CategoryPreferences,
			Base:     0.75,
			Pattern: regexp.MustCompile(`(?i)(?:\bI|\band)\s+(?:really\s+|absolutely\s+)?` +
				`(love|like|enjoy|prefer|hate|dislike|don't like|do not like|can't stand)\s+` + valueClass),
			Render: func(g []string, v string) string { return "I " + strings.ToLower(g[1]) + " " + v },
		},
		{
			Name:     "favorite",
			Type:     entry.TypePreference,
			Category: entry.CategoryPreferences,
			Base:     0.8,
			Pattern:  regexp.MustCompile(`(?i)\bmy fav(?:ou)?rite ([a-z ]{2,30}?) (?:is|are)\s+` + valueClass),
			Render:   func(g []string, v string) string { return "My favorite " + strings.ToLower(g[1]) + " is " + v },
		},
		{
			Name:     "possession",
			Type:     entry.TypeFact,
			Category: entry.CategoryRelationships,
			Base:     0.7,
			Pattern:  regexp.MustCompile(`(?i)\bI (?:have|own|got) (a|an|two|three|four|\d+)\s+` + valueClass),
			Render:   func(g []string, v string) string { return "I have " + strings.ToLower(g[1]) + " " + v },
		},
		{
			Name:     "relationship",
			Type:     entry.TypeRelationship,
			Category: entry.CategoryRelationships,
			Base:     0.75,
			Pattern: regexp.MustCompile(`(?i)\bmy (wife|husband|partner|girlfriend|boyfriend|son|daughter|brother|sister|` +
				`mother|father|mom|dad|friend|boss|dog|cat)(?:'s name)? is (?:named |called )?` + valueClass),
			Render: func(g []string, v string) string { return "My " + strings.ToLower(g[1]) + " is " + v },
		},
		{
			Name:     "allergy",
			Type:     entry.TypeConstraint,
			Category: entry.CategoryHealth,
			Base:     0.85,
			Pattern:  regexp.MustCompile(`(?i)\bI(?:'m| am) allergic to\s+` + valueClass),
			Render:   func(_ []string, v string) string { return "I am allergic to " + v },
		},
		{
			Name:     "diet",
			Type:     entry.TypeConstraint,
			Category: entry.CategoryHealth,
			Base:     0.85,
			Pattern: regexp.MustCompile(`(?i)\bI(?:'m| am) (?:a )?(vegetarian|vegan|pescatarian|gluten[- ]free|` +
				`lactose intolerant|diabetic|celiac|keto)\b`),
			Render: func(_ []string, v string) string { return "I am " + strings.ToLower(v) },
		},
		{
			Name:     "dietary_restriction",
			Type:     entry.TypeConstraint,
			Category: entry.CategoryHealth,
			Base:     0.8,
			Pattern:  regexp.MustCompile(`(?i)\bI (?:can't|cannot|can not|don't|do not) (?:eat|drink|have)\s+` + valueClass),
			Render:   func(_ []string, v string) string { return "I can't eat " + v },
		},
		{
			Name:     "goal",
			Type:     entry.TypeGoal,
			Category: entry.CategoryGoals,
			Base:     0.65,
			Pattern: regexp.MustCompile(`(?i)\b(?:I want to|I'd like to|I would like to|I'm trying to|I am trying to|` +
				`my goal is to|I hope to|I'm planning to|I am planning to|I plan to)\s+` + valueClass),
			Render: func(_ []string, v string) string { return "I want to " + v },
		},
		{
			Name:     "project",
			Type:     entry.TypeProject,
			Category: entry.CategoryProjects,
			Base:     0.65,
			Pattern: regexp.MustCompile(`(?i)\b(?:I'm working on|I am working on|I'm building|I am building|` +
				`I'm developing|I am developing|currently building)\s+` + valueClass),
			Render: func(_ []string, v string) string { return "I am working on " + v },
		},
		{
			Name:     "technology",
			Type:     entry.TypeSkill,
			Category: entry.CategoryTechnical,
			Base:     0.7,
			Pattern: regexp.MustCompile(`(?i)\b(?:I (?:mostly |mainly |usually )?(?:use|code in|program in|develop in|write)|` +
				`my (?:stack|editor|language of choice|os) is)\s+` + valueClass),
			Accept: mentionsTechnology,
			Render: func(_ []string, v string) string { return "I use " + v },
		},
	}
}

var notNames = map[string]bool{
	"not": true, "sorry": true, "sure": true, "just": true, "here": true, "back": true,
	"fine": true, "good": true, "okay": true, "ok": true, "glad": true, "happy": true,
	"curious": true, "new": true, "currently": true, "also": true, "still": true,
	"trying": true, "working": true, "looking": true, "allergic": true, "from": true,
}

var roleWords = map[string]bool{
	"engineer": true, "developer": true, "programmer": true, "designer": true, "doctor": true,
	"nurse": true, "teacher": true, "student": true, "lawyer": true, "chef": true,
	"scientist": true, "writer": true, "artist": true, "manager": true, "consultant": true,
	"analyst": true, "accountant": true, "architect": true, "researcher": true, "professor": true,
	"founder": true, "cto": true, "ceo": true, "pm": true, "sre": true, "dentist": true,
	"pharmacist": true, "electrician": true, "plumber": true, "mechanic": true, "pilot": true,
	"photographer": true, "journalist": true, "librarian": true, "therapist": true, "veterinarian": true,
	"technician": true, "physician": true, "musician": true, "assistant": true, "agent": true,
	"intern": true, "surgeon": true, "clerk": true, "cook": true, "barista": true,
}

// notRoles are words with occupational suffixes that describe something else.
var notRoles = map[string]bool{
	"beginner": true, "member": true, "user": true, "customer": true, "gamer": true,
	"believer": true, "lover": true, "follower": true, "owner": true, "mother": true,
	"father": true, "brother": true, "sister": true, "daughter": true, "vegetarian": true,
	"other": true, "former": true, "newcomer": true, "foreigner": true, "neighbor": true,
}

var roleSuffixes = []string{"er", "or", "ist"}

// looksLikeRole accepts values whose head noun is a known occupation or
// carries an occupational suffix.
func looksLikeRole(v string) bool {
	words := strings.Fields(strings.ToLower(v))
	if len(words) == 0 || len(words) > 4 {
		return false
	}
	head := strings.Trim(words[len(words)-1], "'\"")
	if roleWords[head] {
		return true
	}
	if notRoles[head] {
		return false
	}
	if len(head) < 5 {
		return false
	}
	for _, s := range roleSuffixes {
		if strings.HasSuffix(head, s) {
			return true
		}
	}
	return false
}

var techWords = map[string]bool{
	"go": true, "golang": true, "python": true, "rust": true, "java": true, "javascript": true,
	"typescript": true, "ruby": true, "kotlin": true, "swift": true, "c": true, "c++": true,
	"react": true, "vue": true, "svelte": true, "django": true, "rails": true, "node": true,
	"docker": true, "kubernetes": true, "postgres": true, "postgresql": true, "mysql": true,
	"sqlite": true, "linux": true, "macos": true, "windows": true, "vim": true, "neovim": true,
	"emacs": true, "vscode": true, "terraform": true, "aws": true, "gcp": true, "azure": true,
	"ollama": true, "elixir": true, "haskell": true, "scala": true, "zig": true, "php": true,
}

func mentionsTechnology(v string) bool {
	for _, w := range strings.FieldsFunc(strings.ToLower(v), func(r rune) bool {
		return unicode.IsSpace(r) || r == '/' || r == ','
	}) {
		if techWords[strings.Trim(w, ".'\"")] {
			return true
		}
	}
	return false
}

func article(v string) string {
	if v == "" {
		return "a"
	}
	switch unicode.ToLower(rune(v[0])) {
	case 'a', 'e', 'i', 'o', 'u':
		return "an"
	}
	return "a"
}
