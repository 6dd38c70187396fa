package retrieve

import (
	"strings"

	"github.com/papercomputeco/recall/pkg/entry"
)

type intent struct {
	categories []entry.Category
	phrases    []string
}

// intents are matched as whole phrases against the normalized prompt.
var intents = []intent{
	{
		categories: []entry.Category{entry.CategoryPersonalInfo},
		phrases: []string{"where do i live", "where i live", "who am i", "my name", "where am i from",
			"how old", "birthday", "hometown", "where am i based"},
	},
	{
		categories: []entry.Category{entry.CategoryPreferences},
		phrases: []string{"do i like", "favorite", "favourite", "prefer", "recommend", "should i try",
			"what should i", "suggest"},
	},
	{
		categories: []entry.Category{entry.CategoryWork},
		phrases:    []string{"my job", "where do i work", "my work", "my career", "my role", "my company", "my boss", "colleague"},
	},
	{
		categories: []entry.Category{entry.CategoryGoals, entry.CategoryProjects},
		phrases:    []string{"my goal", "my goals", "my project", "my projects", "working on", "should i learn", "achieve", "plan"},
	},
	{
		categories: []entry.Category{entry.CategoryTechnical, entry.CategorySkills},
		phrases:    []string{"code", "coding", "programming", "language", "framework", "library", "stack", "editor", "deploy"},
	},
	{
		categories: []entry.Category{entry.CategoryRelationships},
		phrases: []string{"my wife", "my husband", "my partner", "my family", "my friend", "my kids",
			"my son", "my daughter", "my dog", "my cat", "my sister", "my brother", "my pet"},
	},
	{
		categories: []entry.Category{entry.CategoryHealth},
		phrases:    []string{"allergic", "allergy", "diet", "eat", "food", "health", "recipe", "dinner", "lunch", "meal"},
	},
}

// detectIntents returns the entry categories a prompt is asking about.
func detectIntents(normalizedPrompt string) map[entry.Category]bool {
	padded := " " + normalizedPrompt + " "
	out := make(map[entry.Category]bool)
	for _, in := range intents {
		for _, p := range in.phrases {
			if strings.Contains(padded, " "+p+" ") {
				for _, c := range in.categories {
					out[c] = true
				}
				break
			}
		}
	}
	return out
}
