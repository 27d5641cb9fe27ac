package submit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"applyflow-engine/internal/backend"
	"applyflow-engine/internal/config"
)

var testRules = []config.PromptRule{
	{Category: "veteran", Any: []string{"veteran"}, Type: "select", Options: []string{"I am a veteran", "I am not a veteran", "Prefer not to say"}},
	{Category: "disability", Any: []string{"disability", "disabled"}, Type: "select", Options: []string{"Yes", "No", "Prefer not to say"}},
	{Category: "degree", Any: []string{"degree", "education"}, Type: "select", Options: []string{"High School", "Bachelor's", "Master's", "PhD"}},
}

func TestPromptsFromStructured(t *testing.T) {
	got := PromptsFromStructured([]backend.RequiredField{
		{Name: "salary", Label: "Desired salary", Type: "text", CurrentValue: "90000"},
		{Question: "Work authorization?", Options: []string{"Citizen", "Visa"}},
		{Name: "notice_period"},
	})

	require.Len(t, got, 3)

	require.Equal(t, "salary", got[0].Name)
	require.Equal(t, "Desired salary", got[0].Question)
	require.Equal(t, "90000", got[0].Current)

	// options without a declared type imply a select
	require.Equal(t, "select", got[1].Type)
	require.Equal(t, []string{"Citizen", "Visa"}, got[1].Options)

	// name is the question of last resort
	require.Equal(t, "notice_period", got[2].Question)
	require.Equal(t, "text", got[2].Type)

	for _, p := range got {
		require.True(t, p.Required)
	}
}

func TestPromptsFromQuestions(t *testing.T) {
	questions := []string{"Are you a veteran?", "Disability status?", "Current employer?"}

	got := PromptsFromQuestions(questions, nil, testRules)
	require.Len(t, got, 3)

	require.Equal(t, "select", got[0].Type)
	require.Contains(t, got[0].Options, "I am a veteran")

	require.Equal(t, "select", got[1].Type)
	require.Equal(t, []string{"Yes", "No", "Prefer not to say"}, got[1].Options)

	// no rule matches: free text
	require.Equal(t, "text", got[2].Type)
	require.Empty(t, got[2].Options)
}

func TestPromptsFromQuestionsBackendOptionsWin(t *testing.T) {
	options := map[string][]string{
		"Are you a veteran?": {"Yes", "No"},
	}
	got := PromptsFromQuestions([]string{"Are you a veteran?"}, options, testRules)
	require.Len(t, got, 1)
	require.Equal(t, "select", got[0].Type)
	require.Equal(t, []string{"Yes", "No"}, got[0].Options)
}

func TestPromptFieldKey(t *testing.T) {
	require.Equal(t, "salary", PromptField{Name: "salary", Question: "Desired salary?"}.Key())
	require.Equal(t, "Desired salary?", PromptField{Question: "Desired salary?"}.Key())
}
