package submit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUnknownFields(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    []string
	}{
		{
			name:    "pipe delimited bracket",
			message: "Additional questions found on the form: [Are you a veteran? | Do you require sponsorship?]",
			want:    []string{"Are you a veteran?", "Do you require sponsorship?"},
		},
		{
			name:    "bracket without pipes reconstructs by terminator",
			message: "Unresolved fields: [Veteran status? Disability status? Enter manually]",
			want:    []string{"Veteran status?", "Disability status?"},
		},
		{
			name:    "asterisk marks a required field label",
			message: "[Desired salary* Start date?]",
			want:    []string{"Desired salary*", "Start date?"},
		},
		{
			name:    "no bracket falls back to sentence scan",
			message: "Please provide your visa status. What is your current visa status?",
			want:    []string{"What is your current visa status?"},
		},
		{
			name:    "filler segments are dropped",
			message: "[Are you a veteran? | Enter manually | US | OK]",
			want:    []string{"Are you a veteran?"},
		},
		{
			name:    "no bracket with trailing filler",
			message: "What is your visa status? Enter manually",
			want:    []string{"What is your visa status?"},
		},
		{
			name:    "no questions anywhere",
			message: "Automation stopped at a captcha.",
			want:    nil,
		},
		{
			name:    "empty message",
			message: "",
			want:    nil,
		},
		{
			name:    "trailing run without terminator is kept",
			message: "[Are you a veteran? Current employer]",
			want:    []string{"Are you a veteran?", "Current employer"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ParseUnknownFields(tt.message))
		})
	}
}

func TestCleanQuestion(t *testing.T) {
	require.Equal(t, "Are you a veteran?", CleanQuestion("  Are you a veteran? | "))
	require.Equal(t, "", CleanQuestion("   "))
}
