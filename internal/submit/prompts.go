package submit

import (
	"strings"

	"applyflow-engine/internal/backend"
	"applyflow-engine/internal/config"
)

// PromptField is one question awaiting a user answer. Structured fields
// carry a Name; questions recovered from free text only have their text.
type PromptField struct {
	Name     string   `json:"name,omitempty"`
	Question string   `json:"question"`
	Type     string   `json:"type"` // text|select|checkbox|radio|textarea
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
	Current  string   `json:"current_value,omitempty"`
	Help     string   `json:"help_text,omitempty"`
}

// Key is the identifier the answer is posted under.
func (f PromptField) Key() string {
	if f.Name != "" {
		return f.Name
	}
	return f.Question
}

// PromptsFromStructured converts backend field descriptors into prompts.
func PromptsFromStructured(fields []backend.RequiredField) []PromptField {
	out := make([]PromptField, 0, len(fields))
	for _, f := range fields {
		p := PromptField{
			Name:     f.Name,
			Question: f.Question,
			Type:     f.Type,
			Options:  f.Options,
			Required: true,
			Current:  f.CurrentValue,
			Help:     f.HelpText,
		}
		if p.Question == "" {
			p.Question = f.Label
		}
		if p.Question == "" {
			p.Question = f.Name
		}
		if p.Type == "" {
			p.Type = "text"
		}
		if len(p.Options) > 0 && p.Type == "text" {
			p.Type = "select"
		}
		out = append(out, p)
	}
	return out
}

// PromptsFromQuestions turns recovered question strings into prompts.
// Backend-supplied option sets (keyed by cleaned question text) win; the
// configured category rules are the fallback; free text is the default.
func PromptsFromQuestions(questions []string, options map[string][]string, rules []config.PromptRule) []PromptField {
	out := make([]PromptField, 0, len(questions))
	for _, q := range questions {
		clean := CleanQuestion(q)
		if clean == "" {
			continue
		}
		p := PromptField{Question: clean, Type: "text", Required: true}

		if opts := lookupOptions(options, clean); len(opts) > 0 {
			p.Type = "select"
			p.Options = opts
		} else if rule, ok := matchRule(rules, clean); ok {
			p.Type = rule.Type
			if p.Type == "" {
				p.Type = "text"
			}
			p.Options = rule.Options
		}
		out = append(out, p)
	}
	return out
}

func lookupOptions(options map[string][]string, q string) []string {
	if len(options) == 0 {
		return nil
	}
	if opts, ok := options[q]; ok {
		return opts
	}
	// tolerate uncleaned keys from older backends
	for k, opts := range options {
		if CleanQuestion(k) == q {
			return opts
		}
	}
	return nil
}

// matchRule returns the first rule whose terms appear in the question.
func matchRule(rules []config.PromptRule, q string) (config.PromptRule, bool) {
	text := strings.ToLower(q)
	for _, r := range rules {
		for _, needle := range r.Any {
			if strings.Contains(text, strings.ToLower(needle)) {
				return r, true
			}
		}
	}
	return config.PromptRule{}, false
}
