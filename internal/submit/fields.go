package submit

import (
	"regexp"
	"strings"
)

// questionRe pulls sentence-like runs ending in "?" out of free text.
var questionRe = regexp.MustCompile(`[^.!]+\?`)

var pipeCleanRe = regexp.MustCompile(`\s*\|\s*`)

// ParseUnknownFields recovers employer question strings from a free-text
// automation message. The pipe-delimited bracket body is the only reliable
// encoding; everything else is best-effort reconstruction of output the
// backend used to emit.
func ParseUnknownFields(message string) []string {
	body, found := bracketBody(message)

	var fields []string
	switch {
	case found && strings.Contains(body, " | "):
		for _, seg := range strings.Split(body, " | ") {
			seg = strings.TrimSpace(seg)
			if len(seg) > 2 {
				fields = append(fields, seg)
			}
		}
	case found:
		fields = reconstructQuestions(body)
	default:
		for _, q := range questionRe.FindAllString(message, -1) {
			if q = strings.TrimSpace(q); q != "" {
				fields = append(fields, q)
			}
		}
	}

	return filterQuestions(fields)
}

// bracketBody returns the contents of the first [...] segment.
func bracketBody(s string) (string, bool) {
	open := strings.IndexByte(s, '[')
	if open < 0 {
		return "", false
	}
	rest := s[open+1:]
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// reconstructQuestions walks whitespace tokens and flushes an accumulated
// question whenever a token ends in "?" or "*". This is the legacy
// space-separated format; "Enter manually" is UI filler leaked into the
// message, not a question.
func reconstructQuestions(body string) []string {
	var out []string
	var current string
	for _, tok := range strings.Fields(body) {
		if tok == "Enter" || tok == "manually" {
			continue
		}
		if current != "" {
			current += " "
		}
		current += tok
		if strings.HasSuffix(tok, "?") || strings.HasSuffix(tok, "*") {
			out = append(out, current)
			current = ""
		}
	}
	if current != "" && current != "Enter manually" {
		out = append(out, current)
	}
	return out
}

func filterQuestions(in []string) []string {
	var out []string
	for _, q := range in {
		if q == "" || q == "Enter manually" || q == "US" || len(q) < 3 {
			continue
		}
		out = append(out, q)
	}
	return out
}

// CleanQuestion normalizes a recovered question for use as an answer key
// and for option-set lookup.
func CleanQuestion(q string) string {
	return strings.TrimSpace(pipeCleanRe.ReplaceAllString(q, ""))
}
