package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	reJSONFence = regexp.MustCompile("(?is)```json\\s*(.*?)```")
	reAnyFence  = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*\\s*(.*?)```")
)

// ParseReply locates the JSON object in a free-form reply and turns it into a Candidate.
// Spans are tried in order: a ```json fence, any fence, the first balanced {...}.
// The cleaned document is returned alongside for auditing.
func ParseReply(reply string) (Candidate, []byte, error) {
	doc, ok := locateObject(reply)
	if !ok {
		return Candidate{}, nil, &ParseError{Reply: reply, Err: ErrNoJSON}
	}

	SanitizeCandidate(doc)
	cleaned, err := json.Marshal(doc)
	if err != nil {
		return Candidate{}, nil, &ParseError{Reply: reply, Err: fmt.Errorf("encode cleaned reply: %w", err)}
	}
	if err := ValidateCandidate(cleaned); err != nil {
		return Candidate{}, cleaned, &ParseError{Reply: reply, Err: err}
	}

	var c Candidate
	if err := json.Unmarshal(cleaned, &c); err != nil {
		return Candidate{}, cleaned, &ParseError{Reply: reply, Err: fmt.Errorf("decode candidate: %w", err)}
	}
	return c, cleaned, nil
}

func locateObject(reply string) (map[string]any, bool) {
	var spans []string
	if m := reJSONFence.FindStringSubmatch(reply); m != nil {
		spans = append(spans, m[1])
	}
	if m := reAnyFence.FindStringSubmatch(reply); m != nil {
		spans = append(spans, m[1])
	}
	if s, ok := firstBalancedObject(reply); ok {
		spans = append(spans, s)
	}

	for _, s := range spans {
		var doc map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &doc); err == nil && doc != nil {
			return doc, true
		}
	}
	return nil, false
}

// firstBalancedObject returns the first {...} span whose braces balance, ignoring
// braces inside JSON strings.
func firstBalancedObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end, ok := matchBrace(s, start); ok {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
