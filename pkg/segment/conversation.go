package segment

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
)

// Turn is one parsed speaker turn of a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// speakerRe matches common speaker prefixes at the start of a line, either
// with an ASCII or a fullwidth colon.
var speakerRe = regexp.MustCompile(`^(?i)(user|assistant|human|ai|bot|system|speaker\s*\d*)\s*[:：]\s*`)

// Conversation splits turn-based content into spans. Turns are parsed from a
// JSON message list or from "Speaker: message" prefixed text, falling back
// to one turn per non-empty line. Consecutive turns merge into a span until
// it would exceed MaxChars, or until it has reached MinChars and the speaker
// changes. An oversized single turn is hard-split by character count.
func Conversation(content string, opts Options) []string {
	opts = opts.withDefaults()

	turns := ParseTurns(content)
	if len(turns) == 0 {
		return nil
	}

	var spans []string
	var current strings.Builder
	roles := map[string]bool{}

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			spans = append(spans, s)
		}
		current.Reset()
		roles = map[string]bool{}
	}

	for _, turn := range turns {
		text := strings.TrimSpace(turn.Content)
		if text == "" {
			continue
		}

		role := turn.Role
		if role == "" {
			role = "unknown"
		}
		formatted := capitalize(role) + ": " + text

		if len(formatted) > opts.MaxChars {
			flush()
			spans = append(spans, hardSplit(formatted, opts.MaxChars)...)
			continue
		}

		projected := current.Len() + len(formatted)
		if current.Len() > 0 {
			projected += 2 // separator
		}

		roleChanged := len(roles) > 0 && !roles[role]
		atBoundary := current.Len() >= opts.MinChars && roleChanged

		if projected > opts.MaxChars || atBoundary {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(formatted)
		roles[role] = true
	}
	flush()

	return spans
}

// ParseTurns extracts speaker turns from raw conversation content. It tries
// a JSON message list first, then speaker-prefixed lines, and finally treats
// every non-empty line as its own turn.
func ParseTurns(content string) []Turn {
	if turns := parseJSONTurns(content); len(turns) > 0 {
		return turns
	}

	lines := strings.Split(content, "\n")

	var turns []Turn
	var currentRole string
	var currentContent []string

	save := func() {
		if len(currentContent) > 0 {
			turns = append(turns, Turn{
				Role:    currentRole,
				Content: strings.Join(currentContent, " "),
			})
		}
		currentContent = nil
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if loc := speakerRe.FindStringIndex(line); loc != nil {
			save()
			prefix := line[:loc[1]]
			currentRole = strings.TrimRight(prefix, ":： \t")
			currentContent = []string{strings.TrimSpace(line[loc[1]:])}
			continue
		}

		// Continuation of the current turn, or plain text before any
		// speaker marker appeared.
		currentContent = append(currentContent, line)
	}
	save()

	// No speaker markers anywhere: one turn per non-empty line.
	if len(turns) == 1 && turns[0].Role == "" {
		turns = nil
		for _, line := range lines {
			if line = strings.TrimSpace(line); line != "" {
				turns = append(turns, Turn{Role: "unknown", Content: line})
			}
		}
	}

	return turns
}

// parseJSONTurns handles [{"role": ..., "content": ...}] and plain string
// lists. Returns nil if content is not a JSON conversation.
func parseJSONTurns(content string) []Turn {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "[") {
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil
	}

	var turns []Turn
	for _, item := range raw {
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err == nil {
			turn := Turn{Role: "unknown"}
			for _, key := range []string{"role", "speaker"} {
				if v, ok := obj[key].(string); ok && v != "" {
					turn.Role = v
					break
				}
			}
			for _, key := range []string{"content", "message", "text"} {
				if v, ok := obj[key].(string); ok && v != "" {
					turn.Content = v
					break
				}
			}
			if turn.Content != "" {
				turns = append(turns, turn)
			}
			continue
		}

		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				turns = append(turns, Turn{Role: "unknown", Content: s})
			}
		}
	}

	return turns
}

// capitalize uppercases the first rune and lowercases the rest, matching
// the "User:", "Ai:" prefix form used in persisted spans.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
