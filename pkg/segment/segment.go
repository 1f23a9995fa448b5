// Package segment splits raw document content into ordered, size-bounded
// text spans ahead of embedding.
//
// Two strategies are provided: [Prose] groups blank-line-delimited paragraphs
// under a character budget, and [Conversation] groups speaker turns at
// natural role boundaries. Both are pure functions — the package holds no
// state and performs no I/O.
package segment

import (
	"strings"
	"unicode/utf8"
)

// Character budgets approximating 512-1024 tokens at ~4 chars/token.
const (
	// DefaultMaxChars is the maximum span size in characters.
	DefaultMaxChars = 4096

	// DefaultMinChars is the size a conversation span must reach before a
	// role change is treated as a natural boundary.
	DefaultMinChars = 2048
)

// Strategy selects the splitting algorithm for a piece of content.
type Strategy string

const (
	// StrategyProse splits on paragraph and sentence boundaries.
	StrategyProse Strategy = "prose"

	// StrategyConversation splits on speaker turns.
	StrategyConversation Strategy = "conversation"
)

// Options tune the splitting behavior. The zero value selects the defaults.
type Options struct {
	// MaxChars is the hard upper bound on span size in characters.
	MaxChars int

	// MinChars is the minimum span size before a role change ends a
	// conversation span. Ignored by the prose strategy.
	MinChars int

	// Overlap is the number of trailing characters of each prose span to
	// repeat at the start of the next span. Clamped so the window always
	// advances and the combined span stays within MaxChars. Ignored by the
	// conversation strategy.
	Overlap int
}

func (o Options) withDefaults() Options {
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	if o.MinChars <= 0 {
		o.MinChars = DefaultMinChars
	}
	if o.MinChars > o.MaxChars {
		o.MinChars = o.MaxChars
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	return o
}

// Split applies the given strategy to content. Empty or whitespace-only
// content yields no spans. Returned spans are trimmed and never empty.
func Split(content string, strategy Strategy, opts Options) []string {
	switch strategy {
	case StrategyConversation:
		return Conversation(content, opts)
	default:
		return Prose(content, opts)
	}
}

// hardSplit cuts s into pieces of at most max bytes, never inside a rune,
// dropping pieces that trim to nothing. Each cut backs up to the nearest
// rune boundary; a rune wider than max is emitted whole so the window
// always advances.
func hardSplit(s string, max int) []string {
	var out []string
	for start := 0; start < len(s); {
		end := start + max
		if end >= len(s) {
			end = len(s)
		} else {
			for end > start && !utf8.RuneStart(s[end]) {
				end--
			}
			if end == start {
				_, size := utf8.DecodeRuneInString(s[start:])
				end = start + size
			}
		}
		if piece := strings.TrimSpace(s[start:end]); piece != "" {
			out = append(out, piece)
		}
		start = end
	}
	return out
}
