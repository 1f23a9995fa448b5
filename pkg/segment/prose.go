package segment

import (
	"strings"
	"unicode/utf8"
)

// Prose splits free-form text into spans by grouping consecutive paragraphs
// under the MaxChars budget. A paragraph that alone exceeds the budget is
// split on sentence boundaries, then on raw character boundaries as a last
// resort.
func Prose(content string, opts Options) []string {
	opts = opts.withDefaults()

	if strings.TrimSpace(content) == "" {
		return nil
	}

	var spans []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			spans = append(spans, s)
		}
		current.Reset()
	}

	appendPiece := func(piece, sep string) {
		if current.Len() > 0 && current.Len()+len(sep)+len(piece) > opts.MaxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(piece)
	}

	for _, para := range paragraphs(content) {
		if len(para) <= opts.MaxChars {
			appendPiece(para, "\n\n")
			continue
		}

		// Oversized paragraph: sentence boundaries first, characters last.
		// Sentences of the same paragraph are rejoined with a space, never
		// a paragraph break.
		flush()
		for _, sentence := range sentences(para) {
			if len(sentence) <= opts.MaxChars {
				appendPiece(sentence, " ")
				continue
			}
			flush()
			spans = append(spans, hardSplit(sentence, opts.MaxChars)...)
		}
		flush()
	}
	flush()

	if opts.Overlap > 0 {
		spans = applyOverlap(spans, opts.Overlap, opts.MaxChars)
	}

	return spans
}

// paragraphs splits text on blank lines, trimming each paragraph and
// dropping empties.
func paragraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		if p := strings.TrimSpace(block); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sentences splits a paragraph after runs of sentence terminators. Text with
// no terminator is returned as a single sentence.
func sentences(p string) []string {
	var out []string
	start := 0
	for i := 0; i < len(p); i++ {
		if p[i] != '.' && p[i] != '!' && p[i] != '?' {
			continue
		}
		for i+1 < len(p) && (p[i+1] == '.' || p[i+1] == '!' || p[i+1] == '?') {
			i++
		}
		if s := strings.TrimSpace(p[start : i+1]); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if rest := strings.TrimSpace(p[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// applyOverlap prepends the trailing overlap characters of each span to the
// start of the next one. The shared region is clamped below the previous
// span's length so every span still contributes new content, and below the
// remaining room in maxChars so the combined span stays inside the budget.
// The cut never lands inside a rune.
func applyOverlap(spans []string, overlap, maxChars int) []string {
	if len(spans) < 2 {
		return spans
	}
	out := make([]string, len(spans))
	out[0] = spans[0]
	for i := 1; i < len(spans); i++ {
		prev := spans[i-1]
		n := overlap
		if n >= len(prev) {
			n = len(prev) - 1
		}
		if room := maxChars - len(spans[i]) - 1; n > room {
			n = room
		}
		if n <= 0 {
			out[i] = spans[i]
			continue
		}
		cut := len(prev) - n
		for cut < len(prev) && !utf8.RuneStart(prev[cut]) {
			cut++
		}
		tail := strings.TrimSpace(prev[cut:])
		if tail == "" {
			out[i] = spans[i]
			continue
		}
		out[i] = tail + "\n" + spans[i]
	}
	return out
}
