package segment_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/segment"
)

func TestSegment(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Segment Suite")
}

// stripWhitespace removes all whitespace so span concatenation can be
// compared against the source content.
func stripWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

var _ = Describe("Prose", func() {
	It("returns no spans for empty input", func() {
		Expect(segment.Prose("", segment.Options{})).To(BeEmpty())
		Expect(segment.Prose("   \n\t\n  ", segment.Options{})).To(BeEmpty())
	})

	It("keeps two small paragraphs in one span", func() {
		content := "Para one.\n\nPara two that is long enough to matter."
		spans := segment.Prose(content, segment.Options{})

		Expect(spans).To(HaveLen(1))
		Expect(spans[0]).To(ContainSubstring("Para one."))
		Expect(spans[0]).To(ContainSubstring("Para two"))
	})

	It("starts a new span when the budget would be exceeded", func() {
		a := strings.Repeat("aaaa ", 12) // ~60 chars
		b := strings.Repeat("bbbb ", 12)
		content := strings.TrimSpace(a) + "\n\n" + strings.TrimSpace(b)

		spans := segment.Prose(content, segment.Options{MaxChars: 80})
		Expect(spans).To(HaveLen(2))
	})

	It("splits an oversized paragraph on sentence boundaries", func() {
		sentenceA := "First sentence has a reasonable length overall."
		sentenceB := "Second sentence also has a reasonable length overall."
		content := sentenceA + " " + sentenceB

		spans := segment.Prose(content, segment.Options{MaxChars: 60})
		Expect(spans).To(HaveLen(2))
		Expect(spans[0]).To(Equal(sentenceA))
		Expect(spans[1]).To(Equal(sentenceB))
	})

	It("rejoins merged sentences with a space, not a paragraph break", func() {
		content := "One two three. Four five six. Seven eight nine ten eleven."

		spans := segment.Prose(content, segment.Options{MaxChars: 32})
		Expect(spans).To(HaveLen(2))
		Expect(spans[0]).To(Equal("One two three. Four five six."))
		Expect(spans[0]).NotTo(ContainSubstring("\n\n"))
	})

	It("never cuts a multi-byte rune during character splitting", func() {
		content := strings.Repeat("日", 50)
		spans := segment.Prose(content, segment.Options{MaxChars: 7})

		for i, span := range spans {
			Expect(utf8.ValidString(span)).To(BeTrue(), "span %d is not valid UTF-8", i)
		}
		Expect(strings.Join(spans, "")).To(Equal(content))
	})

	It("falls back to character splitting for a single oversized sentence", func() {
		content := strings.Repeat("x", 500)
		spans := segment.Prose(content, segment.Options{MaxChars: 100})

		Expect(spans).To(HaveLen(5))
		for _, span := range spans {
			Expect(len(span)).To(BeNumerically("<=", 100))
		}
	})

	It("makes forward progress on pathological input", func() {
		content := strings.Repeat("y", 10_000)
		spans := segment.Prose(content, segment.Options{MaxChars: 7})

		var total int
		for _, span := range spans {
			total += len(span)
		}
		Expect(total).To(Equal(10_000))
	})

	It("reconstructs every non-whitespace character exactly once", func() {
		content := "Alpha beta gamma.\n\nDelta epsilon zeta!\n\nEta theta iota?"
		spans := segment.Prose(content, segment.Options{MaxChars: 25})

		Expect(stripWhitespace(strings.Join(spans, ""))).To(Equal(stripWhitespace(content)))
	})

	It("never yields spans with leading or trailing whitespace", func() {
		content := "  padded paragraph one.  \n\n\t padded paragraph two. \n"
		for _, span := range segment.Prose(content, segment.Options{MaxChars: 30}) {
			Expect(span).To(Equal(strings.TrimSpace(span)))
			Expect(span).NotTo(BeEmpty())
		}
	})

	Describe("overlap", func() {
		It("repeats the tail of each span at the start of the next", func() {
			content := "First block of text goes right here now.\n\nSecond block of text goes right here too"
			spans := segment.Prose(content, segment.Options{MaxChars: 50, Overlap: 8})

			Expect(spans).To(HaveLen(2))
			tail := spans[0][len(spans[0])-8:]
			Expect(spans[1]).To(HavePrefix(strings.TrimSpace(tail)))
		})

		It("clamps overlap so the window still advances", func() {
			content := "Tiny.\n\nAlso tiny."
			spans := segment.Prose(content, segment.Options{MaxChars: 12, Overlap: 500})

			Expect(spans).To(HaveLen(2))
			Expect(spans[1]).To(ContainSubstring("Also tiny."))
		})

		It("keeps overlapped spans within the character budget", func() {
			content := "First block of text goes right here now.\n\nSecond block of text goes right here too"
			spans := segment.Prose(content, segment.Options{MaxChars: 50, Overlap: 500})

			Expect(spans).To(HaveLen(2))
			for _, span := range spans {
				Expect(len(span)).To(BeNumerically("<=", 50))
			}
		})
	})
})

var _ = Describe("Conversation", func() {
	It("returns no spans for empty input", func() {
		Expect(segment.Conversation("", segment.Options{})).To(BeEmpty())
	})

	It("splits speaker-prefixed text into one span per turn under a small budget", func() {
		content := "User: hi\nAI: hello\nUser: bye"
		spans := segment.Conversation(content, segment.Options{MaxChars: 12, MinChars: 1})

		Expect(spans).To(HaveLen(3))
		Expect(spans[0]).To(Equal("User: hi"))
		Expect(spans[1]).To(Equal("Ai: hello"))
		Expect(spans[2]).To(Equal("User: bye"))
	})

	It("merges consecutive turns under the budget", func() {
		content := "User: hi\nAI: hello\nUser: bye"
		spans := segment.Conversation(content, segment.Options{})

		Expect(spans).To(HaveLen(1))
		Expect(spans[0]).To(ContainSubstring("User: hi"))
		Expect(spans[0]).To(ContainSubstring("Ai: hello"))
	})

	It("breaks at a role change once the minimum size is reached", func() {
		content := "User: " + strings.Repeat("q ", 30) + "\nAI: short answer"
		spans := segment.Conversation(content, segment.Options{MaxChars: 500, MinChars: 20})

		Expect(spans).To(HaveLen(2))
		Expect(spans[0]).To(HavePrefix("User:"))
		Expect(spans[1]).To(HavePrefix("Ai:"))
	})

	It("hard-splits an oversized single turn", func() {
		content := "User: " + strings.Repeat("z", 300)
		spans := segment.Conversation(content, segment.Options{MaxChars: 100})

		Expect(len(spans)).To(BeNumerically(">", 1))
		for _, span := range spans {
			Expect(len(span)).To(BeNumerically("<=", 100))
		}
	})

	It("hard-splits an oversized multi-byte turn on rune boundaries", func() {
		content := "User: " + strings.Repeat("界", 60)
		spans := segment.Conversation(content, segment.Options{MaxChars: 20})

		Expect(len(spans)).To(BeNumerically(">", 1))
		for i, span := range spans {
			Expect(utf8.ValidString(span)).To(BeTrue(), "span %d is not valid UTF-8", i)
		}
	})

	It("parses JSON message lists", func() {
		content := `[{"role": "user", "content": "hello there"}, {"role": "assistant", "content": "hi"}]`
		spans := segment.Conversation(content, segment.Options{MaxChars: 20, MinChars: 1})

		Expect(spans).To(HaveLen(2))
		Expect(spans[0]).To(Equal("User: hello there"))
		Expect(spans[1]).To(Equal("Assistant: hi"))
	})

	It("treats plain lines as individual turns when no speaker markers exist", func() {
		content := "first line\nsecond line"
		spans := segment.Conversation(content, segment.Options{MaxChars: 25, MinChars: 1})

		Expect(spans).To(HaveLen(2))
		Expect(spans[0]).To(Equal("Unknown: first line"))
		Expect(spans[1]).To(Equal("Unknown: second line"))
	})
})

var _ = Describe("ParseTurns", func() {
	It("joins continuation lines into the current turn", func() {
		content := "User: part one\npart two\nAI: done"
		turns := segment.ParseTurns(content)

		Expect(turns).To(HaveLen(2))
		Expect(turns[0].Content).To(Equal("part one part two"))
		Expect(turns[1].Role).To(Equal("AI"))
	})

	It("accepts speaker and message JSON keys", func() {
		content := `[{"speaker": "Bot", "message": "beep"}]`
		turns := segment.ParseTurns(content)

		Expect(turns).To(HaveLen(1))
		Expect(turns[0].Role).To(Equal("Bot"))
		Expect(turns[0].Content).To(Equal("beep"))
	})

	It("accepts plain string JSON lists", func() {
		turns := segment.ParseTurns(`["one", "two"]`)

		Expect(turns).To(HaveLen(2))
		Expect(turns[0].Role).To(Equal("unknown"))
	})
})
