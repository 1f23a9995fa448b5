package graph

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestGraph(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Graph Suite")
}

var _ = Describe("SanitizeIdentifier", func() {
	DescribeTable("accepts valid identifiers",
		func(value string) {
			got, err := SanitizeIdentifier(value)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(value))
		},
		Entry("index name", "entity_embeddings"),
		Entry("leading underscore", "_private"),
		Entry("letter then digit", "A1"),
		Entry("single letter", "x"),
		Entry("mixed case label", "MemoryOwner"),
	)

	DescribeTable("rejects anything that could smuggle query syntax",
		func(value string) {
			_, err := SanitizeIdentifier(value)
			Expect(err).To(MatchError(ErrInvalidIdentifier))
		},
		Entry("empty", ""),
		Entry("leading digit", "1abc"),
		Entry("semicolon", "a;b"),
		Entry("space", "a b"),
		Entry("single quote", "a'b"),
		Entry("double quote", `a"b`),
		Entry("backtick", "a`b"),
		Entry("parens", "call()"),
		Entry("dash", "entity-embeddings"),
		Entry("dot", "db.index"),
		Entry("statement injection", "x; DROP CONSTRAINT"),
	)
})

var _ = Describe("metadata encoding", func() {
	It("round-trips a map", func() {
		encoded, err := encodeMetadata(map[string]any{"source": "upload", "page": 3.0})
		Expect(err).NotTo(HaveOccurred())

		decoded := decodeMetadata(encoded)
		Expect(decoded).To(HaveKeyWithValue("source", "upload"))
		Expect(decoded).To(HaveKeyWithValue("page", 3.0))
	})

	It("encodes nil as an empty object", func() {
		encoded, err := encodeMetadata(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(encoded).To(Equal("{}"))
		Expect(decodeMetadata(encoded)).To(BeEmpty())
	})

	It("decodes garbage as an empty map", func() {
		Expect(decodeMetadata("not json")).To(BeEmpty())
		Expect(decodeMetadata("")).To(BeEmpty())
	})
})

var _ = Describe("vector conversion", func() {
	It("keeps nil embeddings nil", func() {
		Expect(vectorParam(nil)).To(BeNil())
	})

	It("widens to float64 for the wire and narrows back", func() {
		param := vectorParam([]float32{0.5, -1, 2})
		Expect(param).To(Equal([]float64{0.5, -1, 2}))

		back := vectorFromProp([]any{0.5, -1.0, 2.0})
		Expect(back).To(Equal([]float32{0.5, -1, 2}))
	})

	It("rejects malformed stored vectors", func() {
		Expect(vectorFromProp("oops")).To(BeNil())
		Expect(vectorFromProp([]any{0.5, "x"})).To(BeNil())
	})
})

var _ = Describe("time properties", func() {
	It("round-trips through the stored string form", func() {
		now := time.Date(2025, 6, 1, 12, 30, 0, 123456789, time.UTC)
		props := map[string]any{"created_at": now.Format(time.RFC3339Nano)}
		Expect(timeProp(props, "created_at")).To(Equal(now))
	})

	It("treats missing or blank optional timestamps as unset", func() {
		Expect(timePtrProp(map[string]any{}, "valid_to")).To(BeNil())
		Expect(timePtrProp(map[string]any{"valid_to": ""}, "valid_to")).To(BeNil())
	})
})

var _ = Describe("owner queries", func() {
	It("merges users on the constrained user_id property", func() {
		query := userMergeQuery("User")
		Expect(query).To(ContainSubstring("{user_id: $user_id}"))
		Expect(query).NotTo(ContainSubstring("{id:"))
	})

	It("matches owners on the same user_id key when linking", func() {
		Expect(ownerLinkQuery("User")).To(ContainSubstring("(u:User {user_id: $user_id})"))
	})
})

var _ = Describe("entity observation union", func() {
	It("appends only missing observations and never rewrites the list", func() {
		Expect(observeEntityQuery).To(ContainSubstring(
			"e.observations = e.observations +"))
		Expect(observeEntityQuery).To(ContainSubstring(
			"WHERE NOT obs IN e.observations"))
	})

	It("initializes the observation list only on create", func() {
		Expect(observeEntityQuery).To(MatchRegexp(`ON CREATE SET\s+e\.observations = \[\]`))
	})
})

var _ = Describe("write validation", func() {
	var client *Client

	BeforeEach(func() {
		// No driver: validation must reject before any session is opened.
		client = &Client{dimensions: 3}
	})

	It("rejects an entity embedding of the wrong dimension", func() {
		_, err := client.ObserveEntity(context.Background(), &Entity{
			Name:      "grace",
			Embedding: []float32{1, 2},
		})
		Expect(err).To(MatchError(ErrDimensionMismatch))
	})

	It("rejects an entity without a name", func() {
		_, err := client.ObserveEntity(context.Background(), &Entity{})
		Expect(err).To(HaveOccurred())
	})

	It("rejects a chunk embedding of the wrong dimension", func() {
		err := client.CreateChunk(context.Background(), &Chunk{
			Content:   "body",
			Embedding: []float32{1, 2, 3, 4},
		})
		Expect(err).To(MatchError(ErrDimensionMismatch))
	})

	It("rejects a memory confidence outside the unit interval", func() {
		err := client.validateMemory(&Memory{Content: "c", Confidence: 1.5})
		Expect(err).To(MatchError(ErrConfidenceRange))
	})
})

var _ = Describe("benign schema errors", func() {
	It("treats already-exists codes as success", func() {
		Expect(benignSchemaCodes).To(HaveKey("Neo.ClientError.Schema.EquivalentSchemaRuleAlreadyExists"))
		Expect(benignSchemaCodes).To(HaveKey("Neo.ClientError.Schema.IndexAlreadyExists"))
	})
})
