package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/graph"
	"github.com/papercomputeco/engram/pkg/segment"
)

func TestIngest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ingest Suite")
}

type fakeStore struct {
	documents map[uuid.UUID]*graph.Document
	statuses  map[uuid.UUID][]graph.DocumentStatus
	chunks    []*graph.Chunk
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		documents: map[uuid.UUID]*graph.Document{},
		statuses:  map[uuid.UUID][]graph.DocumentStatus{},
	}
}

func (f *fakeStore) CreateDocument(_ context.Context, doc *graph.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = graph.StatusQueued
	}
	f.documents[doc.ID] = doc
	return nil
}

func (f *fakeStore) UpdateDocumentStatus(_ context.Context, id uuid.UUID, status graph.DocumentStatus) error {
	if _, ok := f.documents[id]; !ok {
		return graph.ErrNotFound
	}
	f.statuses[id] = append(f.statuses[id], status)
	return nil
}

func (f *fakeStore) CreateChunk(_ context.Context, chunk *graph.Chunk) error {
	f.chunks = append(f.chunks, chunk)
	return nil
}

func (f *fakeStore) DeleteDocumentChunks(_ context.Context, documentID uuid.UUID) error {
	kept := f.chunks[:0]
	for _, chunk := range f.chunks {
		if chunk.SourceDocID != documentID {
			kept = append(kept, chunk)
		}
	}
	f.chunks = kept
	return nil
}

type fakeEmbedder struct {
	calls int
	fail  error
	dims  uint
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), float32(len(texts[i]))}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() uint { return f.dims }
func (f *fakeEmbedder) Close() error     { return nil }

type capturingPublisher struct {
	events []*eventstream.DocumentEvent
}

func (c *capturingPublisher) PublishDocument(_ context.Context, event *eventstream.DocumentEvent) error {
	c.events = append(c.events, event)
	return nil
}

func (c *capturingPublisher) PublishMemory(context.Context, *eventstream.MemoryEvent) error {
	return nil
}

func (c *capturingPublisher) Close() error { return nil }

var _ = Describe("Assembler", func() {
	var (
		store     *fakeStore
		publisher *capturingPublisher
		ctx       context.Context
	)

	BeforeEach(func() {
		store = newFakeStore()
		publisher = &capturingPublisher{}
		ctx = context.Background()
	})

	newAssembler := func(cfg Config) *Assembler {
		cfg.Store = store
		cfg.Publisher = publisher
		a, err := New(cfg)
		Expect(err).NotTo(HaveOccurred())
		return a
	}

	It("stores two small paragraphs as a single chunk", func() {
		a := newAssembler(Config{})

		doc := &graph.Document{
			RawContent:   "First paragraph here.\n\nSecond paragraph here.",
			ContentType:  graph.ContentTypeText,
			ContainerTag: "user-1",
		}

		result, err := a.ProcessDocument(ctx, doc)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.ChunkCount).To(Equal(1))
		Expect(store.chunks).To(HaveLen(1))
		Expect(store.chunks[0].Content).To(Equal("First paragraph here.\n\nSecond paragraph here."))
		Expect(store.chunks[0].ChunkIndex).To(Equal(0))
		Expect(store.chunks[0].SourceDocID).To(Equal(doc.ID))
	})

	It("splits a conversation into one chunk per turn when the budget is small", func() {
		a := newAssembler(Config{
			Chunking: segment.Options{MaxChars: 20, MinChars: 1},
		})

		doc := &graph.Document{
			RawContent:  "User: hi\nAI: hello\nUser: bye",
			ContentType: graph.ContentTypeConversation,
		}

		result, err := a.ProcessDocument(ctx, doc)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.ChunkCount).To(Equal(3))

		contents := []string{}
		for _, c := range store.chunks {
			contents = append(contents, c.Content)
		}
		Expect(contents).To(Equal([]string{"User: hi", "Ai: hello", "User: bye"}))

		for i, c := range store.chunks {
			Expect(c.ChunkIndex).To(Equal(i))
		}
	})

	It("walks the full status ladder including embedding", func() {
		embedder := &fakeEmbedder{}
		a := newAssembler(Config{Embedder: embedder})

		doc := &graph.Document{RawContent: "Some content."}
		_, err := a.ProcessDocument(ctx, doc)
		Expect(err).NotTo(HaveOccurred())

		Expect(store.statuses[doc.ID]).To(Equal([]graph.DocumentStatus{
			graph.StatusChunking,
			graph.StatusEmbedding,
			graph.StatusIndexing,
			graph.StatusDone,
		}))
		Expect(store.chunks[0].Embedding).NotTo(BeNil())
	})

	It("skips the embedding stage without an embedder", func() {
		a := newAssembler(Config{})

		doc := &graph.Document{RawContent: "Some content."}
		_, err := a.ProcessDocument(ctx, doc)
		Expect(err).NotTo(HaveOccurred())

		Expect(store.statuses[doc.ID]).To(Equal([]graph.DocumentStatus{
			graph.StatusChunking,
			graph.StatusIndexing,
			graph.StatusDone,
		}))
		Expect(store.chunks[0].Embedding).To(BeNil())
	})

	It("honors SkipEmbeddings even with an embedder configured", func() {
		embedder := &fakeEmbedder{}
		a := newAssembler(Config{Embedder: embedder, SkipEmbeddings: true})

		doc := &graph.Document{RawContent: "Some content."}
		_, err := a.ProcessDocument(ctx, doc)
		Expect(err).NotTo(HaveOccurred())

		Expect(embedder.calls).To(BeZero())
		Expect(store.chunks[0].Embedding).To(BeNil())
	})

	It("moves to error with no chunks written when embedding fails", func() {
		embedder := &fakeEmbedder{fail: errors.New("provider down")}
		a := newAssembler(Config{Embedder: embedder})

		doc := &graph.Document{RawContent: "Some content.", ContainerTag: "user-1"}
		_, err := a.ProcessDocument(ctx, doc)
		Expect(err).To(MatchError(ContainSubstring("provider down")))

		Expect(store.chunks).To(BeEmpty())
		statuses := store.statuses[doc.ID]
		Expect(statuses[len(statuses)-1]).To(Equal(graph.StatusError))

		Expect(publisher.events).To(HaveLen(1))
		Expect(publisher.events[0].EventType).To(Equal(eventstream.EventTypeDocumentFailed))
		Expect(publisher.events[0].Error).To(ContainSubstring("provider down"))
	})

	It("finishes immediately with zero chunks for blank content", func() {
		a := newAssembler(Config{})

		doc := &graph.Document{RawContent: "   \n\n  "}
		result, err := a.ProcessDocument(ctx, doc)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.ChunkCount).To(BeZero())
		Expect(store.chunks).To(BeEmpty())

		statuses := store.statuses[doc.ID]
		Expect(statuses[len(statuses)-1]).To(Equal(graph.StatusDone))
		Expect(publisher.events).To(HaveLen(1))
		Expect(publisher.events[0].EventType).To(Equal(eventstream.EventTypeDocumentIngested))
		Expect(publisher.events[0].ChunkCount).To(BeZero())
	})

	It("replaces a document's chunks when it is reprocessed", func() {
		a := newAssembler(Config{})

		doc := &graph.Document{
			RawContent:   "First paragraph here.\n\nSecond paragraph here.",
			ContainerTag: "user-1",
		}
		_, err := a.ProcessDocument(ctx, doc)
		Expect(err).NotTo(HaveOccurred())
		Expect(store.chunks).To(HaveLen(1))

		doc.RawContent = "Rewritten content entirely."
		result, err := a.ProcessDocument(ctx, doc)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.ChunkCount).To(Equal(1))

		Expect(store.chunks).To(HaveLen(1))
		Expect(store.chunks[0].Content).To(Equal("Rewritten content entirely."))
	})

	It("publishes an ingested event with the chunk count", func() {
		a := newAssembler(Config{})

		doc := &graph.Document{RawContent: "Hello world."}
		result, err := a.ProcessDocument(ctx, doc)
		Expect(err).NotTo(HaveOccurred())

		Expect(publisher.events).To(HaveLen(1))
		event := publisher.events[0]
		Expect(event.EventType).To(Equal(eventstream.EventTypeDocumentIngested))
		Expect(event.DocumentID).To(Equal(doc.ID.String()))
		Expect(event.ChunkCount).To(Equal(result.ChunkCount))
	})
})
