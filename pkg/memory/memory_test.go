package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/graph"
)

func TestMemory(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Memory Suite")
}

// fakeStore keeps memories in a map and mimics the store's revision
// semantics closely enough to check lineage invariants. Every call is
// recorded in ops so tests can assert exactly which writes happened.
type fakeStore struct {
	memories map[uuid.UUID]*graph.Memory
	links    map[uuid.UUID]uuid.UUID
	ops      []string
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		memories: map[uuid.UUID]*graph.Memory{},
		links:    map[uuid.UUID]uuid.UUID{},
	}
}

func (f *fakeStore) insert(m *graph.Memory) *graph.Memory {
	stored := *m
	stored.ID = uuid.New()
	stored.IsLatest = true
	stored.ValidFrom = time.Now().UTC()
	f.memories[stored.ID] = &stored
	return &stored
}

func (f *fakeStore) InsertMemory(_ context.Context, m *graph.Memory) (*graph.Memory, error) {
	f.ops = append(f.ops, "InsertMemory")
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.insert(m), nil
}

func (f *fakeStore) LinkMemorySource(_ context.Context, memoryID, sourceID uuid.UUID) error {
	f.ops = append(f.ops, "LinkMemorySource")
	if _, ok := f.memories[memoryID]; !ok {
		return graph.ErrNotFound
	}
	f.links[memoryID] = sourceID
	return nil
}

func (f *fakeStore) SupersedeMemory(_ context.Context, priorID uuid.UUID, m *graph.Memory) (*graph.Memory, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	prior, ok := f.memories[priorID]
	if !ok {
		return nil, graph.ErrNotFound
	}
	written := f.insert(m)
	prior.IsLatest = false
	validTo := written.ValidFrom
	prior.ValidTo = &validTo
	return written, nil
}

func (f *fakeStore) ExtendMemory(_ context.Context, relatedID uuid.UUID, m *graph.Memory) (*graph.Memory, error) {
	if _, ok := f.memories[relatedID]; !ok {
		return nil, graph.ErrNotFound
	}
	return f.insert(m), nil
}

func (f *fakeStore) DeriveMemory(_ context.Context, sourceIDs []uuid.UUID, m *graph.Memory) (*graph.Memory, error) {
	if len(sourceIDs) < 2 {
		return nil, errors.New("need at least 2 sources")
	}
	for _, id := range sourceIDs {
		if _, ok := f.memories[id]; !ok {
			return nil, graph.ErrNotFound
		}
	}
	m.MemoryType = graph.MemoryTypeDerived
	return f.insert(m), nil
}

func (f *fakeStore) ForgetMemory(_ context.Context, id uuid.UUID) error {
	m, ok := f.memories[id]
	if !ok {
		return graph.ErrNotFound
	}
	now := time.Now().UTC()
	if m.ForgottenAt == nil {
		m.ForgottenAt = &now
	}
	if m.ValidTo == nil {
		m.ValidTo = m.ForgottenAt
	}
	m.IsLatest = false
	return nil
}

func (f *fakeStore) LatestMemories(_ context.Context, containerTag string, _ int) ([]*graph.Memory, error) {
	var out []*graph.Memory
	for _, m := range f.memories {
		if m.ContainerTag == containerTag && m.IsLatest && m.ForgottenAt == nil {
			out = append(out, m)
		}
	}
	return out, nil
}

type fixedEmbedder struct {
	vec []float32
	err error
}

func (e *fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return e.vec, e.err
}

var _ = Describe("Service", func() {
	var (
		store *fakeStore
		ctx   context.Context
	)

	BeforeEach(func() {
		store = newFakeStore()
		ctx = context.Background()
	})

	It("creates a root memory as latest with an open window", func() {
		svc := New(store)

		written, err := svc.Upsert(ctx, Candidate{
			Content:      "prefers dark mode",
			Type:         graph.MemoryTypePreference,
			ContainerTag: "user-1",
			Confidence:   0.9,
		}, Create{})

		Expect(err).NotTo(HaveOccurred())
		Expect(written.IsLatest).To(BeTrue())
		Expect(written.ValidTo).To(BeNil())
		Expect(written.ForgottenAt).To(BeNil())
	})

	It("links the written memory to its source", func() {
		svc := New(store)
		sourceID := uuid.New()

		written, err := svc.Upsert(ctx, Candidate{
			Content:      "extracted from a chunk",
			ContainerTag: "user-1",
			SourceDocID:  sourceID,
		}, Create{})

		Expect(err).NotTo(HaveOccurred())
		Expect(store.links).To(HaveKeyWithValue(written.ID, sourceID))
		Expect(store.ops).To(Equal([]string{"InsertMemory", "LinkMemorySource"}))
	})

	It("creates no source link when no source is named", func() {
		svc := New(store)

		_, err := svc.Upsert(ctx, Candidate{
			Content:      "stated directly",
			ContainerTag: "user-1",
		}, Create{})

		Expect(err).NotTo(HaveOccurred())
		Expect(store.links).To(BeEmpty())
		Expect(store.ops).To(Equal([]string{"InsertMemory"}))
	})

	It("rejects empty content before touching the store", func() {
		svc := New(store)

		_, err := svc.Upsert(ctx, Candidate{}, Create{})
		Expect(err).To(HaveOccurred())
		Expect(store.memories).To(BeEmpty())
	})

	It("leaves one latest memory per lineage after an update", func() {
		svc := New(store)

		first, err := svc.Upsert(ctx, Candidate{
			Content:      "works at Initech",
			ContainerTag: "user-1",
		}, Create{})
		Expect(err).NotTo(HaveOccurred())

		second, err := svc.Upsert(ctx, Candidate{
			Content:      "works at Initrode",
			ContainerTag: "user-1",
		}, Update{PriorID: first.ID})
		Expect(err).NotTo(HaveOccurred())

		prior := store.memories[first.ID]
		Expect(prior.IsLatest).To(BeFalse())
		Expect(prior.ValidTo).NotTo(BeNil())
		Expect(*prior.ValidTo).To(Equal(second.ValidFrom))

		latest, err := svc.Latest(ctx, "user-1", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(latest).To(HaveLen(1))
		Expect(latest[0].ID).To(Equal(second.ID))
	})

	It("keeps both memories latest after an extend", func() {
		svc := New(store)

		base, err := svc.Upsert(ctx, Candidate{
			Content:      "plays guitar",
			ContainerTag: "user-1",
		}, Create{})
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Upsert(ctx, Candidate{
			Content:      "plays fingerstyle",
			ContainerTag: "user-1",
		}, Extend{RelatedID: base.ID})
		Expect(err).NotTo(HaveOccurred())

		latest, err := svc.Latest(ctx, "user-1", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(latest).To(HaveLen(2))
	})

	It("marks derived memories with the derived type", func() {
		svc := New(store)

		a, _ := svc.Upsert(ctx, Candidate{Content: "a", ContainerTag: "t"}, Create{})
		b, _ := svc.Upsert(ctx, Candidate{Content: "b", ContainerTag: "t"}, Create{})

		derived, err := svc.Upsert(ctx, Candidate{
			Content:      "a and b together",
			ContainerTag: "t",
		}, Derive{SourceIDs: []uuid.UUID{a.ID, b.ID}})

		Expect(err).NotTo(HaveOccurred())
		Expect(derived.MemoryType).To(Equal(graph.MemoryTypeDerived))
	})

	It("refuses to derive from a single source", func() {
		svc := New(store)

		a, _ := svc.Upsert(ctx, Candidate{Content: "a", ContainerTag: "t"}, Create{})

		_, err := svc.Upsert(ctx, Candidate{
			Content:      "just a",
			ContainerTag: "t",
		}, Derive{SourceIDs: []uuid.UUID{a.ID}})
		Expect(err).To(HaveOccurred())
	})

	It("forgets idempotently, preserving the first timestamps", func() {
		svc := New(store)

		written, _ := svc.Upsert(ctx, Candidate{Content: "stale", ContainerTag: "t"}, Create{})

		Expect(svc.Forget(ctx, written.ID)).To(Succeed())
		first := *store.memories[written.ID].ForgottenAt

		Expect(svc.Forget(ctx, written.ID)).To(Succeed())
		Expect(*store.memories[written.ID].ForgottenAt).To(Equal(first))

		latest, err := svc.Latest(ctx, "t", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(latest).To(BeEmpty())
	})

	It("embeds content when an embedder is configured", func() {
		svc := New(store, WithEmbedder(&fixedEmbedder{vec: []float32{1, 2, 3}}))

		written, err := svc.Upsert(ctx, Candidate{Content: "hello", ContainerTag: "t"}, Create{})
		Expect(err).NotTo(HaveOccurred())
		Expect(written.Embedding).To(Equal([]float32{1, 2, 3}))
	})

	It("does not write anything when embedding fails", func() {
		svc := New(store, WithEmbedder(&fixedEmbedder{err: errors.New("provider down")}))

		_, err := svc.Upsert(ctx, Candidate{Content: "hello", ContainerTag: "t"}, Create{})
		Expect(err).To(MatchError(ContainSubstring("provider down")))
		Expect(store.memories).To(BeEmpty())
	})
})
