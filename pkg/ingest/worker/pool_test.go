package worker

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/graph"
	"github.com/papercomputeco/engram/pkg/ingest"
)

type countingProcessor struct {
	mu        sync.Mutex
	processed []*graph.Document
}

func (c *countingProcessor) ProcessDocument(_ context.Context, doc *graph.Document) (*ingest.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processed = append(c.processed, doc)
	return &ingest.Result{DocumentID: doc.ID, ChunkCount: 1}, nil
}

func (c *countingProcessor) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.processed)
}

var _ = Describe("Worker Pool", func() {
	It("requires a processor", func() {
		_, err := NewPool(&Config{})
		Expect(err).To(HaveOccurred())
	})

	It("processes every enqueued job before Close returns", func() {
		processor := &countingProcessor{}
		pool, err := NewPool(&Config{Processor: processor, NumWorkers: 2})
		Expect(err).NotTo(HaveOccurred())

		for range 10 {
			ok := pool.Enqueue(Job{Document: &graph.Document{RawContent: "x"}})
			Expect(ok).To(BeTrue())
		}

		pool.Close()
		Expect(processor.count()).To(Equal(10))
	})

	It("drops jobs when the queue is full", func() {
		blocked := make(chan struct{})
		release := make(chan struct{})

		processor := &blockingProcessor{blocked: blocked, release: release}
		pool, err := NewPool(&Config{Processor: processor, NumWorkers: 1, QueueSize: 1})
		Expect(err).NotTo(HaveOccurred())

		// First job occupies the single worker.
		Expect(pool.Enqueue(Job{Document: &graph.Document{}})).To(BeTrue())
		<-blocked

		// Second job fills the queue; third has nowhere to go.
		Expect(pool.Enqueue(Job{Document: &graph.Document{}})).To(BeTrue())
		Expect(pool.Enqueue(Job{Document: &graph.Document{}})).To(BeFalse())

		close(release)
		pool.Close()
	})
})

type blockingProcessor struct {
	blocked chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingProcessor) ProcessDocument(_ context.Context, doc *graph.Document) (*ingest.Result, error) {
	b.once.Do(func() { close(b.blocked) })
	<-b.release
	return &ingest.Result{DocumentID: doc.ID}, nil
}
