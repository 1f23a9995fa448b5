package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/embeddings/openai"
)

func TestOpenAIEmbedder(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "OpenAI Embedder Suite")
}

type embedData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// newEchoServer returns vectors encoding each input's numeric suffix, so
// tests can verify position mapping. When reverse is true the response data
// is returned in reverse order with correct per-item indexes.
func newEchoServer(requests *atomic.Int32, reverse bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data := make([]embedData, len(req.Input))
		for i, text := range req.Input {
			n, _ := strconv.Atoi(text[1:])
			data[i] = embedData{Index: i, Embedding: []float32{float32(n)}}
		}
		if reverse {
			for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
				data[i], data[j] = data[j], data[i]
			}
		}

		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

var _ = Describe("Embedder", func() {
	var requests atomic.Int32

	BeforeEach(func() {
		requests.Store(0)
	})

	Describe("NewEmbedder", func() {
		It("fails fast without an API key", func() {
			_, err := openai.NewEmbedder(openai.Config{}, nil)
			Expect(err).To(MatchError(embeddings.ErrNoCredential))
		})
	})

	Describe("EmbedBatch", func() {
		It("returns empty for empty input without any network call", func() {
			server := newEchoServer(&requests, false)
			defer server.Close()

			e, err := openai.NewEmbedder(openai.Config{APIKey: "k", BaseURL: server.URL}, nil)
			Expect(err).NotTo(HaveOccurred())

			vectors, err := e.EmbedBatch(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(vectors).To(BeEmpty())
			Expect(requests.Load()).To(BeZero())
		})

		It("rejects whitespace-only input before any network call, naming the index", func() {
			server := newEchoServer(&requests, false)
			defer server.Close()

			e, err := openai.NewEmbedder(openai.Config{APIKey: "k", BaseURL: server.URL}, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = e.EmbedBatch(context.Background(), []string{"t0", "   ", "t2"})
			Expect(err).To(MatchError(embeddings.ErrInvalidInput))
			Expect(err.Error()).To(ContainSubstring("index 1"))
			Expect(requests.Load()).To(BeZero())
		})

		It("splits input into ceil(N/100) sequential batches preserving order", func() {
			server := newEchoServer(&requests, false)
			defer server.Close()

			e, err := openai.NewEmbedder(openai.Config{APIKey: "k", BaseURL: server.URL}, nil)
			Expect(err).NotTo(HaveOccurred())

			texts := make([]string, 250)
			for i := range texts {
				texts[i] = fmt.Sprintf("t%d", i)
			}

			vectors, err := e.EmbedBatch(context.Background(), texts)
			Expect(err).NotTo(HaveOccurred())
			Expect(requests.Load()).To(Equal(int32(3)))
			Expect(vectors).To(HaveLen(250))
			for i, v := range vectors {
				Expect(v).To(Equal([]float32{float32(i)}))
			}
		})

		It("re-sorts results by provider index when the response is reordered", func() {
			server := newEchoServer(&requests, true)
			defer server.Close()

			e, err := openai.NewEmbedder(openai.Config{APIKey: "k", BaseURL: server.URL}, nil)
			Expect(err).NotTo(HaveOccurred())

			vectors, err := e.EmbedBatch(context.Background(), []string{"t7", "t8", "t9"})
			Expect(err).NotTo(HaveOccurred())
			Expect(vectors).To(Equal([][]float32{{7}, {8}, {9}}))
		})
	})

	Describe("retries", func() {
		It("backs off 1s then 2s plus pinned jitter when the provider fails twice", func() {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if attempts.Add(1) <= 2 {
					http.Error(w, "rate limited", http.StatusTooManyRequests)
					return
				}
				json.NewEncoder(w).Encode(map[string]any{
					"data": []embedData{{Index: 0, Embedding: []float32{1}}},
				})
			}))
			defer server.Close()

			var waits []time.Duration
			e, err := openai.NewEmbedder(openai.Config{
				APIKey:  "k",
				BaseURL: server.URL,
				Sleep: func(_ context.Context, d time.Duration) error {
					waits = append(waits, d)
					return nil
				},
				Jitter: func() float64 { return 0.25 },
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			vectors, err := e.EmbedBatch(context.Background(), []string{"a"})
			Expect(err).NotTo(HaveOccurred())
			Expect(vectors).To(Equal([][]float32{{1}}))
			Expect(attempts.Load()).To(Equal(int32(3)))
			Expect(waits).To(Equal([]time.Duration{
				1*time.Second + 250*time.Millisecond,
				2*time.Second + 250*time.Millisecond,
			}))
		})

		It("returns the original error unchanged after exactly 3 attempts", func() {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				http.Error(w, "boom", http.StatusInternalServerError)
			}))
			defer server.Close()

			e, err := openai.NewEmbedder(openai.Config{
				APIKey:  "k",
				BaseURL: server.URL,
				Sleep:   noSleep,
				Jitter:  func() float64 { return 0 },
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = e.EmbedBatch(context.Background(), []string{"a"})
			Expect(err).To(MatchError(embeddings.ErrEmbedding))
			Expect(err.Error()).To(ContainSubstring("status 500"))
			Expect(err.Error()).To(ContainSubstring("boom"))
			Expect(attempts.Load()).To(Equal(int32(3)))
		})

		It("stops retrying when the context is canceled during backoff", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
			}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			e, err := openai.NewEmbedder(openai.Config{
				APIKey:  "k",
				BaseURL: server.URL,
				Sleep: func(ctx context.Context, _ time.Duration) error {
					cancel()
					return ctx.Err()
				},
				Jitter: func() float64 { return 0 },
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = e.EmbedBatch(ctx, []string{"a"})
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})

var _ = Describe("Dimensions", func() {
	It("defaults to the model's native dimension", func() {
		e, err := openai.NewEmbedder(openai.Config{APIKey: "k"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Dimensions()).To(Equal(uint(openai.DefaultDimensions)))
	})
})

var _ = Describe("Embed", func() {
	It("returns the single vector", func() {
		var requests atomic.Int32
		server := newEchoServer(&requests, false)
		defer server.Close()

		e, err := openai.NewEmbedder(openai.Config{APIKey: "k", BaseURL: server.URL}, nil)
		Expect(err).NotTo(HaveOccurred())

		vector, err := e.Embed(context.Background(), "t42")
		Expect(err).NotTo(HaveOccurred())
		Expect(vector).To(Equal([]float32{42}))
	})
})

var _ = Describe("error classification", func() {
	It("treats connection failures as embedding errors", func() {
		e, err := openai.NewEmbedder(openai.Config{
			APIKey:  "k",
			BaseURL: "http://127.0.0.1:1", // nothing listens here
			Sleep:   noSleep,
			Jitter:  func() float64 { return 0 },
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = e.EmbedBatch(context.Background(), []string{"a"})
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
		Expect(errors.Is(err, embeddings.ErrInvalidInput)).To(BeFalse())
	})
})
