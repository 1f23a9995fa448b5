package logger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/logger"
)

func TestLogger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Logger Suite")
}

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("creates a default text logger", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf))
			l.Info("hello", "key", "value")

			output := buf.String()
			Expect(output).To(ContainSubstring("hello"))
			Expect(output).To(ContainSubstring("key"))
			Expect(output).To(ContainSubstring("value"))
		})

		It("respects debug level", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithDebug(true))
			l.Debug("debug msg")

			Expect(buf.String()).To(ContainSubstring("debug msg"))
		})

		It("filters debug when not enabled", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithDebug(false))
			l.Debug("hidden")

			Expect(buf.String()).To(BeEmpty())
		})

		It("emits JSON records when configured", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
			l.Info("structured", "count", 3)

			var record map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
			Expect(record["msg"]).To(Equal("structured"))
			Expect(record["count"]).To(BeNumerically("==", 3))
		})

		It("writes to multiple writers", func() {
			var a, b bytes.Buffer
			l := logger.New(logger.WithWriters(&a, &b))
			l.Info("fanout")

			Expect(a.String()).To(ContainSubstring("fanout"))
			Expect(b.String()).To(ContainSubstring("fanout"))
		})
	})

	Describe("Nop", func() {
		It("discards all records", func() {
			l := logger.Nop()
			Expect(func() { l.Info("dropped") }).NotTo(Panic())
		})
	})

	Describe("Multi", func() {
		It("dispatches records to every handler", func() {
			var pretty, structured bytes.Buffer
			l := logger.Multi(
				logger.New(logger.WithWriter(&pretty)),
				logger.New(logger.WithWriter(&structured), logger.WithJSON(true)),
			)
			l.Info("both")

			Expect(pretty.String()).To(ContainSubstring("both"))
			Expect(structured.String()).To(ContainSubstring("both"))
		})

		It("respects per-handler levels", func() {
			var quiet, verbose bytes.Buffer
			l := logger.Multi(
				logger.New(logger.WithWriter(&quiet), logger.WithDebug(false)),
				logger.New(logger.WithWriter(&verbose), logger.WithDebug(true)),
			)
			l.Debug("only verbose")

			Expect(strings.TrimSpace(quiet.String())).To(BeEmpty())
			Expect(verbose.String()).To(ContainSubstring("only verbose"))
		})
	})
})
