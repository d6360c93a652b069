package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/hr-portal/pkg/logger"
)

func TestLogger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Logger Suite")
}

var _ = Describe("Logger", func() {
	It("writes JSON in production", func() {
		var buf bytes.Buffer
		logger.Init("production", logger.Options{Output: &buf})
		logger.LoggerWrapper().Info("started", "port", 8080)

		var line map[string]interface{}
		Expect(json.Unmarshal(buf.Bytes(), &line)).To(Succeed())
		Expect(line["msg"]).To(Equal("started"))
	})

	It("drops records below the configured level", func() {
		var buf bytes.Buffer
		logger.Init("development", logger.Options{Level: "warn", Output: &buf})
		logger.LoggerWrapper().Info("hidden")
		Expect(buf.String()).To(BeEmpty())
	})

	It("carries fields through the context", func() {
		var buf bytes.Buffer
		logger.Init("development", logger.Options{Format: "json", Output: &buf})

		ctx := logger.With(context.Background(), "session_id", "s1")
		logger.From(ctx).Info("resolved")
		Expect(buf.String()).To(ContainSubstring(`"session_id":"s1"`))
	})

	It("tags session logs with the user once known", func() {
		var buf bytes.Buffer
		logger.Init("development", logger.Options{Format: "json", Output: &buf})

		logger.From(logger.WithSession(context.Background(), "s1", "")).Info("guest")
		Expect(buf.String()).ToNot(ContainSubstring("user_id"))

		logger.From(logger.WithSession(context.Background(), "s2", "u9")).Info("member")
		Expect(buf.String()).To(ContainSubstring(`"user_id":"u9"`))
	})

	It("parses levels leniently", func() {
		Expect(logger.ParseLevel("WARNING")).To(Equal(slog.LevelWarn))
		Expect(logger.ParseLevel("nonsense")).To(Equal(slog.LevelInfo))
	})
})
