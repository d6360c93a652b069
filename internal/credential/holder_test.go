package credential_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/hr-portal/internal/core/events"
	"github.com/frahmantamala/hr-portal/internal/credential"
)

func TestCredential(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Credential Suite")
}

type recordingClient struct {
	mu    sync.Mutex
	token string
	fail  bool
	seen  []string
}

func (c *recordingClient) SetAccessToken(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, token)
	if c.fail && token != "" {
		return errors.New("client refused token")
	}
	c.token = token
	return nil
}

func (c *recordingClient) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func signed(exp time.Time) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	gomega.Expect(err).ToNot(gomega.HaveOccurred())
	return token
}

var _ = ginkgo.Describe("Holder", func() {
	var (
		holder               *credential.Holder
		auth, employee, task *recordingClient
		ctx                  context.Context
	)

	ginkgo.BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		holder = credential.NewHolder(events.NewEventBus(logger), logger)
		auth, employee, task = &recordingClient{}, &recordingClient{}, &recordingClient{}
		holder.Subscribe("auth", auth)
		holder.Subscribe("employee", employee)
		holder.Subscribe("task", task)
		ctx = context.Background()
	})

	ginkgo.It("should push the token to every receiver", func() {
		err := holder.Set(ctx, credential.Credential{AccessToken: "a1", RefreshToken: "r1"}, "login")

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		for _, c := range []*recordingClient{auth, employee, task} {
			gomega.Expect(c.Token()).To(gomega.Equal("a1"))
		}
		current, ok := holder.Current()
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(current.RefreshToken).To(gomega.Equal("r1"))
	})

	ginkgo.Context("when one receiver fails", func() {
		ginkgo.It("should clear every receiver and report a propagation error", func() {
			// Given
			gomega.Expect(holder.Set(ctx, credential.Credential{AccessToken: "old"}, "login")).To(gomega.Succeed())
			employee.fail = true

			// When
			err := holder.Set(ctx, credential.Credential{AccessToken: "new"}, "refresh")

			// Then
			gomega.Expect(errors.Is(err, credential.ErrPropagation)).To(gomega.BeTrue())
			for _, c := range []*recordingClient{auth, employee, task} {
				gomega.Expect(c.Token()).To(gomega.BeEmpty())
			}
			_, ok := holder.Current()
			gomega.Expect(ok).To(gomega.BeFalse())
		})
	})

	ginkgo.It("should clear all receivers on Clear", func() {
		gomega.Expect(holder.Set(ctx, credential.Credential{AccessToken: "a1"}, "login")).To(gomega.Succeed())

		gomega.Expect(holder.Clear(ctx, "logout")).To(gomega.Succeed())

		gomega.Expect(auth.Token()).To(gomega.BeEmpty())
		gomega.Expect(task.seen).To(gomega.Equal([]string{"a1", ""}))
	})

	ginkgo.It("should treat an empty credential as a clear", func() {
		gomega.Expect(holder.Set(ctx, credential.Credential{AccessToken: "a1"}, "login")).To(gomega.Succeed())
		gomega.Expect(holder.Set(ctx, credential.Credential{}, "logout")).To(gomega.Succeed())
		_, ok := holder.Current()
		gomega.Expect(ok).To(gomega.BeFalse())
	})

	ginkgo.It("should stop pushing to unsubscribed receivers", func() {
		holder.Unsubscribe("task")
		gomega.Expect(holder.Set(ctx, credential.Credential{AccessToken: "a2"}, "login")).To(gomega.Succeed())
		gomega.Expect(task.Token()).To(gomega.BeEmpty())
	})
})

var _ = ginkgo.Describe("Expiry", func() {
	ginkgo.It("should read the exp claim without a key", func() {
		exp := time.Now().Add(10 * time.Minute).Truncate(time.Second)
		got, err := credential.ExpiresAt(signed(exp))
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(got.Equal(exp)).To(gomega.BeTrue())
	})

	ginkgo.It("should report tokens inside the refresh window", func() {
		now := time.Now()
		c := credential.Credential{AccessToken: signed(now.Add(30 * time.Second))}
		gomega.Expect(c.ExpiresWithin(time.Minute, now)).To(gomega.BeTrue())
		gomega.Expect(c.ExpiresWithin(10*time.Second, now)).To(gomega.BeFalse())
	})

	ginkgo.It("should treat opaque tokens as fresh", func() {
		c := credential.Credential{AccessToken: "opaque"}
		gomega.Expect(c.ExpiresWithin(time.Hour, time.Now())).To(gomega.BeFalse())
		_, err := credential.ExpiresAt("opaque")
		gomega.Expect(err).To(gomega.HaveOccurred())
	})
})
