package internal_test

import (
	"context"
	"errors"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/hr-portal/internal"
)

var _ = Describe("Caller", func() {
	It("is anonymous until a session is attached", func() {
		Expect(internal.CallerFromContext(context.Background()).Anonymous()).To(BeTrue())
	})

	It("accumulates the session and the user", func() {
		ctx := internal.ContextWithSessionID(context.Background(), "s1")
		ctx = internal.ContextWithUserID(ctx, "u1")

		Expect(internal.CallerFromContext(ctx)).To(Equal(internal.Caller{SessionID: "s1", UserID: "u1"}))
		Expect(internal.UserIDFromContext(ctx)).To(Equal("u1"))
	})

	It("defaults non positive timeouts", func() {
		ctx, cancel := internal.WithTimeout(context.Background(), 0)
		defer cancel()
		deadline, ok := ctx.Deadline()
		Expect(ok).To(BeTrue())
		Expect(time.Until(deadline)).To(BeNumerically(">", 4*time.Second))
	})
})

var _ = Describe("AppError", func() {
	It("renders the error envelope", func() {
		status, body := internal.ErrInsufficientAccess.ToHTTPResponse()
		Expect(status).To(Equal(http.StatusForbidden))
		Expect(body).To(Equal(internal.Response{Error: internal.ErrInsufficientAccess}))
	})

	It("is found through wrapping", func() {
		wrapped := errors.Join(errors.New("login"), internal.ErrTooManyLoginAttempts)
		appErr, ok := internal.IsAppError(wrapped)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodeTooManyLoginAttempts))
	})
})
