package transport_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/hr-portal/internal"
	"github.com/frahmantamala/hr-portal/internal/transport"
	"github.com/frahmantamala/hr-portal/internal/transport/httpclient"
)

func TestTransport(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Transport Suite")
}

var _ = Describe("ToAppError", func() {
	upstream := func(status int, body string) error {
		return &httpclient.HTTPError{Method: http.MethodGet, URL: "http://task.internal/api/v1/tasks/1", StatusCode: status, Body: []byte(body)}
	}

	DescribeTable("maps collaborator statuses",
		func(status int, want int, code apperrors.ErrorCode) {
			appErr := transport.ToAppError(upstream(status, `{"message":"nope"}`))
			Expect(appErr.StatusCode).To(Equal(want))
			Expect(appErr.Code).To(Equal(code))
		},
		Entry("bad request", http.StatusBadRequest, http.StatusBadRequest, apperrors.ErrCodeCollaboratorRejected),
		Entry("unauthorized", http.StatusUnauthorized, http.StatusUnauthorized, apperrors.ErrCodeNotAuthenticated),
		Entry("forbidden", http.StatusForbidden, http.StatusForbidden, apperrors.ErrCodeInsufficientPerms),
		Entry("not found", http.StatusNotFound, http.StatusNotFound, apperrors.ErrCodeResourceNotFound),
		Entry("server error", http.StatusInternalServerError, http.StatusBadGateway, apperrors.ErrCodeCollaboratorDown),
	)

	It("keeps the collaborator's message", func() {
		Expect(transport.ToAppError(upstream(http.StatusNotFound, `{"message":"task 1 not found"}`)).Message).
			To(Equal("task 1 not found"))
	})

	It("treats unreachable collaborators as unavailable", func() {
		err := &url.Error{Op: "Get", URL: "http://task.internal", Err: errors.New("connection refused")}
		Expect(transport.ToAppError(err).Code).To(Equal(apperrors.ErrCodeCollaboratorDown))
	})

	It("passes portal errors through", func() {
		Expect(transport.ToAppError(apperrors.ErrSessionExpired)).To(BeIdenticalTo(apperrors.ErrSessionExpired))
	})
})

var _ = Describe("BaseHandler", func() {
	h := transport.NewBaseHandler(nil)

	It("writes the error envelope", func() {
		rec := httptest.NewRecorder()
		h.WriteAppError(rec, apperrors.ErrInsufficientAccess)

		Expect(rec.Code).To(Equal(http.StatusForbidden))
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.NewDecoder(rec.Body).Decode(&body)).To(Succeed())
		Expect(body.Error.Code).To(Equal(string(apperrors.ErrCodeInsufficientAccess)))
	})

	It("rejects malformed bodies as validation errors", func() {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
		var dst map[string]any
		err := h.DecodeJSON(req, &dst)
		appErr, ok := apperrors.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.StatusCode).To(Equal(http.StatusBadRequest))
	})
})
