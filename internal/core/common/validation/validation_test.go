package validation_test

import (
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	errors "github.com/frahmantamala/hr-portal/internal"
	"github.com/frahmantamala/hr-portal/internal/core/common/validation"
)

func TestValidation(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Validation Suite")
}

func fieldErrors(err *errors.AppError) []errors.ValidationError {
	return err.Details.(errors.ValidationErrors).Errors
}

var _ = ginkgo.Describe("ValidationBuilder", func() {
	ginkgo.It("should pass valid input", func() {
		v := validation.NewValidator()
		v.Field("email", "jane@example.com").Required().Email()
		v.Field("password", "s3cretpass").Required().MinLength(8).MaxLength(72)
		gomega.Expect(v.Validate()).To(gomega.BeNil())
	})

	ginkgo.It("should collect the first failure of every field", func() {
		v := validation.NewValidator()
		v.Field("email", "not-an-email").Required().Email()
		v.Field("password", "").Required().MinLength(8)

		err := v.Validate()

		gomega.Expect(err).ToNot(gomega.BeNil())
		gomega.Expect(err.StatusCode).To(gomega.Equal(400))
		details := fieldErrors(err)
		gomega.Expect(details).To(gomega.HaveLen(2))
		gomega.Expect(details[0].Code).To(gomega.Equal(string(errors.ErrCodeInvalidEmail)))
		gomega.Expect(details[1].Message).To(gomega.Equal("password is required"))
	})

	ginkgo.It("should reject values outside the allowed set", func() {
		v := validation.NewValidator()
		v.Field("decision", "maybe").Required().OneOf("APPROVED", "REJECTED")

		err := v.Validate()

		gomega.Expect(err).ToNot(gomega.BeNil())
		gomega.Expect(fieldErrors(err)[0].Field).To(gomega.Equal("decision"))
	})

	ginkgo.It("should flag overlong values with FIELD_TOO_LONG", func() {
		v := validation.NewValidator()
		v.Field("comment", "abcdef").MaxLength(3)

		gomega.Expect(fieldErrors(v.Validate())[0].Code).To(gomega.Equal(string(errors.ErrCodeFieldTooLong)))
	})
})
