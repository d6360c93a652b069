package access_test

import (
	"encoding/json"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/hr-portal/internal/access"
)

func TestAccess(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Access Module Suite")
}

func profileWith(status access.VerificationStatus) *access.EmployeeProfile {
	return &access.EmployeeProfile{VerificationStatus: status, ProfileStatus: access.ProfileComplete}
}

func role(code access.RoleCode, active bool) access.RoleAssignment {
	return access.RoleAssignment{RoleCode: code, IsActive: active}
}

var allStatuses = []access.VerificationStatus{
	access.StatusNotStarted,
	access.StatusNotSubmitted,
	access.StatusPendingDetailsReview,
	access.StatusPendingDocumentsReview,
	access.StatusPendingRoleAssignment,
	access.StatusPendingFinalApproval,
	access.StatusVerified,
	access.StatusRejected,
}

var _ = ginkgo.Describe("DeriveAccessLevel", func() {
	ginkgo.Context("when no employee profile exists", func() {
		ginkgo.It("should return PROFILE_COMPLETION for any role set", func() {
			roleSets := [][]access.RoleAssignment{
				nil,
				{role(access.RoleAdmin, true)},
				{role(access.RoleManager, true), role(access.RoleEmployee, true)},
				{role(access.RoleNewcomer, false)},
			}
			for _, roles := range roleSets {
				gomega.Expect(access.DeriveAccessLevel(nil, roles)).To(gomega.Equal(access.LevelProfileCompletion))
			}
		})
	})

	ginkgo.Context("when an active ADMIN assignment exists", func() {
		ginkgo.It("should return ADMIN regardless of verification status", func() {
			roles := []access.RoleAssignment{role(access.RoleEmployee, true), role(access.RoleAdmin, true)}
			for _, status := range allStatuses {
				gomega.Expect(access.DeriveAccessLevel(profileWith(status), roles)).To(gomega.Equal(access.LevelAdmin), string(status))
			}
		})

		ginkgo.It("should ignore an inactive ADMIN assignment", func() {
			roles := []access.RoleAssignment{role(access.RoleAdmin, false)}
			gomega.Expect(access.DeriveAccessLevel(profileWith(access.StatusRejected), roles)).To(gomega.Equal(access.LevelNewcomer))
		})
	})

	ginkgo.DescribeTable("verification driven levels without ADMIN",
		func(status access.VerificationStatus, roles []access.RoleAssignment, expected access.AccessLevel) {
			gomega.Expect(access.DeriveAccessLevel(profileWith(status), roles)).To(gomega.Equal(expected))
		},
		ginkgo.Entry("verified manager", access.StatusVerified, []access.RoleAssignment{role(access.RoleManager, true)}, access.LevelManager),
		ginkgo.Entry("verified with inactive manager", access.StatusVerified, []access.RoleAssignment{role(access.RoleManager, false)}, access.LevelVerified),
		ginkgo.Entry("verified employee", access.StatusVerified, []access.RoleAssignment{role(access.RoleEmployee, true)}, access.LevelVerified),
		ginkgo.Entry("verified without roles", access.StatusVerified, nil, access.LevelVerified),
		ginkgo.Entry("not started", access.StatusNotStarted, nil, access.LevelProfileCompletion),
		ginkgo.Entry("not submitted", access.StatusNotSubmitted, []access.RoleAssignment{role(access.RoleManager, true)}, access.LevelProfileCompletion),
		ginkgo.Entry("pending details", access.StatusPendingDetailsReview, nil, access.LevelNewcomer),
		ginkgo.Entry("pending documents", access.StatusPendingDocumentsReview, nil, access.LevelNewcomer),
		ginkgo.Entry("pending role assignment", access.StatusPendingRoleAssignment, []access.RoleAssignment{role(access.RoleManager, true)}, access.LevelNewcomer),
		ginkgo.Entry("pending final approval", access.StatusPendingFinalApproval, nil, access.LevelNewcomer),
		ginkgo.Entry("rejected", access.StatusRejected, []access.RoleAssignment{role(access.RoleEmployee, true)}, access.LevelNewcomer),
		ginkgo.Entry("unknown status", access.VerificationStatus("ON_HOLD"), nil, access.LevelNewcomer),
	)

	ginkgo.It("should be deterministic across repeated calls", func() {
		profile := profileWith(access.StatusVerified)
		roles := []access.RoleAssignment{role(access.RoleManager, true)}
		first := access.DeriveAccessLevel(profile, roles)
		for i := 0; i < 5; i++ {
			gomega.Expect(access.DeriveAccessLevel(profile, roles)).To(gomega.Equal(first))
		}
	})
})

var _ = ginkgo.Describe("AccessLevel", func() {
	ginkgo.It("should be ordered from PROFILE_COMPLETION to ADMIN", func() {
		levels := access.Levels()
		for i := 1; i < len(levels); i++ {
			gomega.Expect(levels[i].AtLeast(levels[i-1])).To(gomega.BeTrue())
			gomega.Expect(levels[i-1].AtLeast(levels[i])).To(gomega.BeFalse())
		}
	})

	ginkgo.It("should marshal to its upper-case name", func() {
		out, err := json.Marshal(map[string]access.AccessLevel{"level": access.LevelManager})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(string(out)).To(gomega.Equal(`{"level":"MANAGER"}`))

		var decoded struct {
			Level access.AccessLevel `json:"level"`
		}
		gomega.Expect(json.Unmarshal([]byte(`{"level":"newcomer"}`), &decoded)).To(gomega.Succeed())
		gomega.Expect(decoded.Level).To(gomega.Equal(access.LevelNewcomer))
	})

	ginkgo.It("should reject unknown level names", func() {
		_, err := access.ParseAccessLevel("SUPERUSER")
		gomega.Expect(err).To(gomega.HaveOccurred())
	})
})

var _ = ginkgo.Describe("Profile helpers", func() {
	ginkgo.It("should report NOT_CREATED and NOT_STARTED without a profile", func() {
		gomega.Expect(access.ProfileStatusOf(nil)).To(gomega.Equal(access.ProfileNotCreated))
		gomega.Expect(access.VerificationStatusOf(nil)).To(gomega.Equal(access.StatusNotStarted))
	})

	ginkgo.It("should fall back to the completion percentage when the flag is missing", func() {
		gomega.Expect(access.ProfileStatusOf(&access.EmployeeProfile{ProfileCompletionPercentage: 100})).To(gomega.Equal(access.ProfileComplete))
		gomega.Expect(access.ProfileStatusOf(&access.EmployeeProfile{ProfileCompletionPercentage: 40})).To(gomega.Equal(access.ProfileIncomplete))
	})

	ginkgo.It("should treat COMPLETE and READY_FOR_VERIFICATION as ready", func() {
		gomega.Expect(access.ProfileComplete.ReadyForVerification()).To(gomega.BeTrue())
		gomega.Expect(access.ProfileReadyForVerification.ReadyForVerification()).To(gomega.BeTrue())
		gomega.Expect(access.ProfileIncomplete.ReadyForVerification()).To(gomega.BeFalse())
	})

	ginkgo.It("should list active roles once", func() {
		roles := []access.RoleAssignment{
			role(access.RoleEmployee, true),
			role(access.RoleManager, false),
			role(access.RoleEmployee, true),
		}
		gomega.Expect(access.ActiveRoles(roles)).To(gomega.Equal([]access.RoleCode{access.RoleEmployee}))
	})
})
