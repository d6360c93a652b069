package access_test

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/hr-portal/internal/access"
)

var _ = ginkgo.Describe("PermissionsFor", func() {
	ginkgo.It("should grant the profile completion set without a profile", func() {
		perms := access.PermissionsFor(nil, []access.RoleAssignment{{RoleCode: access.RoleAdmin, IsActive: true}}, access.LevelProfileCompletion)
		gomega.Expect(perms).To(gomega.ConsistOf("profile:complete", "profile:write", "documents:upload"))
	})

	ginkgo.It("should merge active role permissions with the level defaults", func() {
		profile := &access.EmployeeProfile{VerificationStatus: access.StatusVerified}
		roles := []access.RoleAssignment{
			{RoleCode: access.RoleEmployee, IsActive: true, Permissions: []string{"payslips:read", access.PermTasksRead}},
			{RoleCode: access.RoleManager, IsActive: false, Permissions: []string{access.PermTasksReview}},
		}

		perms := access.PermissionsFor(profile, roles, access.LevelVerified)

		gomega.Expect(perms).To(gomega.ContainElement("payslips:read"))
		gomega.Expect(perms).To(gomega.ContainElement(access.PermTasksSubmit))
		gomega.Expect(perms).ToNot(gomega.ContainElement(access.PermTasksReview))
	})

	ginkgo.It("should return a sorted set without duplicates", func() {
		profile := &access.EmployeeProfile{VerificationStatus: access.StatusVerified}
		roles := []access.RoleAssignment{
			{RoleCode: access.RoleManager, IsActive: true, Permissions: []string{access.PermTasksReview, access.PermTasksReview, ""}},
		}

		perms := access.PermissionsFor(profile, roles, access.LevelManager)

		seen := map[string]int{}
		for _, p := range perms {
			seen[p]++
		}
		for p, n := range seen {
			gomega.Expect(n).To(gomega.Equal(1), p)
		}
		gomega.Expect(perms).ToNot(gomega.ContainElement(""))
		gomega.Expect(perms).To(gomega.BeEquivalentTo(sortedCopy(perms)))
	})
})

var _ = ginkgo.Describe("DefaultPermissionChecker", func() {
	var checker access.PermissionChecker

	ginkgo.BeforeEach(func() {
		checker = access.NewPermissionChecker()
	})

	ginkgo.It("should detect review and assignment permissions", func() {
		manager := access.LevelPermissions[access.LevelManager]
		gomega.Expect(checker.CanAssignTasks(manager)).To(gomega.BeTrue())
		gomega.Expect(checker.CanReviewTasks(manager)).To(gomega.BeTrue())
		gomega.Expect(checker.CanReviewDocuments(manager)).To(gomega.BeFalse())
		gomega.Expect(checker.IsManager(manager)).To(gomega.BeTrue())
		gomega.Expect(checker.IsAdmin(manager)).To(gomega.BeFalse())
	})

	ginkgo.It("should treat admin defaults as admin", func() {
		admin := access.LevelPermissions[access.LevelAdmin]
		gomega.Expect(checker.IsAdmin(admin)).To(gomega.BeTrue())
		gomega.Expect(checker.CanReviewDocuments(admin)).To(gomega.BeTrue())
	})

	ginkgo.It("should deny everything for an empty permission list", func() {
		gomega.Expect(checker.HasPermission(nil, access.PermProfileRead)).To(gomega.BeFalse())
		gomega.Expect(checker.HasAnyPermission([]string{}, []string{access.PermTasksRead})).To(gomega.BeFalse())
	})
})

func sortedCopy(in []string) []string {
	out := append([]string{}, in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
