package cmd

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const minimalConfig = `
services:
  auth: http://auth.internal
  employee: http://employee.internal
  department: http://department.internal
  task: http://task.internal
  document: http://document.internal
`

var _ = Describe("loadConfig", func() {
	var dir string

	BeforeEach(func() {
		GinkgoT().Setenv("APP_ENV", "")
		GinkgoT().Setenv("DOCKER_ENV", "")
		dir = GinkgoT().TempDir()
	})

	write := func(body string) {
		Expect(os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600)).To(Succeed())
	}

	It("fills defaults a development file leaves out", func() {
		write(minimalConfig)

		cfg, err := loadConfig(dir)
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Env).To(Equal("development"))
		Expect(cfg.Session.TokenStore).To(Equal("memory"))
		Expect(cfg.Security.CookieName).To(Equal("hr_portal_session"))
		Expect(cfg.Session.RefreshSkew.Seconds()).To(BeNumerically("==", 60))
	})

	It("lets ENV_ variables override file keys", func() {
		write(minimalConfig)
		GinkgoT().Setenv("ENV_SERVICES_AUTH", "http://auth.override")

		cfg, err := loadConfig(dir)
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Services.Auth).To(Equal("http://auth.override"))
	})

	It("rejects a file that fails validation", func() {
		write(minimalConfig + "session:\n  token_store: etcd\n")

		_, err := loadConfig(dir)
		Expect(err).To(MatchError(ContainSubstring("unknown token_store")))
	})

	It("fails without a config file", func() {
		_, err := loadConfig(dir)
		Expect(err).To(MatchError(ContainSubstring("error reading config")))
	})
})

var _ = Describe("migrationCommand", func() {
	AfterEach(func() {
		migrateRollback = false
	})

	It("defaults to up", func() {
		Expect(migrationCommand(nil)).To(Equal("up"))
	})

	It("maps --rollback to down", func() {
		migrateRollback = true
		Expect(migrationCommand(nil)).To(Equal("down"))
	})

	It("prefers an explicit command", func() {
		migrateRollback = true
		Expect(migrationCommand([]string{"status"})).To(Equal("status"))
	})

	It("rejects unknown commands", func() {
		Expect(migrateCmd.Args(migrateCmd, []string{"redo"})).ToNot(Succeed())
		Expect(migrateCmd.Args(migrateCmd, []string{"version"})).To(Succeed())
	})
})
