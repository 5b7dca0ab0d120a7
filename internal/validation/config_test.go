package validation

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func writeConfig(content string) string {
	path := filepath.Join(GinkgoT().TempDir(), "config.toml")
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	return path
}

var _ = Describe("LoadConfig", func() {
	When("the file overrides a subset of keys", func() {
		It("should keep defaults for the rest", func() {
			cfg, err := LoadConfig(writeConfig(`critical_percent = 25.0
max_reasonable_price = 2500.0
`))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.CriticalPercent).To(Equal(25.0))
			Expect(cfg.MaxReasonablePrice).To(Equal(2500.0))
			Expect(cfg.CriticalAbsolute).To(Equal(5.00))
			Expect(cfg.PartNumberMaxLength).To(Equal(20))
		})
	})

	When("the file is empty", func() {
		It("should return the defaults", func() {
			cfg, err := LoadConfig(writeConfig(""))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(DefaultConfig()))
		})
	})

	When("the thresholds are inconsistent", func() {
		It("should reject a critical percent below the warning percent", func() {
			_, err := LoadConfig(writeConfig("critical_percent = 2.0\n"))
			Expect(err).To(MatchError(ContainSubstring("critical_percent")))
		})

		It("should reject a negative tolerance", func() {
			_, err := LoadConfig(writeConfig("price_tolerance = -0.5\n"))
			Expect(err).To(MatchError(ContainSubstring("price_tolerance")))
		})
	})

	When("the file does not exist", func() {
		It("should return an error", func() {
			_, err := LoadConfig(filepath.Join(GinkgoT().TempDir(), "missing.toml"))
			Expect(err).To(HaveOccurred())
		})
	})

	When("the file is not valid TOML", func() {
		It("should return an error", func() {
			_, err := LoadConfig(writeConfig("not toml ==="))
			Expect(err).To(HaveOccurred())
		})
	})
})
