package validation

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"invoice-audit/internal/invoice"
)

func writeRules(content string) string {
	path := filepath.Join(GinkgoT().TempDir(), "rules.yaml")
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	return path
}

var _ = Describe("LoadRules", func() {
	When("the file is well-formed", func() {
		It("should load the rules", func() {
			rules, err := LoadRules(writeRules(`rules:
  - name: expensive-line
    severity: WARNING
    message: line total exceeds 500
    when:
      ">": [{"var": "line_total"}, 500]
`))
			Expect(err).NotTo(HaveOccurred())
			Expect(rules.Len()).To(Equal(1))
		})
	})

	When("a rule has no severity", func() {
		It("should default to WARNING", func() {
			rules, err := LoadRules(writeRules(`rules:
  - name: any-bracket
    when:
      "==": [{"var": "part_number"}, "BRKT-204"]
`))
			Expect(err).NotTo(HaveOccurred())
			Expect(rules.Len()).To(Equal(1))
		})
	})

	When("a rule claims CRITICAL severity", func() {
		It("should be rejected", func() {
			_, err := LoadRules(writeRules(`rules:
  - name: overreach
    severity: CRITICAL
    when:
      ">": [{"var": "unit_price"}, 1]
`))
			Expect(err).To(MatchError(ContainSubstring("cannot be CRITICAL")))
		})
	})

	When("a rule has no name", func() {
		It("should be rejected", func() {
			_, err := LoadRules(writeRules(`rules:
  - severity: WARNING
    when:
      ">": [{"var": "unit_price"}, 1]
`))
			Expect(err).To(MatchError(ContainSubstring("no name")))
		})
	})

	When("a rule has no condition", func() {
		It("should be rejected", func() {
			_, err := LoadRules(writeRules(`rules:
  - name: empty
`))
			Expect(err).To(MatchError(ContainSubstring("no condition")))
		})
	})

	When("the file does not exist", func() {
		It("should return an error", func() {
			_, err := LoadRules(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("RuleSet", func() {
	Describe("Evaluate", func() {
		var (
			rules    *RuleSet
			rec      *invoice.Record
			findings []Finding
		)

		BeforeEach(func() {
			var err error
			rules, err = LoadRules(writeRules(`rules:
  - name: expensive-line
    severity: WARNING
    message: line total exceeds 100
    when:
      ">": [{"var": "line_total"}, 100]
  - name: noted-part
    severity: INFORMATIONAL
    message: flagged part billed
    when:
      "==": [{"var": "part_number"}, "BRKT-204"]
`))
			Expect(err).NotTo(HaveOccurred())

			rec = validRecord()
		})

		JustBeforeEach(func() {
			findings = rules.Evaluate(rec)
		})

		When("no rule condition is met", func() {
			It("should produce no findings", func() {
				Expect(findings).To(BeEmpty())
			})
		})

		When("a line total trips a rule", func() {
			BeforeEach(func() {
				rec.LineItems[0].UnitPrice = 60.00
				rec.LineItems[0].Quantity = 2
			})

			It("should produce a warning naming the rule", func() {
				Expect(findings).To(HaveLen(1))
				Expect(findings[0].Severity).To(Equal(SeverityWarning))
				Expect(findings[0].Type).To(Equal(AnomalyBusinessRule))
				Expect(findings[0].Details["rule"]).To(Equal("expensive-line"))
			})
		})

		When("a part number trips an informational rule", func() {
			BeforeEach(func() {
				rec.LineItems = append(rec.LineItems, invoice.LineItem{
					PartNumber: "BRKT-204", UnitPrice: 4.25, Quantity: 10, RawLineIndex: 5,
				})
			})

			It("should produce an informational finding on that line", func() {
				Expect(findings).To(HaveLen(1))
				Expect(findings[0].Severity).To(Equal(SeverityInformational))
				Expect(findings[0].LineIndex).To(Equal(5))
			})
		})
	})
})
