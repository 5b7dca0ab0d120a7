package validation

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"invoice-audit/internal/invoice"
)

func findingsOfType(findings []Finding, t AnomalyType) []Finding {
	matched := []Finding{}
	for _, f := range findings {
		if f.Type == t {
			matched = append(matched, f)
		}
	}
	return matched
}

var _ = Describe("Runner", func() {
	var (
		rec    *invoice.Record
		source *mockPartSource
		runner *Runner
		result *Result
		err    error
	)

	BeforeEach(func() {
		rec = validRecord()
		source = newMockPartSource()
		source.add("GP0171NAVY", 15.50)
		runner = NewRunnerWithDeps(source, DefaultConfig(), &seqIDGenerator{}, &mockTimeSource{now: testNow})
	})

	JustBeforeEach(func() {
		result, err = runner.Run(rec)
	})

	When("the record passes every phase", func() {
		It("should produce a valid result", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Valid).To(BeTrue())
			Expect(result.ProcessingSuccessful).To(BeTrue())
			Expect(result.Critical).To(BeEmpty())
			Expect(result.Warning).To(BeEmpty())
		})

		It("should retain the exact price match as a valid finding", func() {
			Expect(result.Informational).To(BeEmpty())
			matches := findingsOfType(result.Findings, AnomalyPriceMatch)
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].Valid).To(BeTrue())
		})
	})

	When("the data quality phase fails", func() {
		BeforeEach(func() {
			rec.InvoiceNumber = ""
			// A later-phase problem that must never be reached.
			rec.LineItems[0].PartNumber = "ZZZ999"
		})

		It("should stop before the parts lookup", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Valid).To(BeFalse())
			for _, f := range result.Findings {
				Expect(f.Phase).To(Equal(PhaseDataQuality))
			}
		})
	})

	When("a part is unknown and no recovery is configured", func() {
		BeforeEach(func() {
			rec.LineItems = append(rec.LineItems, invoice.LineItem{
				PartNumber: "ZZZ999", UnitPrice: 9.99, Quantity: 1, RawLineIndex: 5,
			})
		})

		It("should fail the invoice with the missing part retained", func() {
			Expect(result.Valid).To(BeFalse())
			Expect(result.Critical).To(HaveLen(1))
			Expect(result.Critical[0].Type).To(Equal(AnomalyMissingPart))
		})

		It("should not run the later phases", func() {
			for _, f := range result.Findings {
				Expect(f.Phase).NotTo(Equal(PhasePriceComparison))
				Expect(f.Phase).NotTo(Equal(PhaseBusinessRules))
			}
		})
	})

	When("a recovery action resolves the unknown part", func() {
		BeforeEach(func() {
			rec.LineItems = append(rec.LineItems, invoice.LineItem{
				PartNumber: "ZZZ999", UnitPrice: 9.99, Quantity: 1, RawLineIndex: 5,
			})
			runner.UseRecovery(PhasePartsLookup, func(r *invoice.Record, criticals []Finding) (bool, []Finding) {
				source.add("ZZZ999", 9.99)
				return true, nil
			})
		})

		It("should continue into the later phases", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Valid).To(BeTrue())
			// Both parts now match exactly.
			Expect(findingsOfType(result.Findings, AnomalyPriceMatch)).To(HaveLen(2))
		})
	})

	When("a recovery action keeps the finding", func() {
		BeforeEach(func() {
			rec.LineItems[0].PartNumber = "ZZZ999"
			runner.UseRecovery(PhasePartsLookup, func(r *invoice.Record, criticals []Finding) (bool, []Finding) {
				return true, criticals
			})
		})

		It("should fail the invoice but still run the later phases", func() {
			Expect(result.Valid).To(BeFalse())
			Expect(result.Critical).To(HaveLen(1))
		})
	})

	When("a recovery action reports it could not handle the findings", func() {
		BeforeEach(func() {
			rec.LineItems[0].PartNumber = "ZZZ999"
			runner.UseRecovery(PhasePartsLookup, func(r *invoice.Record, criticals []Finding) (bool, []Finding) {
				return false, criticals
			})
		})

		It("should stop after the lookup phase", func() {
			Expect(result.Valid).To(BeFalse())
			for _, f := range result.Findings {
				Expect(f.Phase).NotTo(Equal(PhasePriceComparison))
			}
		})
	})

	When("the store fails", func() {
		BeforeEach(func() {
			source.findErr = errors.New("store unreachable")
		})

		It("should abort the run", func() {
			Expect(err).To(HaveOccurred())
			Expect(result).To(BeNil())
		})
	})
})
