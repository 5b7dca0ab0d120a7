package validation

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Classify", func() {
	var (
		findings      []Finding
		critical      []Anomaly
		warning       []Anomaly
		informational []Anomaly
	)

	JustBeforeEach(func() {
		critical, warning, informational = Classify(validRecord(), findings, &seqIDGenerator{})
	})

	When("there are findings of every severity", func() {
		BeforeEach(func() {
			findings = []Finding{
				{Severity: SeverityWarning, Type: AnomalyBusinessRule},
				{Severity: SeverityCritical, Type: AnomalyMissingPart},
				{Severity: SeverityInformational, Type: AnomalyBusinessRule},
				{Severity: SeverityCritical, Type: AnomalyFormat},
			}
		})

		It("should partition them by severity preserving order", func() {
			Expect(critical).To(HaveLen(2))
			Expect(critical[0].Type).To(Equal(AnomalyMissingPart))
			Expect(critical[1].Type).To(Equal(AnomalyFormat))
			Expect(warning).To(HaveLen(1))
			Expect(informational).To(HaveLen(1))
		})

		It("should assign each anomaly a distinct id", func() {
			ids := map[string]bool{}
			for _, a := range append(append(critical, warning...), informational...) {
				ids[a.ID] = true
			}
			Expect(ids).To(HaveLen(4))
		})

		It("should stamp the invoice context on every anomaly", func() {
			Expect(critical[0].InvoiceNumber).To(Equal("INV-1001"))
			Expect(critical[0].InvoiceDate).NotTo(BeZero())
		})
	})

	When("a finding is valid", func() {
		BeforeEach(func() {
			findings = []Finding{
				{Valid: true, Severity: SeverityInformational, Type: AnomalyPriceMatch},
				{Severity: SeverityWarning, Type: AnomalyBusinessRule},
			}
		})

		It("should not become an anomaly", func() {
			Expect(critical).To(BeEmpty())
			Expect(warning).To(HaveLen(1))
			Expect(informational).To(BeEmpty())
		})
	})

	When("there are no findings", func() {
		BeforeEach(func() {
			findings = nil
		})

		It("should return empty buckets", func() {
			Expect(critical).To(BeEmpty())
			Expect(warning).To(BeEmpty())
			Expect(informational).To(BeEmpty())
		})
	})
})
