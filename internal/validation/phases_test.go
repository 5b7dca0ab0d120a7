package validation

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"invoice-audit/internal/invoice"
)

var _ = Describe("DataQuality", func() {
	var (
		rec      *invoice.Record
		findings []Finding
	)

	BeforeEach(func() {
		rec = validRecord()
	})

	JustBeforeEach(func() {
		findings = DataQuality(rec)
	})

	When("the record is well-formed", func() {
		It("should produce no findings", func() {
			Expect(findings).To(BeEmpty())
		})
	})

	When("the invoice number is empty", func() {
		BeforeEach(func() {
			rec.InvoiceNumber = ""
		})

		It("should produce one critical data quality finding", func() {
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Severity).To(Equal(SeverityCritical))
			Expect(findings[0].Type).To(Equal(AnomalyDataQuality))
			Expect(findings[0].Field).To(Equal("invoice_number"))
		})
	})

	When("the invoice number has illegal characters", func() {
		BeforeEach(func() {
			rec.InvoiceNumber = "INV 1001!"
		})

		It("should produce one critical finding", func() {
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Type).To(Equal(AnomalyDataQuality))
		})
	})

	When("the date is missing", func() {
		BeforeEach(func() {
			rec.InvoiceDate = time.Time{}
		})

		It("should produce one critical finding on the date field", func() {
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Field).To(Equal("invoice_date"))
		})
	})

	When("there are no line items", func() {
		BeforeEach(func() {
			rec.LineItems = nil
		})

		It("should produce one critical finding", func() {
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Field).To(Equal("line_items"))
		})
	})

	When("a line item has several problems", func() {
		BeforeEach(func() {
			rec.LineItems = []invoice.LineItem{
				{PartNumber: "", UnitPrice: 0, Quantity: 0, RawLineIndex: 4},
			}
		})

		It("should produce one finding per problem", func() {
			Expect(findings).To(HaveLen(3))
		})

		It("should scope each finding to the source line", func() {
			for _, f := range findings {
				Expect(f.LineIndex).To(Equal(4))
			}
		})
	})
})

var _ = Describe("FormatStructure", func() {
	var (
		rec      *invoice.Record
		findings []Finding
	)

	BeforeEach(func() {
		rec = validRecord()
	})

	JustBeforeEach(func() {
		findings = FormatStructure(rec)
	})

	When("the trailer is canonical", func() {
		It("should produce no findings", func() {
			Expect(findings).To(BeEmpty())
		})
	})

	When("the trailer has only three lines", func() {
		BeforeEach(func() {
			rec.Trailer = []invoice.TrailerLine{
				{Label: "SUBTOTAL", Value: 31.00},
				{Label: "TAX", Value: 2.48},
				{Label: "TOTAL", Value: 37.98},
			}
		})

		It("should produce exactly one critical line count violation", func() {
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Severity).To(Equal(SeverityCritical))
			Expect(findings[0].Type).To(Equal(AnomalyLineCount))
		})
	})

	When("the trailer has four lines in the wrong order", func() {
		BeforeEach(func() {
			rec.Trailer = []invoice.TrailerLine{
				{Label: "SUBTOTAL", Value: 31.00},
				{Label: "TAX", Value: 2.48},
				{Label: "FREIGHT", Value: 4.50},
				{Label: "TOTAL", Value: 37.98},
			}
		})

		It("should produce exactly one critical format violation", func() {
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Severity).To(Equal(SeverityCritical))
			Expect(findings[0].Type).To(Equal(AnomalyFormat))
		})

		It("should report expected and actual labels", func() {
			Expect(findings[0].Details).To(HaveKey("expected_labels"))
			Expect(findings[0].Details).To(HaveKey("actual_labels"))
		})
	})

	When("the trailer has an unknown label", func() {
		BeforeEach(func() {
			rec.Trailer[1] = invoice.TrailerLine{Label: "HANDLING", Value: 4.50}
		})

		It("should produce one format violation", func() {
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Type).To(Equal(AnomalyFormat))
		})
	})
})

var _ = Describe("PartsLookup", func() {
	var (
		rec      *invoice.Record
		source   *mockPartSource
		findings []Finding
		err      error
	)

	BeforeEach(func() {
		rec = validRecord()
		source = newMockPartSource()
		source.add("GP0171NAVY", 15.50)
	})

	JustBeforeEach(func() {
		findings, err = PartsLookup(rec, source)
	})

	When("every part is known", func() {
		It("should produce no findings and no error", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(findings).To(BeEmpty())
		})
	})

	When("a part is unknown", func() {
		BeforeEach(func() {
			rec.LineItems = append(rec.LineItems, invoice.LineItem{
				PartNumber: "ZZZ999", Description: "Mystery part", UnitPrice: 9.99, Quantity: 1, RawLineIndex: 5,
			})
		})

		It("should produce one critical missing part finding", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Severity).To(Equal(SeverityCritical))
			Expect(findings[0].Type).To(Equal(AnomalyMissingPart))
		})

		It("should carry the discovery context in the details", func() {
			Expect(findings[0].Details["part_number"]).To(Equal("ZZZ999"))
			Expect(findings[0].Details["first_seen_price"]).To(Equal(9.99))
			Expect(findings[0].Details["occurrences"]).To(Equal(1))
		})
	})

	When("the same unknown part appears on several lines", func() {
		BeforeEach(func() {
			rec.LineItems = []invoice.LineItem{
				{PartNumber: "ZZZ999", UnitPrice: 9.99, Quantity: 1, RawLineIndex: 4},
				{PartNumber: "ZZZ999", UnitPrice: 9.99, Quantity: 3, RawLineIndex: 5},
			}
		})

		It("should produce a single finding with the occurrence count", func() {
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Details["occurrences"]).To(Equal(2))
		})
	})

	When("the store fails", func() {
		BeforeEach(func() {
			source.findErr = errors.New("store unreachable")
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
			Expect(findings).To(BeNil())
		})
	})
})

var _ = Describe("PriceComparison", func() {
	var (
		rec      *invoice.Record
		source   *mockPartSource
		cfg      Config
		findings []Finding
		err      error
	)

	BeforeEach(func() {
		rec = validRecord()
		source = newMockPartSource()
		cfg = DefaultConfig()
	})

	JustBeforeEach(func() {
		findings, err = PriceComparison(rec, source, cfg)
	})

	setPrice := func(invoicePrice, authorizedPrice float64) {
		rec.LineItems[0].UnitPrice = invoicePrice
		source.add("GP0171NAVY", authorizedPrice)
	}

	When("the price matches exactly", func() {
		BeforeEach(func() {
			setPrice(15.50, 15.50)
		})

		It("should produce one valid informational match", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Valid).To(BeTrue())
			Expect(findings[0].Severity).To(Equal(SeverityInformational))
			Expect(findings[0].Type).To(Equal(AnomalyPriceMatch))
		})
	})

	When("the difference is 1.25 at about 8 percent", func() {
		BeforeEach(func() {
			setPrice(16.75, 15.50)
		})

		It("should produce a warning discrepancy", func() {
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Severity).To(Equal(SeverityWarning))
			Expect(findings[0].Type).To(Equal(AnomalyPriceMismatch))
		})
	})

	When("the difference is 1.01, under 5.00 and under 20 percent", func() {
		BeforeEach(func() {
			setPrice(17.01, 16.00)
		})

		It("should produce a warning discrepancy", func() {
			Expect(findings[0].Severity).To(Equal(SeverityWarning))
		})
	})

	When("the difference is exactly 5.00 at exactly 20 percent", func() {
		BeforeEach(func() {
			setPrice(30.00, 25.00)
		})

		It("should escalate to critical", func() {
			Expect(findings[0].Severity).To(Equal(SeverityCritical))
			Expect(findings[0].Type).To(Equal(AnomalyPriceMismatch))
		})
	})

	When("the percentage is small but the absolute difference is large", func() {
		BeforeEach(func() {
			setPrice(510.00, 500.00) // 2% but $10 off
		})

		It("should escalate to critical on the absolute condition alone", func() {
			Expect(findings[0].Severity).To(Equal(SeverityCritical))
		})
	})

	When("the difference is small but over tolerance", func() {
		BeforeEach(func() {
			setPrice(15.55, 15.50)
		})

		It("should still be a warning", func() {
			Expect(findings[0].Severity).To(Equal(SeverityWarning))
		})
	})

	When("the part is unknown", func() {
		It("should produce no findings for it", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(findings).To(BeEmpty())
		})
	})

	When("the store fails", func() {
		BeforeEach(func() {
			source.findErr = errors.New("store unreachable")
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("BusinessRules", func() {
	var (
		rec      *invoice.Record
		cfg      Config
		findings []Finding
	)

	BeforeEach(func() {
		rec = validRecord()
		cfg = DefaultConfig()
	})

	JustBeforeEach(func() {
		findings = BusinessRules(rec, cfg, testNow, nil)
	})

	When("everything is sane", func() {
		It("should produce no findings", func() {
			Expect(findings).To(BeEmpty())
		})
	})

	When("a part number is too short", func() {
		BeforeEach(func() {
			rec.LineItems[0].PartNumber = "A"
		})

		It("should produce a warning", func() {
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Severity).To(Equal(SeverityWarning))
			Expect(findings[0].Type).To(Equal(AnomalyBusinessRule))
		})
	})

	When("a part number has illegal characters", func() {
		BeforeEach(func() {
			rec.LineItems[0].PartNumber = "GP/171"
		})

		It("should produce a warning", func() {
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Severity).To(Equal(SeverityWarning))
		})
	})

	When("a price is unreasonably low", func() {
		BeforeEach(func() {
			rec.LineItems[0].UnitPrice = 0.01
		})

		It("should produce a critical finding", func() {
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Severity).To(Equal(SeverityCritical))
		})
	})

	When("a price is unusually high", func() {
		BeforeEach(func() {
			rec.LineItems[0].UnitPrice = 1500.00
		})

		It("should produce a warning", func() {
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Severity).To(Equal(SeverityWarning))
		})
	})

	When("the invoice date is far in the future", func() {
		BeforeEach(func() {
			rec.InvoiceDate = testNow.AddDate(0, 2, 0)
		})

		It("should produce a warning", func() {
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Severity).To(Equal(SeverityWarning))
			Expect(findings[0].Field).To(Equal("invoice_date"))
		})
	})

	When("the invoice date is over a year old", func() {
		BeforeEach(func() {
			rec.InvoiceDate = testNow.AddDate(-2, 0, 0)
		})

		It("should produce an informational note", func() {
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Severity).To(Equal(SeverityInformational))
		})
	})
})
