package discovery

import (
	"bytes"
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TerminalDecider", func() {
	var (
		answers  string
		out      bytes.Buffer
		part     UnknownPartContext
		decision Decision
		err      error
	)

	BeforeEach(func() {
		out.Reset()
		part = UnknownPartContext{
			PartNumber:     "ZZZ999",
			FirstSeenPrice: 9.99,
			Description:    "Mystery part",
			InvoiceNumber:  "INV-1001",
			InvoiceDate:    time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC),
			Occurrences:    2,
		}
	})

	JustBeforeEach(func() {
		decider := NewTerminalDecider(strings.NewReader(answers), &out)
		decision, err = decider.AskUnknownPart(context.Background(), part)
	})

	When("the operator adds with explicit details", func() {
		BeforeEach(func() {
			answers = "a\n12.50\nReplacement washer\nhardware\n"
		})

		It("should return a full add decision", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Action).To(Equal(ActionAdd))
			Expect(decision.AuthorizedPrice).To(Equal(12.50))
			Expect(decision.Description).To(Equal("Replacement washer"))
			Expect(decision.Category).To(Equal("hardware"))
		})

		It("should show the part context in the prompt", func() {
			Expect(out.String()).To(ContainSubstring("Unknown part ZZZ999"))
			Expect(out.String()).To(ContainSubstring("invoice INV-1001"))
		})
	})

	When("the operator accepts the defaults", func() {
		BeforeEach(func() {
			answers = "add\n\n\n\n"
		})

		It("should fall back to the first-seen price and description", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.AuthorizedPrice).To(Equal(9.99))
			Expect(decision.Description).To(Equal("Mystery part"))
		})
	})

	When("the operator types an invalid price first", func() {
		BeforeEach(func() {
			answers = "a\nnot-a-price\n$4.75\n\n\n"
		})

		It("should re-prompt until a positive amount is given", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.AuthorizedPrice).To(Equal(4.75))
			Expect(out.String()).To(ContainSubstring("positive dollar amount"))
		})
	})

	When("the operator skips", func() {
		BeforeEach(func() {
			answers = "s\n"
		})

		It("should return skip", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Action).To(Equal(ActionSkip))
		})
	})

	When("the operator defers", func() {
		BeforeEach(func() {
			answers = "defer\n"
		})

		It("should return defer", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Action).To(Equal(ActionDefer))
		})
	})

	When("the answer is unrecognized", func() {
		BeforeEach(func() {
			answers = "whatever\n"
		})

		It("should default to skip", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Action).To(Equal(ActionSkip))
		})
	})

	When("the input closes without an answer", func() {
		BeforeEach(func() {
			answers = ""
		})

		It("should return an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})
