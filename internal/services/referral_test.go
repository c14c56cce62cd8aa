package services_test

import (
	"strings"

	"memedrop/internal/services"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("GenerateRefCode", func() {
	It("should produce codes of the requested length", func() {
		code, err := services.GenerateRefCode(services.REF_CODE_LENGTH)
		Expect(err).NotTo(HaveOccurred())
		Expect(code).To(HaveLen(services.REF_CODE_LENGTH))
	})

	It("should only draw from the alphanumeric alphabet", func() {
		for i := 0; i < 50; i++ {
			code, err := services.GenerateRefCode(services.REF_CODE_LENGTH)
			Expect(err).NotTo(HaveOccurred())
			for _, ch := range code {
				Expect(strings.ContainsRune(services.RefCodeAlphabet, ch)).To(BeTrue())
			}
		}
	})

	It("should not repeat itself across a reasonable sample", func() {
		seen := map[string]bool{}
		for i := 0; i < 200; i++ {
			code, err := services.GenerateRefCode(services.REF_CODE_LENGTH)
			Expect(err).NotTo(HaveOccurred())
			seen[code] = true
		}
		// 62^6 possible codes, a sample of 200 colliding would point at a
		// broken random source
		Expect(len(seen)).To(Equal(200))
	})
})
