package services_test

import (
	"memedrop/internal/models"
	"memedrop/internal/services"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Tag relevance", func() {
	Describe("RelevanceScore", func() {
		It("should weight votes, shares and bookmarks above the rest", func() {
			tag := &models.Tag{Votes: 1, Shares: 1, Uploads: 1, Searches: 1, Bookmarks: 1}
			Expect(services.RelevanceScore(tag)).To(Equal(2 + 3 + 1 + 1 + 3))
		})

		It("should score an untouched tag at zero", func() {
			Expect(services.RelevanceScore(&models.Tag{})).To(Equal(0))
		})
	})

	Describe("NormalizePair", func() {
		It("should order both directions the same way", func() {
			a1, b1 := services.NormalizePair(3, 7)
			a2, b2 := services.NormalizePair(7, 3)
			Expect(a1).To(Equal(a2))
			Expect(b1).To(Equal(b2))
			Expect(a1).To(BeNumerically("<", b1))
		})

		It("should leave an already ordered pair alone", func() {
			a, b := services.NormalizePair(1, 2)
			Expect(a).To(Equal(int64(1)))
			Expect(b).To(Equal(int64(2)))
		})
	})
})
