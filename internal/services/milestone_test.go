package services_test

import (
	"memedrop/internal/models"
	"memedrop/internal/services"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Milestone schedule", func() {
	Describe("CrossedThresholds", func() {
		var thresholds []int

		BeforeEach(func() {
			thresholds = []int{5, 10, 25, 50, 100}
		})

		When("the counter is below every threshold", func() {
			It("should return nothing", func() {
				Expect(services.CrossedThresholds(thresholds, 4, nil)).To(BeEmpty())
			})
		})

		When("the counter sits exactly on a threshold", func() {
			It("should include that threshold", func() {
				Expect(services.CrossedThresholds(thresholds, 10, nil)).To(Equal([]int{5, 10}))
			})
		})

		When("some thresholds were already recorded", func() {
			It("should return only the new ones", func() {
				Expect(services.CrossedThresholds(thresholds, 30, []int{5, 10})).To(Equal([]int{25}))
			})
		})

		When("every reachable threshold is already recorded", func() {
			It("should return nothing", func() {
				Expect(services.CrossedThresholds(thresholds, 30, []int{5, 10, 25})).To(BeEmpty())
			})
		})

		When("a counter jumps past several thresholds at once", func() {
			It("should return all of them in ascending order", func() {
				Expect(services.CrossedThresholds(thresholds, 1000, nil)).To(Equal([]int{5, 10, 25, 50, 100}))
			})
		})
	})

	Describe("ThresholdsFor", func() {
		It("should expose a schedule for every activity type", func() {
			for _, milestoneType := range []string{
				models.MilestoneTypeVote,
				models.MilestoneTypeVoteTotal,
				models.MilestoneTypeReferral,
				models.MilestoneTypeUpload,
				models.MilestoneTypeUploadTotal,
			} {
				Expect(services.ThresholdsFor(milestoneType)).NotTo(BeEmpty(), milestoneType)
			}
		})

		It("should return nothing for an unknown type", func() {
			Expect(services.ThresholdsFor("unknown")).To(BeEmpty())
		})
	})

	Describe("RewardFor", func() {
		It("should pay a positive amount at every configured threshold", func() {
			for _, milestoneType := range []string{
				models.MilestoneTypeVote,
				models.MilestoneTypeVoteTotal,
				models.MilestoneTypeReferral,
				models.MilestoneTypeUpload,
				models.MilestoneTypeUploadTotal,
			} {
				for _, threshold := range services.ThresholdsFor(milestoneType) {
					Expect(services.RewardFor(milestoneType, threshold)).To(BeNumerically(">", 0))
				}
			}
		})

		It("should pay nothing off schedule", func() {
			Expect(services.RewardFor(models.MilestoneTypeVote, 7)).To(Equal(0))
			Expect(services.RewardFor("unknown", 5)).To(Equal(0))
		})
	})
})
