package services_test

import (
	"memedrop/internal/models"
	"memedrop/internal/services"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BuildVoteBatch", func() {
	var (
		votes   []*models.Vote
		wallets map[string]*string
		batch   *services.VoteBatch
	)

	walletA := "0x1111111111111111111111111111111111111111"
	walletB := "0x2222222222222222222222222222222222222222"

	JustBeforeEach(func() {
		batch = services.BuildVoteBatch(votes, wallets)
	})

	When("every voter has a linked wallet", func() {
		BeforeEach(func() {
			votes = []*models.Vote{
				{ID: "v1", UserID: "alice", MemeID: "m1"},
				{ID: "v2", UserID: "bob", MemeID: "m1"},
			}
			wallets = map[string]*string{
				"alice": &walletA,
				"bob":   &walletB,
			}
		})

		It("should keep sequences parallel", func() {
			Expect(batch.VoteIDs).To(Equal([]string{"v1", "v2"}))
			Expect(batch.MemeIDs).To(Equal([]string{"m1", "m1"}))
			Expect(batch.UserAddresses).To(Equal([]string{walletA, walletB}))
		})
	})

	When("a voter has no linked wallet", func() {
		BeforeEach(func() {
			votes = []*models.Vote{
				{ID: "v1", UserID: "alice", MemeID: "m1"},
				{ID: "v2", UserID: "carol", MemeID: "m1"},
			}
			wallets = map[string]*string{
				"alice": &walletA,
				"carol": nil,
			}
		})

		It("should leave their votes out of the run entirely", func() {
			Expect(batch.VoteIDs).To(Equal([]string{"v1"}))
			Expect(batch.MemeIDs).To(Equal([]string{"m1"}))
			Expect(batch.UserAddresses).To(Equal([]string{walletA}))
		})
	})

	When("the same (meme, voter) pair appears twice", func() {
		BeforeEach(func() {
			votes = []*models.Vote{
				{ID: "v1", UserID: "alice", MemeID: "m1"},
				{ID: "v2", UserID: "alice", MemeID: "m1"},
				{ID: "v3", UserID: "alice", MemeID: "m2"},
			}
			wallets = map[string]*string{
				"alice": &walletA,
			}
		})

		It("should submit the pair once but still flip every vote row", func() {
			Expect(batch.VoteIDs).To(Equal([]string{"v1", "v2", "v3"}))
			Expect(batch.MemeIDs).To(Equal([]string{"m1", "m2"}))
			Expect(batch.UserAddresses).To(Equal([]string{walletA, walletA}))
		})
	})

	When("there are no unsettled votes", func() {
		BeforeEach(func() {
			votes = nil
			wallets = map[string]*string{}
		})

		It("should return an empty batch", func() {
			Expect(batch.VoteIDs).To(BeEmpty())
			Expect(batch.MemeIDs).To(BeEmpty())
			Expect(batch.UserAddresses).To(BeEmpty())
		})
	})
})
