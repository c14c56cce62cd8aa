package services

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"memedrop/internal/models"
)

var _ = Describe("ServiceSettlement", func() {
	var (
		store   *fakeSettlementStore
		gateway *fakeGateway
		service *ServiceSettlement
		lockErr error
	)

	walletA := "0x1111111111111111111111111111111111111111"
	walletB := "0x2222222222222222222222222222222222222222"

	BeforeEach(func() {
		store = &fakeSettlementStore{
			votes: []*models.Vote{
				{ID: "vote-1", UserID: "user-a", MemeID: "meme-1"},
				{ID: "vote-2", UserID: "user-b", MemeID: "meme-1"},
				{ID: "vote-3", UserID: "user-a", MemeID: "meme-2"},
			},
			users: map[string]*models.User{
				"user-a": {ID: "user-a", WalletAddress: &walletA},
				"user-b": {ID: "user-b", WalletAddress: &walletB},
			},
		}
		gateway = &fakeGateway{}
		lockErr = nil

		service = &ServiceSettlement{
			gateway: gateway,
			store:   store,
			config:  fakeConfig{},
			newMutex: func(name string) claimLock {
				return &fakeLock{tryErr: lockErr}
			},
		}
	})

	Describe("SettleVotes", func() {
		It("should submit one batch and flip every settled vote", func() {
			batch, err := service.SettleVotes(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(batch.VoteIDs).To(Equal([]string{"vote-1", "vote-2", "vote-3"}))
			Expect(gateway.addVotesCalls).To(Equal(1))
			Expect(gateway.lastContents).To(HaveLen(3))
			Expect(gateway.lastVoters).To(Equal([]common.Address{
				common.HexToAddress(walletA),
				common.HexToAddress(walletB),
				common.HexToAddress(walletA),
			}))
			Expect(store.flipped).To(Equal([]string{"vote-1", "vote-2", "vote-3"}))
			Expect(store.mintLogs).To(HaveLen(1))
			Expect(store.resolved[1]).To(Equal(models.MintStatusSuccess))
		})

		It("should leave walletless voters for the next run", func() {
			store.users["user-b"].WalletAddress = nil

			batch, err := service.SettleVotes(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(batch.VoteIDs).To(Equal([]string{"vote-1", "vote-3"}))
			Expect(store.flipped).To(Equal([]string{"vote-1", "vote-3"}))
		})

		When("the submission fails", func() {
			BeforeEach(func() {
				gateway.submitErr = errors.New("nonce too low")
			})

			It("should not flip any flag", func() {
				_, err := service.SettleVotes(context.Background())
				Expect(err).To(HaveOccurred())
				Expect(store.flipped).To(BeEmpty())
				Expect(store.resolved[1]).To(Equal(models.MintStatusFailed))
			})
		})

		When("the confirmation fails", func() {
			BeforeEach(func() {
				gateway.confirmErr = errors.New("transaction reverted")
			})

			It("should not flip any flag", func() {
				_, err := service.SettleVotes(context.Background())
				Expect(err).To(HaveOccurred())
				Expect(store.flipped).To(BeEmpty())
				Expect(store.resolved[1]).To(Equal(models.MintStatusFailed))
			})
		})

		When("nothing is unsettled", func() {
			BeforeEach(func() {
				store.votes = nil
			})

			It("should return an empty batch without touching the chain", func() {
				batch, err := service.SettleVotes(context.Background())
				Expect(err).NotTo(HaveOccurred())
				Expect(batch.VoteIDs).To(BeEmpty())
				Expect(gateway.addVotesCalls).To(BeZero())
				Expect(store.mintLogs).To(BeEmpty())
			})
		})

		When("another run holds the lock", func() {
			BeforeEach(func() {
				lockErr = errors.New("lock already taken")
			})

			It("should back off", func() {
				_, err := service.SettleVotes(context.Background())
				Expect(err).To(MatchError(ErrSettlementLock))
				Expect(gateway.addVotesCalls).To(BeZero())
			})
		})
	})

	Describe("MintMilestoneReward", func() {
		It("should record the confirmed mint", func() {
			txHash, err := service.MintMilestoneReward(context.Background(), walletA, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(txHash).NotTo(BeEmpty())
			Expect(gateway.mintCalls).To(Equal(1))
			Expect(store.mintLogs).To(HaveLen(1))
			Expect(store.mintLogs[0].Reason).To(Equal(models.MintReasonMilestoneReward))
			Expect(store.resolved[1]).To(Equal(models.MintStatusSuccess))
		})

		It("should record a failed mint", func() {
			gateway.submitErr = errors.New("insufficient funds")

			_, err := service.MintMilestoneReward(context.Background(), walletA, 10)
			Expect(err).To(HaveOccurred())
			Expect(store.resolved[1]).To(Equal(models.MintStatusFailed))
		})
	})
})
