package services

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"memedrop/internal/models"
)

var _ = Describe("ServiceMilestone.Claim", func() {
	var (
		store   *fakeMilestoneStore
		users   *fakeWalletFinder
		minter  *fakeMinter
		cash    *fakeCache
		service *ServiceMilestone
		user    *models.User
		lockErr error
	)

	BeforeEach(func() {
		wallet := "0x1111111111111111111111111111111111111111"
		user = &models.User{ID: "user-1", Username: "alice", WalletAddress: &wallet}

		store = &fakeMilestoneStore{
			milestone: &models.Milestone{
				ID:        7,
				CreatedBy: "user-1",
				Type:      models.MilestoneTypeVote,
				Milestone: 5,
				Reward:    10,
			},
		}
		users = &fakeWalletFinder{user: user}
		minter = &fakeMinter{txHash: "0xfeed"}
		cash = &fakeCache{}
		lockErr = nil

		service = &ServiceMilestone{
			cache:         cash,
			readonlyCache: cash,
			store:         store,
			users:         users,
			minter:        minter,
			newMutex: func(name string) claimLock {
				return &fakeLock{tryErr: lockErr}
			},
		}
	})

	It("should mint once and report the reward", func() {
		result, err := service.Claim(context.Background(), user, models.MilestoneTypeVote, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Minted).To(BeTrue())
		Expect(result.Amount).To(Equal(10))
		Expect(result.TxHash).To(Equal("0xfeed"))
		Expect(minter.calls).To(Equal(1))
		Expect(store.claimed).To(BeTrue())
		Expect(cash.deleted).To(ContainElement(DBKeyUserMilestones("user-1", models.MilestoneTypeVote)))
	})

	When("two callers both read the row as unclaimed", func() {
		BeforeEach(func() {
			// the lock grants everyone, as if it had expired mid-claim;
			// the conditional flip is the only thing standing
			store.staleReads = true
		})

		It("should let exactly one of them mint", func() {
			first, err := service.Claim(context.Background(), user, models.MilestoneTypeVote, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Minted).To(BeTrue())

			second, err := service.Claim(context.Background(), user, models.MilestoneTypeVote, 5)
			Expect(second).To(BeNil())
			Expect(err).To(MatchError(ContainSubstring("already claimed")))
			Expect(minter.calls).To(Equal(1))
			Expect(store.claimCalls).To(Equal(2))
		})
	})

	When("the mint fails", func() {
		BeforeEach(func() {
			minter.err = errors.New("mint submission: boom")
		})

		It("should reopen the milestone for a retry", func() {
			_, err := service.Claim(context.Background(), user, models.MilestoneTypeVote, 5)
			Expect(err).To(HaveOccurred())
			Expect(store.claimed).To(BeFalse())
			Expect(store.unclaimCalls).To(Equal(1))

			minter.err = nil
			result, err := service.Claim(context.Background(), user, models.MilestoneTypeVote, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Minted).To(BeTrue())
		})
	})

	When("the owner has no linked wallet", func() {
		BeforeEach(func() {
			users.user = &models.User{ID: "user-1", Username: "alice"}
		})

		It("should fail without touching the flag or the gateway", func() {
			_, err := service.Claim(context.Background(), user, models.MilestoneTypeVote, 5)
			Expect(err).To(MatchError(ErrNoWalletLinked))
			Expect(store.claimCalls).To(BeZero())
			Expect(minter.calls).To(BeZero())
		})
	})

	When("no unclaimed milestone exists", func() {
		BeforeEach(func() {
			store.milestone = nil
		})

		It("should report not found", func() {
			_, err := service.Claim(context.Background(), user, models.MilestoneTypeVote, 5)
			Expect(err).To(MatchError(ContainSubstring("no unclaimed milestone")))
			Expect(minter.calls).To(BeZero())
		})
	})

	When("another claim holds the lock", func() {
		BeforeEach(func() {
			lockErr = errors.New("lock already taken")
		})

		It("should back off without reading the ledger", func() {
			_, err := service.Claim(context.Background(), user, models.MilestoneTypeVote, 5)
			Expect(err).To(MatchError(ErrMilestoneClaimLock))
			Expect(store.claimCalls).To(BeZero())
			Expect(minter.calls).To(BeZero())
		})
	})

	When("the milestone belongs to someone else", func() {
		BeforeEach(func() {
			store.milestone.CreatedBy = "user-2"
		})

		It("should refuse the claim", func() {
			_, err := service.Claim(context.Background(), user, models.MilestoneTypeVote, 5)
			Expect(err).To(MatchError(ContainSubstring("not the milestone owner")))
			Expect(store.claimCalls).To(BeZero())
			Expect(minter.calls).To(BeZero())
		})
	})
})
