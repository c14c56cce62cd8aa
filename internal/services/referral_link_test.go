package services

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"memedrop/internal/datastore"
	"memedrop/internal/models"
)

var _ = Describe("ServiceReferral", func() {
	var (
		store      *fakeReferralStore
		users      *fakeReferralUsers
		milestones *fakeEvaluator
		board      *fakeBoard
		service    *ServiceReferral
		lockErr    error

		referrer *models.User
		referee  *models.User
	)

	BeforeEach(func() {
		referrerCode := "AAAAAA"
		refereeCode := "BBBBBB"
		referrer = &models.User{ID: "user-ref", Username: "ref", RefCode: &referrerCode}
		referee = &models.User{ID: "user-new", Username: "new", RefCode: &refereeCode}

		store = &fakeReferralStore{}
		users = &fakeReferralUsers{
			byID:   map[string]*models.User{"user-ref": referrer, "user-new": referee},
			byCode: map[string]*models.User{"AAAAAA": referrer, "BBBBBB": referee},
		}
		milestones = &fakeEvaluator{}
		board = &fakeBoard{}
		lockErr = nil

		service = &ServiceReferral{
			cache:         &fakeCache{},
			readonlyCache: &fakeCache{},
			store:         store,
			users:         users,
			milestones:    milestones,
			board:         board,
			config:        fakeConfig{},
			newMutex: func(name string) claimLock {
				return &fakeLock{tryErr: lockErr}
			},
		}
	})

	Describe("LinkReferral", func() {
		It("should create the edge and credit the referrer once", func() {
			err := service.LinkReferral(context.Background(), "user-new", "AAAAAA")
			Expect(err).NotTo(HaveOccurred())
			Expect(store.edges).To(HaveKeyWithValue("BBBBBB", "AAAAAA"))
			Expect(store.referredBy).To(HaveKeyWithValue("user-new", "AAAAAA"))
			Expect(milestones.evaluations).To(Equal([]evaluation{
				{"user-ref", models.MilestoneTypeReferral, 1},
			}))
			Expect(board.updates).To(Equal([]scoreUpdate{
				{LEADERBOARD_REFERRAL, "user-ref", 1},
			}))
		})

		It("should be a no-op the second time", func() {
			Expect(service.LinkReferral(context.Background(), "user-new", "AAAAAA")).To(Succeed())
			Expect(service.LinkReferral(context.Background(), "user-new", "AAAAAA")).To(Succeed())

			Expect(store.edges).To(HaveLen(1))
			Expect(milestones.evaluations).To(HaveLen(1))
			Expect(board.updates).To(HaveLen(1))
		})

		It("should reject self-referral", func() {
			err := service.LinkReferral(context.Background(), "user-ref", "AAAAAA")
			Expect(err).To(MatchError(ContainSubstring("cannot refer")))
			Expect(store.edges).To(BeEmpty())
		})

		It("should reject an unknown code", func() {
			err := service.LinkReferral(context.Background(), "user-new", "NOPE")
			Expect(err).To(MatchError(ContainSubstring("referrer code not found")))
		})

		When("another linking attempt holds the lock", func() {
			BeforeEach(func() {
				lockErr = errors.New("lock already taken")
			})

			It("should yield without touching the ledger", func() {
				Expect(service.LinkReferral(context.Background(), "user-new", "AAAAAA")).To(Succeed())
				Expect(store.edges).To(BeEmpty())
				Expect(store.insertCalls).To(BeZero())
			})
		})
	})

	Describe("EnsureReferralCode", func() {
		BeforeEach(func() {
			referee.RefCode = nil
		})

		It("should issue a fresh code on first call", func() {
			code, err := service.EnsureReferralCode(context.Background(), referee)
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(HaveLen(REF_CODE_LENGTH))
			Expect(referee.RefCode).NotTo(BeNil())
			Expect(store.codes).To(HaveKeyWithValue("user-new", code))
			Expect(users.cleared).To(ContainElement("user-new"))
		})

		It("should retry past duplicate draws", func() {
			store.codeErrs = []error{datastore.ErrDuplicate, datastore.ErrDuplicate}

			code, err := service.EnsureReferralCode(context.Background(), referee)
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(HaveLen(REF_CODE_LENGTH))
		})

		It("should give up at the retry ceiling", func() {
			for i := 0; i < REF_CODE_DEFAULT_MAX_ATTEMPTS; i++ {
				store.codeErrs = append(store.codeErrs, datastore.ErrDuplicate)
			}

			_, err := service.EnsureReferralCode(context.Background(), referee)
			Expect(err).To(MatchError(ErrRefCodeExhausted))
		})

		It("should return the existing code untouched", func() {
			existing := "CCCCCC"
			referee.RefCode = &existing

			code, err := service.EnsureReferralCode(context.Background(), referee)
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal("CCCCCC"))
			Expect(store.codes).To(BeEmpty())
		})
	})

	Describe("ClaimAllReferrals", func() {
		It("should report how many edges were flipped", func() {
			store.claimable = 3

			claimed, err := service.ClaimAllReferrals(context.Background(), referrer)
			Expect(err).NotTo(HaveOccurred())
			Expect(claimed).To(Equal(3))
			Expect(store.claimCalls).To(Equal(1))
		})

		It("should be a no-op for a user without a code", func() {
			claimed, err := service.ClaimAllReferrals(context.Background(), &models.User{ID: "user-x"})
			Expect(err).NotTo(HaveOccurred())
			Expect(claimed).To(BeZero())
			Expect(store.claimCalls).To(BeZero())
		})
	})
})
