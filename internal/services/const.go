package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"memedrop/internal/models"
)

var ErrMilestoneClaimLock = errors.New("milestone claim locked")
var ErrSettlementLock = errors.New("settlement run locked")
var ErrNoWalletLinked = errors.New("no wallet linked")

const (
	CONFIG_REF_CODE_MAX_ATTEMPTS    = "REF_CODE_MAX_ATTEMPTS"
	CONFIG_CREDIT_PER_VOTE          = "CREDIT_PER_VOTE"
	CONFIG_CREDIT_PER_UPLOAD        = "CREDIT_PER_UPLOAD"
	CONFIG_TOKEN_DECIMALS           = "TOKEN_DECIMALS"
	CONFIG_REF_LEADERBOARD_LIMIT    = "REF_LEADERBOARD_LIMIT"
	CONFIG_CRONJOB_TIME_SETTLEMENT  = "CRONJOB_TIME_SETTLEMENT"

	REF_CODE_DEFAULT_MAX_ATTEMPTS      = 16
	REF_CODE_LENGTH                    = 6
	CREDIT_PER_VOTE_DEFAULT            = 1
	CREDIT_PER_UPLOAD_DEFAULT          = 3
	REFERRAL_LEADERBOARD_DEFAULT_LIMIT = 20

	LEADERBOARD_REFERRAL = "referral"

	CACHE_TTL_1_MIN   = 1 * time.Minute
	CACHE_TTL_5_MINS  = 5 * time.Minute
	CACHE_TTL_15_MINS = 15 * time.Minute
	CACHE_TTL_1_HOUR  = 1 * time.Hour

	// lock expiries must outlive the gateway's confirmation window, which
	// defaults to 90s, so a still-working holder is never preempted
	CLAIM_LOCK_TTL      = 3 * time.Minute
	SETTLEMENT_LOCK_TTL = 5 * time.Minute

	CLAIM_RATE_LIMIT_PER_MINUTE = 10
)

// milestoneThresholds and milestoneRewards are the fixed reward schedule per
// activity type; index i of the reward slice pays out for threshold i.
var milestoneThresholds = map[string][]int{
	models.MilestoneTypeVote:        {5, 10, 25, 50, 100},
	models.MilestoneTypeVoteTotal:   {10, 50, 100, 500},
	models.MilestoneTypeReferral:    {1, 5, 10, 25, 50},
	models.MilestoneTypeUpload:      {1, 5, 10, 25},
	models.MilestoneTypeUploadTotal: {1, 3, 5, 10},
}

var milestoneRewards = map[string][]int{
	models.MilestoneTypeVote:        {10, 25, 75, 200, 500},
	models.MilestoneTypeVoteTotal:   {20, 120, 300, 2000},
	models.MilestoneTypeReferral:    {5, 30, 70, 200, 450},
	models.MilestoneTypeUpload:      {5, 30, 70, 200},
	models.MilestoneTypeUploadTotal: {25, 80, 150, 350},
}

func LockKeyMilestoneClaim(userID string, milestoneType string, threshold int) string {
	return fmt.Sprintf("lock:milestone-claim:%s:%s:%d", userID, milestoneType, threshold)
}

func LockKeySettleVotes() string {
	return "lock:settle-votes"
}

func LockKeyLinkReferral(userID string) string {
	return fmt.Sprintf("lock:link-referral:%s", userID)
}

// db
func DBKeyUser(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

func DBKeyMe(userID string) string {
	return fmt.Sprintf("me:%s", userID)
}

func DBKeyUserByRefCode(refCode string) string {
	return fmt.Sprintf("user:by_ref_code:%s", refCode)
}

func DBKeyUserCredit(userID string) string {
	return fmt.Sprintf("user_credit:%s", userID)
}

func DBKeyConfig(key string) string {
	return fmt.Sprintf("config:%s", strings.ToLower(key))
}

func DBKeyMeme(memeID string) string {
	return fmt.Sprintf("meme:%s", memeID)
}

func DBKeyReferralSummary(userID string) string {
	return fmt.Sprintf("referral_summary:%s", userID)
}

func DBKeyUserMilestones(userID string, milestoneType string) string {
	return fmt.Sprintf("milestones:%s:%s", userID, milestoneType)
}

func LimitKeyClaim(userID string) string {
	return fmt.Sprintf("limit:claim:%s", userID)
}
