package services

import (
	"context"
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-redsync/redsync/v4"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"github.com/uptrace/bun"

	"memedrop/internal/chain"
	"memedrop/internal/datastore"
	"memedrop/internal/models"
)

// settlementStore is the slice of the ledger the settlement flows touch.
type settlementStore interface {
	GetUnsettledVotes(ctx context.Context) ([]*models.Vote, error)
	FindUserByID(ctx context.Context, userID string) (*models.User, error)
	InsertMintLog(ctx context.Context, entry *models.MintLog) (*models.MintLog, error)
	ResolveMintLog(ctx context.Context, entryID int64, status string, txHash *string, detail string) error
	MarkVotesOnchain(ctx context.Context, voteIDs []string) (int64, error)
}

type configReader interface {
	GetIntConfig(ctx context.Context, key string, defaultValue int) (int, error)
}

type bunSettlementStore struct {
	db *bun.DB
}

func (store bunSettlementStore) GetUnsettledVotes(ctx context.Context) ([]*models.Vote, error) {
	return datastore.GetUnsettledVotes(ctx, store.db)
}

func (store bunSettlementStore) FindUserByID(ctx context.Context, userID string) (*models.User, error) {
	return datastore.FindUserByID(ctx, store.db, userID)
}

func (store bunSettlementStore) InsertMintLog(ctx context.Context, entry *models.MintLog) (*models.MintLog, error) {
	return datastore.InsertMintLog(ctx, store.db, entry)
}

func (store bunSettlementStore) ResolveMintLog(ctx context.Context, entryID int64, status string, txHash *string, detail string) error {
	return datastore.ResolveMintLog(ctx, store.db, entryID, status, txHash, detail)
}

func (store bunSettlementStore) MarkVotesOnchain(ctx context.Context, voteIDs []string) (int64, error) {
	return datastore.MarkVotesOnchain(ctx, store.db, voteIDs)
}

type ServiceSettlement struct {
	container *do.Injector
	gateway   chain.Gateway

	store    settlementStore
	config   configReader
	newMutex func(name string) claimLock
}

// VoteBatch is the chain-submittable form of one settlement run: two
// parallel sequences of equal length plus the vote rows they came from.
type VoteBatch struct {
	VoteIDs       []string `json:"-"`
	MemeIDs       []string `json:"memeIds"`
	UserAddresses []string `json:"userAddresses"`
}

func NewServiceSettlement(container *do.Injector) (*ServiceSettlement, error) {
	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	gateway, err := do.Invoke[chain.Gateway](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	return &ServiceSettlement{
		container: container,
		gateway:   gateway,
		store:     bunSettlementStore{postgresDB},
		config:    serviceConfig,
		newMutex: func(name string) claimLock {
			return rs.NewMutex(name, redsync.WithExpiry(SETTLEMENT_LOCK_TTL))
		},
	}, nil
}

// BuildVoteBatch converts unsettled votes into the submission shape. Votes
// whose voter has no wallet are skipped for this run, and duplicate
// (meme, voter) pairs collapse to one submission entry while all their vote
// rows stay in the batch for the flag flip.
func BuildVoteBatch(votes []*models.Vote, wallets map[string]*string) *VoteBatch {
	batch := &VoteBatch{}
	included := make(map[string]bool)

	for _, vote := range votes {
		wallet, ok := wallets[vote.UserID]
		if !ok || wallet == nil {
			log.Println("skip unsettled vote, voter has no wallet:", "vote:", vote.ID, "user:", vote.UserID)
			continue
		}

		batch.VoteIDs = append(batch.VoteIDs, vote.ID)

		pairKey := fmt.Sprintf("%s:%s", vote.MemeID, *wallet)
		if included[pairKey] {
			continue
		}
		included[pairKey] = true

		batch.MemeIDs = append(batch.MemeIDs, vote.MemeID)
		batch.UserAddresses = append(batch.UserAddresses, *wallet)
	}

	return batch
}

// SettleVotes is flow A: one batched add-votes transaction for everything
// still off-chain, flags flipped only after the receipt confirms. A failed
// run leaves every flag untouched so the next scheduled run retries the
// same set.
func (service *ServiceSettlement) SettleVotes(ctx context.Context) (*VoteBatch, error) {
	mutex := service.newMutex(LockKeySettleVotes())
	if err := mutex.TryLock(); err != nil {
		return nil, errorx.Wrap(ErrSettlementLock, errorx.Invalid)
	}

	// nolint:errcheck
	defer mutex.Unlock()

	votes, err := service.store.GetUnsettledVotes(ctx)
	if err != nil {
		return nil, err
	}

	wallets := make(map[string]*string)
	for _, vote := range votes {
		if _, ok := wallets[vote.UserID]; ok {
			continue
		}

		voter, err := service.store.FindUserByID(ctx, vote.UserID)
		if err != nil {
			log.Println("skip unsettled vote, voter lookup failed:", err, "user:", vote.UserID)
			wallets[vote.UserID] = nil
			continue
		}
		wallets[vote.UserID] = voter.WalletAddress
	}

	batch := BuildVoteBatch(votes, wallets)
	if len(batch.MemeIDs) == 0 {
		return batch, nil
	}

	contentIDs := make([][32]byte, 0, len(batch.MemeIDs))
	for _, memeID := range batch.MemeIDs {
		contentIDs = append(contentIDs, chain.EncodeContentID(memeID))
	}

	voters := make([]common.Address, 0, len(batch.UserAddresses))
	for _, address := range batch.UserAddresses {
		voters = append(voters, common.HexToAddress(address))
	}

	entry, err := service.store.InsertMintLog(ctx, &models.MintLog{
		Recipient: service.gateway.ContractAddress().Hex(),
		Amount:    len(batch.MemeIDs),
		Status:    models.MintStatusPending,
		Reason:    models.MintReasonVoteReceived,
	})
	if err != nil {
		return nil, err
	}

	txHash, err := service.gateway.AddVotesBulk(ctx, contentIDs, voters)
	if err != nil {
		service.resolveMintLog(ctx, entry.ID, models.MintStatusFailed, nil, err.Error())
		return nil, errorx.Wrap(fmt.Errorf("bulk vote submission: %w", err), errorx.Service)
	}

	hashHex := txHash.Hex()
	if err := service.gateway.AwaitConfirmation(ctx, txHash); err != nil {
		service.resolveMintLog(ctx, entry.ID, models.MintStatusFailed, &hashHex, err.Error())
		return nil, errorx.Wrap(fmt.Errorf("bulk vote confirmation: %w", err), errorx.Service)
	}

	service.resolveMintLog(ctx, entry.ID, models.MintStatusSuccess, &hashHex, "")

	settled, err := service.store.MarkVotesOnchain(ctx, batch.VoteIDs)
	if err != nil {
		// confirmed on chain but flags not flipped; the is_onchain guard in
		// the flip query makes the retry safe
		log.Println("settlement flag flip failed after confirmed batch:", err, "tx:", hashHex)
		return nil, err
	}

	log.Println("settled votes:", settled, "tx:", hashHex)
	return batch, nil
}

// MintMilestoneReward is flow B: one mint transaction for a single confirmed
// milestone. Every attempt lands in MintLog, success or not.
func (service *ServiceSettlement) MintMilestoneReward(ctx context.Context, recipient string, amount int) (string, error) {
	decimals, _ := service.config.GetIntConfig(ctx, CONFIG_TOKEN_DECIMALS, chain.DefaultTokenDecimals)
	chainAmount := chain.ToChainAmount(amount, decimals)

	entry, err := service.store.InsertMintLog(ctx, &models.MintLog{
		Recipient:   recipient,
		Amount:      amount,
		ChainAmount: chainAmount.String(),
		Status:      models.MintStatusPending,
		Reason:      models.MintReasonMilestoneReward,
	})
	if err != nil {
		return "", err
	}

	txHash, err := service.gateway.Mint(ctx, common.HexToAddress(recipient), chainAmount)
	if err != nil {
		service.resolveMintLog(ctx, entry.ID, models.MintStatusFailed, nil, err.Error())
		return "", errorx.Wrap(fmt.Errorf("mint submission: %w", err), errorx.Service)
	}

	hashHex := txHash.Hex()
	if err := service.gateway.AwaitConfirmation(ctx, txHash); err != nil {
		service.resolveMintLog(ctx, entry.ID, models.MintStatusFailed, &hashHex, err.Error())
		return "", errorx.Wrap(fmt.Errorf("mint confirmation: %w", err), errorx.Service)
	}

	service.resolveMintLog(ctx, entry.ID, models.MintStatusSuccess, &hashHex, "")
	return hashHex, nil
}

func (service *ServiceSettlement) resolveMintLog(ctx context.Context, entryID int64, status string, txHash *string, detail string) {
	err := service.store.ResolveMintLog(ctx, entryID, status, txHash, detail)
	if err != nil {
		log.Println("failed to resolve mint log entry:", err, "entry:", entryID)
	}
}
