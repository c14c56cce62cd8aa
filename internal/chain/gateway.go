package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// reward contract ABI (mint + bulk vote submission)
const gatewayABI = `[
	{
		"name": "mint",
		"type": "function",
		"inputs": [
			{"name": "recipient", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"outputs": []
	},
	{
		"name": "addVotes",
		"type": "function",
		"inputs": [
			{"name": "contentIds", "type": "bytes32[]"},
			{"name": "voters", "type": "address[]"}
		],
		"outputs": []
	}
]`

var ErrTransactionReverted = errors.New("transaction reverted")

type EthClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Gateway abstracts the reward contract client. Implementations submit the
// transaction and let the caller block on AwaitConfirmation; settlement flags
// are only flipped after a confirmed receipt.
type Gateway interface {
	Mint(ctx context.Context, recipient common.Address, amount *big.Int) (common.Hash, error)
	AddVotesBulk(ctx context.Context, contentIDs [][32]byte, voters []common.Address) (common.Hash, error)
	AwaitConfirmation(ctx context.Context, txHash common.Hash) error
	ContractAddress() common.Address
}

type Config struct {
	RPCURL          string
	PrivateKey      string
	ContractAddress string
	GasLimit        uint64
	PollInterval    time.Duration
	ConfirmTimeout  time.Duration
}

type ContractGateway struct {
	client       EthClient
	privateKey   *ecdsa.PrivateKey
	contract     common.Address
	abi          abi.ABI
	chainID      *big.Int
	gasLimit     uint64
	pollInterval time.Duration
	confirmMax   time.Duration
}

func NewGateway(cfg Config) (*ContractGateway, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain rpc: %w", err)
	}

	return NewContractGateway(client, cfg)
}

func NewContractGateway(client EthClient, cfg Config) (*ContractGateway, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(gatewayABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	chainID, err := client.ChainID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain id: %w", err)
	}

	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = 3_000_000
	}

	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = 2 * time.Second
	}

	confirmMax := cfg.ConfirmTimeout
	if confirmMax == 0 {
		confirmMax = 90 * time.Second
	}

	return &ContractGateway{
		client:       client,
		privateKey:   privateKey,
		contract:     common.HexToAddress(cfg.ContractAddress),
		abi:          parsedABI,
		chainID:      chainID,
		gasLimit:     gasLimit,
		pollInterval: pollInterval,
		confirmMax:   confirmMax,
	}, nil
}

func (g *ContractGateway) ContractAddress() common.Address {
	return g.contract
}

func (g *ContractGateway) Mint(ctx context.Context, recipient common.Address, amount *big.Int) (common.Hash, error) {
	data, err := g.abi.Pack("mint", recipient, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack mint call: %w", err)
	}

	return g.sendTransaction(ctx, data)
}

func (g *ContractGateway) AddVotesBulk(ctx context.Context, contentIDs [][32]byte, voters []common.Address) (common.Hash, error) {
	if len(contentIDs) != len(voters) {
		return common.Hash{}, fmt.Errorf("content ids and voters length mismatch: %d != %d", len(contentIDs), len(voters))
	}

	data, err := g.abi.Pack("addVotes", contentIDs, voters)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack addVotes call: %w", err)
	}

	return g.sendTransaction(ctx, data)
}

func (g *ContractGateway) sendTransaction(ctx context.Context, data []byte) (common.Hash, error) {
	from := crypto.PubkeyToAddress(g.privateKey.PublicKey)

	nonce, err := g.client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, g.contract, big.NewInt(0), g.gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(g.chainID), g.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := g.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash(), nil
}

// AwaitConfirmation polls for the receipt until mined, reverted, or timed out.
func (g *ContractGateway) AwaitConfirmation(ctx context.Context, txHash common.Hash) error {
	ctx, cancel := context.WithTimeout(ctx, g.confirmMax)
	defer cancel()

	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := g.client.TransactionReceipt(ctx, txHash)
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return fmt.Errorf("failed to fetch receipt for %s: %w", txHash.Hex(), err)
		}

		if receipt != nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("%w: %s", ErrTransactionReverted, txHash.Hex())
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("confirmation of %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
