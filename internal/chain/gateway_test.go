package chain_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"memedrop/internal/chain"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// testPrivateKey is a throwaway key, never funded anywhere.
const testPrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

type fakeEthClient struct {
	mu sync.Mutex

	chainID  *big.Int
	nonce    uint64
	gasPrice *big.Int

	sentTxs []*types.Transaction
	sendErr error

	receipts    map[common.Hash]*types.Receipt
	receiptErr  error
	notFoundFor int
}

func newFakeEthClient() *fakeEthClient {
	return &fakeEthClient{
		chainID:  big.NewInt(5),
		nonce:    7,
		gasPrice: big.NewInt(1_000_000_000),
		receipts: map[common.Hash]*types.Receipt{},
	}
}

func (f *fakeEthClient) ChainID(ctx context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func (f *fakeEthClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeEthClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return f.gasPrice, nil
}

func (f *fakeEthClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sentTxs = append(f.sentTxs, tx)
	return nil
}

func (f *fakeEthClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	if f.notFoundFor > 0 {
		f.notFoundFor--
		return nil, ethereum.NotFound
	}
	receipt, ok := f.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

var _ = Describe("ContractGateway", func() {
	var (
		client  *fakeEthClient
		gateway *chain.ContractGateway
		ctx     context.Context
	)

	BeforeEach(func() {
		client = newFakeEthClient()
		ctx = context.Background()

		var err error
		gateway, err = chain.NewContractGateway(client, chain.Config{
			PrivateKey:      testPrivateKey,
			ContractAddress: "0x3333333333333333333333333333333333333333",
			PollInterval:    time.Millisecond,
			ConfirmTimeout:  50 * time.Millisecond,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewContractGateway", func() {
		It("should reject a malformed private key", func() {
			_, err := chain.NewContractGateway(client, chain.Config{
				PrivateKey:      "not-a-key",
				ContractAddress: "0x3333333333333333333333333333333333333333",
			})
			Expect(err).To(HaveOccurred())
		})

		It("should accept a 0x-prefixed private key", func() {
			_, err := chain.NewContractGateway(client, chain.Config{
				PrivateKey:      "0x" + testPrivateKey,
				ContractAddress: "0x3333333333333333333333333333333333333333",
			})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Mint", func() {
		It("should submit a signed transaction against the contract", func() {
			recipient := common.HexToAddress("0x4444444444444444444444444444444444444444")

			txHash, err := gateway.Mint(ctx, recipient, big.NewInt(1000))
			Expect(err).NotTo(HaveOccurred())
			Expect(txHash).NotTo(Equal(common.Hash{}))

			Expect(client.sentTxs).To(HaveLen(1))
			sent := client.sentTxs[0]
			Expect(sent.To()).NotTo(BeNil())
			Expect(*sent.To()).To(Equal(gateway.ContractAddress()))
			Expect(sent.Nonce()).To(Equal(uint64(7)))
			Expect(sent.Value().Sign()).To(Equal(0))
			Expect(sent.Data()).NotTo(BeEmpty())
			Expect(sent.Hash()).To(Equal(txHash))
		})

		It("should surface a submission failure", func() {
			client.sendErr = errors.New("rpc down")

			_, err := gateway.Mint(ctx, common.Address{}, big.NewInt(1))
			Expect(err).To(HaveOccurred())
			Expect(client.sentTxs).To(BeEmpty())
		})
	})

	Describe("AddVotesBulk", func() {
		It("should submit one transaction for the whole batch", func() {
			contentIDs := [][32]byte{
				chain.EncodeContentID("meme-1"),
				chain.EncodeContentID("meme-2"),
			}
			voters := []common.Address{
				common.HexToAddress("0x4444444444444444444444444444444444444444"),
				common.HexToAddress("0x5555555555555555555555555555555555555555"),
			}

			txHash, err := gateway.AddVotesBulk(ctx, contentIDs, voters)
			Expect(err).NotTo(HaveOccurred())
			Expect(txHash).NotTo(Equal(common.Hash{}))
			Expect(client.sentTxs).To(HaveLen(1))
		})

		It("should reject mismatched sequences before touching the chain", func() {
			contentIDs := [][32]byte{chain.EncodeContentID("meme-1")}

			_, err := gateway.AddVotesBulk(ctx, contentIDs, nil)
			Expect(err).To(HaveOccurred())
			Expect(client.sentTxs).To(BeEmpty())
		})
	})

	Describe("AwaitConfirmation", func() {
		var txHash common.Hash

		BeforeEach(func() {
			txHash = common.HexToHash("0xabc")
		})

		It("should return once the receipt is successful", func() {
			client.receipts[txHash] = &types.Receipt{Status: types.ReceiptStatusSuccessful}

			Expect(gateway.AwaitConfirmation(ctx, txHash)).To(Succeed())
		})

		It("should keep polling through not-found until mined", func() {
			client.notFoundFor = 3
			client.receipts[txHash] = &types.Receipt{Status: types.ReceiptStatusSuccessful}

			Expect(gateway.AwaitConfirmation(ctx, txHash)).To(Succeed())
		})

		It("should report a reverted transaction", func() {
			client.receipts[txHash] = &types.Receipt{Status: types.ReceiptStatusFailed}

			err := gateway.AwaitConfirmation(ctx, txHash)
			Expect(err).To(MatchError(chain.ErrTransactionReverted))
		})

		It("should time out when the receipt never lands", func() {
			err := gateway.AwaitConfirmation(ctx, txHash)
			Expect(err).To(HaveOccurred())
		})

		It("should surface receipt lookup failures", func() {
			client.receiptErr = errors.New("rpc down")

			err := gateway.AwaitConfirmation(ctx, txHash)
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("ToChainAmount", func() {
	It("should scale by the token decimals", func() {
		amount := chain.ToChainAmount(5, 18)
		expected, _ := new(big.Int).SetString("5000000000000000000", 10)
		Expect(amount).To(Equal(expected))
	})

	It("should pass through with zero decimals", func() {
		Expect(chain.ToChainAmount(42, 0)).To(Equal(big.NewInt(42)))
	})
})

var _ = Describe("EncodeContentID", func() {
	It("should be deterministic", func() {
		Expect(chain.EncodeContentID("meme-1")).To(Equal(chain.EncodeContentID("meme-1")))
	})

	It("should separate distinct ids", func() {
		Expect(chain.EncodeContentID("meme-1")).NotTo(Equal(chain.EncodeContentID("meme-2")))
	})

	It("should keep uuid ids distinct past the raw 32-byte cutoff", func() {
		a := chain.EncodeContentID("3f2c8a9e-1d4b-4c6a-9e2f-aaaaaaaaaaa1")
		b := chain.EncodeContentID("3f2c8a9e-1d4b-4c6a-9e2f-aaaaaaaaaaa2")
		Expect(a).NotTo(Equal(b))
	})

	It("should pack a full uuid without hyphens", func() {
		encoded := chain.EncodeContentID("3f2c8a9e-1d4b-4c6a-9e2f-0123456789ab")
		Expect(string(encoded[:])).To(Equal("3f2c8a9e1d4b4c6a9e2f0123456789ab"))
	})
})
