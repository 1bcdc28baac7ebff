package ledger

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/multiformats/go-multihash"

	"anchorcast/internal/config"
	"anchorcast/internal/ipfs"
	"anchorcast/internal/logging"
	"anchorcast/internal/services"
)

// recordFlags marks the fixed flag bits combined with the random nonce into
// a record slot identifier. Flag values are a contract-level constant.
const recordFlags = 0x01

// Publisher anchors composite records on the chain through the controller's
// owned contract.
type Publisher struct {
	backend  Backend
	identity *Identity
	logger   *slog.Logger

	chainID     *big.Int
	gasPrice    *big.Int
	gasLimit    uint64
	receiptPoll time.Duration

	registryAddress  common.Address
	itemDagAddress   common.Address
	itemStoreAddress common.Address
	feedID           [32]byte

	// contractAddress is resolved once via the registry and cached for the
	// process lifetime.
	contractAddress common.Address
	resolved        bool
}

// NewPublisher constructs a Publisher from configuration. Init must run
// before the first Anchor.
func NewPublisher(backend Backend, identity *Identity, cfg config.Ledger, logger *slog.Logger) (*Publisher, error) {
	if backend == nil || identity == nil {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "new publisher", "backend and identity required", nil)
	}
	feedID, err := parseWord(cfg.FeedID)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "new publisher", "feed id", err)
	}
	return &Publisher{
		backend:          backend,
		identity:         identity,
		logger:           logging.NewComponentLogger(logger, "ledger"),
		chainID:          big.NewInt(cfg.ChainID),
		gasPrice:         big.NewInt(cfg.GasPriceWei),
		gasLimit:         cfg.GasLimit,
		receiptPoll:      time.Duration(cfg.ReceiptPollSeconds) * time.Second,
		registryAddress:  common.HexToAddress(cfg.RegistryAddress),
		itemDagAddress:   common.HexToAddress(cfg.ItemDagAddress),
		itemStoreAddress: common.HexToAddress(cfg.ItemStoreAddress),
		feedID:           feedID,
	}, nil
}

// Init logs the chain head and resolves the controller's owned contract
// through the registry, caching the result for the process lifetime.
func (p *Publisher) Init(ctx context.Context) error {
	block, err := p.backend.BlockNumber(ctx)
	if err != nil {
		return services.Wrap(services.ErrAnchor, "ledger", "init", "block number", err)
	}
	p.logger.Info("connected to chain",
		logging.Uint64("block", block),
		logging.String("controller", p.identity.Address.Hex()),
	)

	contract, err := p.resolveContract(ctx)
	if err != nil {
		return err
	}
	p.logger.Info("resolved owned contract", logging.String("contract", contract.Hex()))
	return nil
}

func (p *Publisher) resolveContract(ctx context.Context) (common.Address, error) {
	if p.resolved {
		return p.contractAddress, nil
	}
	data, err := registryABI.Pack("get", p.identity.Address)
	if err != nil {
		return common.Address{}, services.Wrap(services.ErrAnchor, "ledger", "resolve contract", "pack", err)
	}
	result, err := p.backend.CallContract(ctx, ethereum.CallMsg{To: &p.registryAddress, Data: data}, nil)
	if err != nil {
		return common.Address{}, services.Wrap(services.ErrAnchor, "ledger", "resolve contract", "registry call", err)
	}
	outputs, err := registryABI.Unpack("get", result)
	if err != nil {
		return common.Address{}, services.Wrap(services.ErrAnchor, "ledger", "resolve contract", "unpack", err)
	}
	contract, ok := outputs[0].(common.Address)
	if !ok || contract == (common.Address{}) {
		return common.Address{}, services.Wrap(services.ErrAnchor, "ledger", "resolve contract", "controller has no registered contract", nil)
	}
	p.contractAddress = contract
	p.resolved = true
	return contract, nil
}

// Anchor registers ref's content digest on the chain. Two state-changing
// calls go out in fixed order, each awaited to its receipt before the next:
// the feed registration, then the record creation. Both are routed through
// the owned contract; the ordering and routing are load-bearing and must not
// change.
func (p *Publisher) Anchor(ctx context.Context, ref ipfs.Ref) error {
	contract, err := p.resolveContract(ctx)
	if err != nil {
		return err
	}

	digest, err := rawDigest(ref)
	if err != nil {
		return services.Wrap(services.ErrAnchor, "ledger", "anchor", "content digest", err)
	}

	flagsNonce, err := newFlagsNonce()
	if err != nil {
		return services.Wrap(services.ErrAnchor, "ledger", "anchor", "draw nonce", err)
	}

	// Read-only preview of the record slot id, for the operator's benefit.
	itemID, err := p.previewItemID(ctx, contract, flagsNonce)
	if err != nil {
		return err
	}
	p.logger.Info("anchoring record",
		logging.String("item_id", fmt.Sprintf("0x%x", itemID)),
		logging.String("digest", ref.Hash),
	)

	registerCall, err := itemDagABI.Pack("addChild", p.feedID, p.itemStoreAddress, flagsNonce)
	if err != nil {
		return services.Wrap(services.ErrAnchor, "ledger", "anchor", "pack registration", err)
	}
	receipt, err := p.sendViaContract(ctx, contract, p.itemDagAddress, registerCall)
	if err != nil {
		return services.Wrap(services.ErrAnchor, "ledger", "anchor", "feed registration", err)
	}
	if len(receipt.Logs) == 0 {
		// A silent registration usually means the edge already existed
		// from an earlier partial publish.
		p.logger.Warn("feed registration emitted no events; possible duplicate from a prior attempt")
	}

	createCall, err := itemStoreABI.Pack("create", flagsNonce, digest)
	if err != nil {
		return services.Wrap(services.ErrAnchor, "ledger", "anchor", "pack creation", err)
	}
	if _, err := p.sendViaContract(ctx, contract, p.itemStoreAddress, createCall); err != nil {
		return services.Wrap(services.ErrAnchor, "ledger", "anchor", "record creation", err)
	}

	p.logger.Info("record anchored", logging.String("item_id", fmt.Sprintf("0x%x", itemID)))
	return nil
}

func (p *Publisher) previewItemID(ctx context.Context, contract common.Address, flagsNonce [32]byte) ([32]byte, error) {
	data, err := itemStoreABI.Pack("getNewItemId", contract, flagsNonce)
	if err != nil {
		return [32]byte{}, services.Wrap(services.ErrAnchor, "ledger", "anchor", "pack item id query", err)
	}
	result, err := p.backend.CallContract(ctx, ethereum.CallMsg{To: &p.itemStoreAddress, Data: data}, nil)
	if err != nil {
		return [32]byte{}, services.Wrap(services.ErrAnchor, "ledger", "anchor", "item id query", err)
	}
	outputs, err := itemStoreABI.Unpack("getNewItemId", result)
	if err != nil {
		return [32]byte{}, services.Wrap(services.ErrAnchor, "ledger", "anchor", "unpack item id", err)
	}
	itemID, ok := outputs[0].([32]byte)
	if !ok {
		return [32]byte{}, services.Wrap(services.ErrAnchor, "ledger", "anchor", "item id shape", nil)
	}
	return itemID, nil
}

// sendViaContract wraps an inner call in the owned contract's forwarding
// method, signs it as the controller, broadcasts, and waits for the receipt.
func (p *Publisher) sendViaContract(ctx context.Context, contract, target common.Address, innerCall []byte) (*types.Receipt, error) {
	data, err := accountABI.Pack("sendCallNoReturn", target, innerCall)
	if err != nil {
		return nil, fmt.Errorf("pack relay call: %w", err)
	}

	nonce, err := p.backend.PendingNonceAt(ctx, p.identity.Address)
	if err != nil {
		return nil, fmt.Errorf("transaction count: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &contract,
		Value:    new(big.Int),
		Gas:      p.gasLimit,
		GasPrice: p.gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(p.chainID), p.identity.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if err := p.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("broadcast transaction: %w", err)
	}
	return p.waitReceipt(ctx, signed.Hash())
}

func (p *Publisher) waitReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	for {
		receipt, err := p.backend.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return nil, fmt.Errorf("transaction %s reverted", txHash.Hex())
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("receipt %s: %w", txHash.Hex(), err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.receiptPoll):
		}
	}
}

// newFlagsNonce combines the fixed flag bits with a random high-entropy
// nonce into the 32-byte record slot identifier.
func newFlagsNonce() ([32]byte, error) {
	var flagsNonce [32]byte
	flagsNonce[0] = recordFlags
	if _, err := rand.Read(flagsNonce[1:]); err != nil {
		return [32]byte{}, err
	}
	return flagsNonce, nil
}

// rawDigest reduces a store reference to the bare 32-byte hash the ledger
// records. The store encodes digests in its own base58 multihash form; the
// ledger stores only the hash bytes.
func rawDigest(ref ipfs.Ref) ([32]byte, error) {
	raw, err := ref.DigestBytes()
	if err != nil {
		return [32]byte{}, err
	}
	decoded, err := multihash.Decode(raw)
	if err != nil {
		return [32]byte{}, err
	}
	if decoded.Code != multihash.SHA2_256 || len(decoded.Digest) != 32 {
		return [32]byte{}, fmt.Errorf("store digest %q is not sha2-256", ref.Hash)
	}
	var digest [32]byte
	copy(digest[:], decoded.Digest)
	return digest, nil
}

func parseWord(value string) ([32]byte, error) {
	var word [32]byte
	raw := common.FromHex(value)
	if len(raw) != 32 {
		return word, fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	copy(word[:], raw)
	return word, nil
}
