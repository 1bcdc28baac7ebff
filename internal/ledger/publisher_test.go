package ledger

import (
	"bytes"
	"context"
	"crypto/sha256"
	"math/big"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multihash"

	"anchorcast/internal/config"
	"anchorcast/internal/ipfs"
	"anchorcast/internal/logging"
)

type fakeBackend struct {
	registryAddress  common.Address
	itemStoreAddress common.Address
	contract         common.Address

	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	nonce    uint64
}

func (f *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) {
	return 42, nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	n := f.nonce
	f.nonce++
	return n, nil
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	switch *msg.To {
	case f.registryAddress:
		return registryABI.Methods["get"].Outputs.Pack(f.contract)
	case f.itemStoreAddress:
		return itemStoreABI.Methods["getNewItemId"].Outputs.Pack([32]byte{0xaa})
	}
	return nil, ethereum.NotFound
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	if f.receipts == nil {
		f.receipts = make(map[common.Hash]*types.Receipt)
	}
	f.receipts[tx.Hash()] = &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs:   []*types.Log{{}},
		TxHash: tx.Hash(),
	}
	return nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt, ok := f.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func testLedgerConfig() config.Ledger {
	return config.Ledger{
		ChainID:            76,
		RegistryAddress:    "0xbcab5026b4d79396b222abc4d1ca36db10984c73",
		ItemDagAddress:     "0x1100000000000000000000000000000000000011",
		ItemStoreAddress:   "0x2200000000000000000000000000000000000022",
		FeedID:             "0x0303030303030303030303030303030303030303030303030303030303030303",
		GasPriceWei:        1000000000,
		GasLimit:           200000,
		ReceiptPollSeconds: 1,
	}
}

func testRef(t *testing.T, payload []byte) ipfs.Ref {
	t.Helper()
	mh, err := multihash.Sum(payload, multihash.SHA2_256, -1)
	if err != nil {
		t.Fatalf("multihash: %v", err)
	}
	return ipfs.Ref{Hash: base58.Encode(mh), Size: int64(len(payload))}
}

func newTestPublisher(t *testing.T) (*Publisher, *fakeBackend) {
	t.Helper()
	cfg := testLedgerConfig()
	backend := &fakeBackend{
		registryAddress:  common.HexToAddress(cfg.RegistryAddress),
		itemStoreAddress: common.HexToAddress(cfg.ItemStoreAddress),
		contract:         common.HexToAddress("0x9900000000000000000000000000000000000099"),
	}
	identity, err := DeriveIdentity(testMnemonic)
	if err != nil {
		t.Fatalf("derive identity: %v", err)
	}
	publisher, err := NewPublisher(backend, identity, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	return publisher, backend
}

func TestInitResolvesOwnedContract(t *testing.T) {
	publisher, backend := newTestPublisher(t)
	if err := publisher.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if publisher.contractAddress != backend.contract {
		t.Fatalf("expected contract %s, got %s", backend.contract.Hex(), publisher.contractAddress.Hex())
	}
}

func TestAnchorSendsRegistrationBeforeCreation(t *testing.T) {
	publisher, backend := newTestPublisher(t)
	payload := []byte("composite record payload")
	if err := publisher.Anchor(context.Background(), testRef(t, payload)); err != nil {
		t.Fatalf("anchor: %v", err)
	}
	if len(backend.sent) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(backend.sent))
	}

	cfg := testLedgerConfig()
	firstTarget, firstCall := unpackRelayCall(t, backend.sent[0])
	if firstTarget != common.HexToAddress(cfg.ItemDagAddress) {
		t.Fatalf("first call targeted %s, want the feed dag", firstTarget.Hex())
	}
	if !bytes.Equal(firstCall[:4], itemDagABI.Methods["addChild"].ID) {
		t.Fatal("first call is not addChild")
	}

	secondTarget, secondCall := unpackRelayCall(t, backend.sent[1])
	if secondTarget != common.HexToAddress(cfg.ItemStoreAddress) {
		t.Fatalf("second call targeted %s, want the record store", secondTarget.Hex())
	}
	if !bytes.Equal(secondCall[:4], itemStoreABI.Methods["create"].ID) {
		t.Fatal("second call is not create")
	}
}

func TestAnchorRoutesThroughOwnedContract(t *testing.T) {
	publisher, backend := newTestPublisher(t)
	if err := publisher.Anchor(context.Background(), testRef(t, []byte("routed"))); err != nil {
		t.Fatalf("anchor: %v", err)
	}
	for i, tx := range backend.sent {
		if *tx.To() != backend.contract {
			t.Fatalf("transaction %d sent to %s, want the owned contract %s", i, tx.To().Hex(), backend.contract.Hex())
		}
	}
}

func TestAnchorRecordsContentDigest(t *testing.T) {
	publisher, backend := newTestPublisher(t)
	payload := []byte("digest under test")
	if err := publisher.Anchor(context.Background(), testRef(t, payload)); err != nil {
		t.Fatalf("anchor: %v", err)
	}

	_, createCall := unpackRelayCall(t, backend.sent[1])
	args, err := itemStoreABI.Methods["create"].Inputs.Unpack(createCall[4:])
	if err != nil {
		t.Fatalf("unpack create: %v", err)
	}
	digest, ok := args[1].([32]byte)
	if !ok {
		t.Fatalf("unexpected digest type %T", args[1])
	}
	want := sha256.Sum256(payload)
	if digest != want {
		t.Fatalf("recorded digest %x, want %x", digest, want)
	}

	flagsNonce, ok := args[0].([32]byte)
	if !ok {
		t.Fatalf("unexpected nonce type %T", args[0])
	}
	if flagsNonce[0] != recordFlags {
		t.Fatalf("flags byte %#x, want %#x", flagsNonce[0], recordFlags)
	}
}

func TestAnchorRejectsNonSHA256Digest(t *testing.T) {
	publisher, _ := newTestPublisher(t)
	mh, err := multihash.Sum([]byte("payload"), multihash.SHA2_512, -1)
	if err != nil {
		t.Fatalf("multihash: %v", err)
	}
	ref := ipfs.Ref{Hash: base58.Encode(mh)}
	if err := publisher.Anchor(context.Background(), ref); err == nil {
		t.Fatal("expected error for non sha2-256 digest")
	}
}

func unpackRelayCall(t *testing.T, tx *types.Transaction) (common.Address, []byte) {
	t.Helper()
	data := tx.Data()
	if !bytes.Equal(data[:4], accountABI.Methods["sendCallNoReturn"].ID) {
		t.Fatal("transaction does not use the forwarding method")
	}
	args, err := accountABI.Methods["sendCallNoReturn"].Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack relay call: %v", err)
	}
	target, ok := args[0].(common.Address)
	if !ok {
		t.Fatalf("unexpected target type %T", args[0])
	}
	inner, ok := args[1].([]byte)
	if !ok {
		t.Fatalf("unexpected call type %T", args[1])
	}
	return target, inner
}
