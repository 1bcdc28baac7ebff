package ledger

import (
	"crypto/ecdsa"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	bip39 "github.com/tyler-smith/go-bip39"

	"anchorcast/internal/services"
)

// Fixed hierarchical derivation path for the controller key:
// m/44'/76'/0'/0/0.
var derivationPath = []uint32{
	hdkeychain.HardenedKeyStart + 44,
	hdkeychain.HardenedKeyStart + 76,
	hdkeychain.HardenedKeyStart + 0,
	0,
	0,
}

// Identity is the controller key pair derived from the recovery phrase. The
// private key lives only in memory.
type Identity struct {
	Address    common.Address
	privateKey *ecdsa.PrivateKey
}

// DeriveIdentity derives the controller identity from a BIP-39 recovery
// phrase. The same phrase always yields the same address.
func DeriveIdentity(mnemonic string) (*Identity, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "derive identity", "invalid recovery phrase", err)
	}

	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "derive identity", "master key", err)
	}
	for _, index := range derivationPath {
		key, err = key.Derive(index)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "ledger", "derive identity", "derive path", err)
		}
	}

	nodeKey, err := key.ECPrivKey()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "derive identity", "extract key", err)
	}
	privateKey, err := crypto.ToECDSA(nodeKey.Serialize())
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "derive identity", "convert key", err)
	}

	return &Identity{
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		privateKey: privateKey,
	}, nil
}
