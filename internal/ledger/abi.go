package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract interfaces, reduced to the methods the publisher uses.
var (
	// Account registry: maps a controller address to its owned contract.
	registryABI = mustParseABI(`[
		{"constant":true,"inputs":[{"name":"controller","type":"address"}],
		 "name":"get","outputs":[{"name":"","type":"address"}],
		 "stateMutability":"view","type":"function"}
	]`)

	// Owned account contract: forwards calls on the controller's behalf.
	accountABI = mustParseABI(`[
		{"constant":false,"inputs":[{"name":"target","type":"address"},{"name":"data","type":"bytes"}],
		 "name":"sendCallNoReturn","outputs":[],
		 "stateMutability":"nonpayable","type":"function"}
	]`)

	// Item DAG: feed membership edges.
	itemDagABI = mustParseABI(`[
		{"constant":false,"inputs":[{"name":"itemId","type":"bytes32"},{"name":"childItemStore","type":"address"},{"name":"childNonce","type":"bytes32"}],
		 "name":"addChild","outputs":[],
		 "stateMutability":"nonpayable","type":"function"}
	]`)

	// Item store: content-digest records.
	itemStoreABI = mustParseABI(`[
		{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"nonce","type":"bytes32"}],
		 "name":"getNewItemId","outputs":[{"name":"","type":"bytes32"}],
		 "stateMutability":"view","type":"function"},
		{"constant":false,"inputs":[{"name":"flagsNonce","type":"bytes32"},{"name":"ipfsHash","type":"bytes32"}],
		 "name":"create","outputs":[{"name":"","type":"bytes32"}],
		 "stateMutability":"nonpayable","type":"function"}
	]`)
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(err)
	}
	return parsed
}
