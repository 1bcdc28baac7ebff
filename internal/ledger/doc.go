// Package ledger anchors composite records on the chain.
//
// The controller identity derives deterministically from a recovery phrase;
// no private key material is ever persisted. All state-changing calls route
// through the controller's owned contract ("relay indirection"): the
// controller never calls target contracts directly, it asks its own contract
// to forward the call, and that contract enforces who may act on the
// controller's behalf. Per publish exactly two calls go out, strictly in
// order: register the item under the feed head, then create the item record
// holding the raw content digest.
package ledger
