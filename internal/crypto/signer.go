// Package crypto provides request signing and signer recovery for ledger
// operations. Every mutating operation is an independently authenticated
// transaction: the caller signs a keccak256 digest of the request with a
// secp256k1 key, and the server recovers the caller address from the
// signature. The recovered address is the authenticated identity the ledger
// core trusts.
package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// OperationDigest computes the canonical digest a caller signs for a mutating
// request: keccak256(method ‖ 0x00 ‖ path ‖ 0x00 ‖ timestamp ‖ 0x00 ‖ body).
// The timestamp binds the signature to a narrow validity window so captured
// requests cannot be replayed indefinitely.
func OperationDigest(method, path string, timestamp int64, body []byte) []byte {
	var buf []byte
	buf = append(buf, method...)
	buf = append(buf, 0x00)
	buf = append(buf, path...)
	buf = append(buf, 0x00)
	buf = append(buf, strconv.FormatInt(timestamp, 10)...)
	buf = append(buf, 0x00)
	buf = append(buf, body...)
	return ethcrypto.Keccak256(buf)
}

// Signer signs operation digests with a secp256k1 private key.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key.
func NewSigner(privateKeyHex string) (*Signer, error) {
	keyHex := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key: %w", err)
	}
	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// Address returns the signer's address.
func (s *Signer) Address() common.Address {
	return s.address
}

// Sign produces a hex-encoded 65-byte [R ‖ S ‖ V] signature over the digest.
func (s *Signer) Sign(digest []byte) (string, error) {
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto: sign: %w", err)
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// RecoverAddress recovers the signer address from a hex-encoded 65-byte
// signature over the given digest.
func RecoverAddress(digest []byte, sigHex string) (common.Address, error) {
	sigHex = strings.TrimPrefix(strings.TrimSpace(sigHex), "0x")
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: decode signature: %w", err)
	}
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("crypto: signature must be 65 bytes, got %d", len(sig))
	}

	// Normalize Ethereum-style V values (27/28) to the 0/1 recovery ID.
	if sig[64] >= 27 {
		sig = append(append([]byte{}, sig[:64]...), sig[64]-27)
	}

	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: recover: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
