// Package tezos holds the encoding rules shared by the wallet, RPC and
// explorer packages: base58check addresses and hashes, public-key hashing
// and mutez formatting.
package tezos

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrInvalidAddress   = errors.New("invalid tezos address")
	ErrInvalidPublicKey = errors.New("invalid tezos public key")
)

// AddressKind tells implicit accounts from originated contracts.
type AddressKind string

const (
	KindImplicit   AddressKind = "implicit"
	KindOriginated AddressKind = "originated"
)

type prefix struct {
	text    string
	bytes   []byte
	payload int
}

var (
	prefixTz1  = prefix{"tz1", []byte{6, 161, 159}, 20}
	prefixTz2  = prefix{"tz2", []byte{6, 161, 161}, 20}
	prefixTz3  = prefix{"tz3", []byte{6, 161, 164}, 20}
	prefixTz4  = prefix{"tz4", []byte{6, 161, 166}, 20}
	prefixKT1  = prefix{"KT1", []byte{2, 90, 121}, 20}
	prefixEdpk = prefix{"edpk", []byte{13, 15, 37, 217}, 32}
	prefixSppk = prefix{"sppk", []byte{3, 254, 226, 86}, 33}
	prefixP2pk = prefix{"p2pk", []byte{3, 178, 139, 127}, 33}
	prefixB    = prefix{"B", []byte{1, 52}, 32}
	prefixOp   = prefix{"o", []byte{5, 116}, 32}

	addressPrefixes = []prefix{prefixTz1, prefixTz2, prefixTz3, prefixTz4, prefixKT1}

	// public key prefix -> address prefix it hashes to
	keyPrefixes = []struct {
		key  prefix
		addr prefix
	}{
		{prefixEdpk, prefixTz1},
		{prefixSppk, prefixTz2},
		{prefixP2pk, prefixTz3},
	}
)

func checksum(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:4]
}

func encode(p prefix, payload []byte) string {
	buf := make([]byte, 0, len(p.bytes)+len(payload)+4)
	buf = append(buf, p.bytes...)
	buf = append(buf, payload...)
	buf = append(buf, checksum(buf)...)
	return base58.Encode(buf)
}

// decode verifies the base58check encoding of s against p and returns the payload.
func decode(p prefix, s string) ([]byte, error) {
	if !strings.HasPrefix(s, p.text) {
		return nil, fmt.Errorf("expected %s prefix", p.text)
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("base58: %w", err)
	}
	if len(raw) != len(p.bytes)+p.payload+4 {
		return nil, fmt.Errorf("unexpected length %d", len(raw))
	}
	body, sum := raw[:len(raw)-4], raw[len(raw)-4:]
	if !bytes.Equal(checksum(body), sum) {
		return nil, errors.New("checksum mismatch")
	}
	if !bytes.Equal(body[:len(p.bytes)], p.bytes) {
		return nil, errors.New("prefix bytes mismatch")
	}
	return body[len(p.bytes):], nil
}

// ValidateAddress checks an implicit (tz1..tz4) or originated (KT1) address.
func ValidateAddress(address string) (AddressKind, error) {
	for _, p := range addressPrefixes {
		if !strings.HasPrefix(address, p.text) {
			continue
		}
		if _, err := decode(p, address); err != nil {
			return "", fmt.Errorf("%w %q: %v", ErrInvalidAddress, address, err)
		}
		if p.text == prefixKT1.text {
			return KindOriginated, nil
		}
		return KindImplicit, nil
	}
	return "", fmt.Errorf("%w %q: unknown prefix", ErrInvalidAddress, address)
}

// IsImplicit reports whether address is a valid tz1..tz4 address.
func IsImplicit(address string) bool {
	kind, err := ValidateAddress(address)
	return err == nil && kind == KindImplicit
}

// AddressFromPublicKey derives the implicit account address of an
// edpk, sppk or p2pk public key.
func AddressFromPublicKey(publicKey string) (string, error) {
	for _, kp := range keyPrefixes {
		if !strings.HasPrefix(publicKey, kp.key.text) {
			continue
		}
		key, err := decode(kp.key, publicKey)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
		hash, err := blake2b.New(20, nil)
		if err != nil {
			return "", err
		}
		hash.Write(key)
		return encode(kp.addr, hash.Sum(nil)), nil
	}
	return "", fmt.Errorf("%w: unknown prefix", ErrInvalidPublicKey)
}

// IsBlockHash reports whether s is a base58check block hash.
func IsBlockHash(s string) bool {
	_, err := decode(prefixB, s)
	return err == nil
}

// IsOperationHash reports whether s is a base58check operation hash.
func IsOperationHash(s string) bool {
	_, err := decode(prefixOp, s)
	return err == nil
}

// ShortAddress renders tz1VSUr...Cjcjb style abbreviations for narrow views.
func ShortAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:7] + "..." + address[len(address)-4:]
}
