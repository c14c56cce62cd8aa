package chain

import (
	"math/big"
	"strings"
)

// DefaultTokenDecimals matches the deployed reward token.
const DefaultTokenDecimals = 18

// ToChainAmount converts a display amount into the contract's fixed-point
// integer representation (amount scaled by 10^decimals).
func ToChainAmount(amount int, decimals int) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Int).Mul(big.NewInt(int64(amount)), scale)
}

// EncodeContentID packs a content identifier into the contract's fixed-width
// bytes32 format. Hyphens are stripped first, so a canonical 36-character
// UUID fits without losing any of its hex digits. Anything still longer
// than 32 bytes is truncated.
func EncodeContentID(id string) [32]byte {
	var encoded [32]byte
	copy(encoded[:], strings.ReplaceAll(id, "-", ""))
	return encoded
}
