package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrBadAddress   = errors.New("invalid wallet address")
	ErrBadSignature = errors.New("invalid signature")
)

// NormalizeAddress validates a hex address and returns it lower-cased with the 0x prefix.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return "", ErrBadAddress
	}
	return strings.ToLower(common.HexToAddress(addr).Hex()), nil
}

// SignMessage is the text a wallet signs to prove ownership during login.
func SignMessage(wallet, nonce string) string {
	return fmt.Sprintf(`Welcome to MetaBento!

Click to sign in and accept the MetaBento Terms of Service.

This request will not trigger a blockchain transaction or cost any gas fees.

Wallet address:
%s

Nonce:
%s`, wallet, nonce)
}

// VerifySignature checks an EIP-191 personal_sign signature over message against wallet.
func VerifySignature(message, signature, wallet string) error {
	want, err := NormalizeAddress(wallet)
	if err != nil {
		return err
	}
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return ErrBadSignature
	}
	// wallets emit V as 27/28; SigToPub wants 0/1
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return ErrBadSignature
	}
	got := strings.ToLower(crypto.PubkeyToAddress(*pub).Hex())
	if got != want {
		return ErrBadSignature
	}
	return nil
}
