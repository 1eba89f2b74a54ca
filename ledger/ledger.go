// Package ledger keeps fungible token balances in chain state: token
// creation, balance accounts, minting and transfers. Every write names a
// signer that must match the authority recorded on the token (for mints) or
// on the source account (for transfers). An authority is either a principal
// public key or a capability address such as a holder authority.
package ledger

import (
	"errors"
	"fmt"

	"github.com/tolelom/indiechain/core"
)

var (
	ErrTokenExists       = errors.New("ledger: token already exists")
	ErrUnknownToken      = errors.New("ledger: unknown token")
	ErrAccountExists     = errors.New("ledger: account already exists")
	ErrUnknownAccount    = errors.New("ledger: unknown account")
	ErrTokenMismatch     = errors.New("ledger: account holds a different token")
	ErrWrongSigner       = errors.New("ledger: signer is not the authority")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrSupplyOverflow    = errors.New("ledger: amount overflows u64")
	ErrZeroAmount        = errors.New("ledger: amount must be positive")
)

// Store is the slice of chain state the ledger reads and writes.
type Store interface {
	GetToken(key string) (*core.Token, error)
	SetToken(t *core.Token) error
	GetTokenAccount(address string) (*core.TokenAccount, error)
	SetTokenAccount(a *core.TokenAccount) error
}

// Ledger applies balance operations to a Store. It holds no state of its own;
// rollback is the caller's snapshot.
type Ledger struct {
	store Store
}

// New returns a Ledger over store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// CreateToken registers a token whose mints must be signed by authority.
func (l *Ledger) CreateToken(key, authority string, decimals uint8) (*core.Token, error) {
	if _, err := l.store.GetToken(key); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrTokenExists, key)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	t := &core.Token{Key: key, Authority: authority, Decimals: decimals}
	if err := l.store.SetToken(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Token returns the token record for key.
func (l *Ledger) Token(key string) (*core.Token, error) {
	t, err := l.store.GetToken(key)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, key)
	}
	return t, err
}

// Account returns the balance account at address.
func (l *Ledger) Account(address string) (*core.TokenAccount, error) {
	a, err := l.store.GetTokenAccount(address)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, address)
	}
	return a, err
}

// OpenAccount creates an empty account for token at address. Transfers out
// of it must be signed by authority.
func (l *Ledger) OpenAccount(address, token, authority string) (*core.TokenAccount, error) {
	if _, err := l.Token(token); err != nil {
		return nil, err
	}
	if _, err := l.store.GetTokenAccount(address); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, address)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	a := &core.TokenAccount{Address: address, Token: token, Authority: authority}
	if err := l.store.SetTokenAccount(a); err != nil {
		return nil, err
	}
	return a, nil
}

// EnsureAccount returns the account at address, opening it if missing. An
// existing account keeps its authority but must hold token.
func (l *Ledger) EnsureAccount(address, token, authority string) (*core.TokenAccount, error) {
	a, err := l.store.GetTokenAccount(address)
	if errors.Is(err, core.ErrNotFound) {
		return l.OpenAccount(address, token, authority)
	}
	if err != nil {
		return nil, err
	}
	if a.Token != token {
		return nil, fmt.Errorf("%w: %s holds %s", ErrTokenMismatch, address, a.Token)
	}
	return a, nil
}

// Mint creates amount new units of token in account to.
func (l *Ledger) Mint(token, to string, amount uint64, signer string) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	t, err := l.Token(token)
	if err != nil {
		return err
	}
	if t.Authority != signer {
		return fmt.Errorf("%w: mint %s", ErrWrongSigner, token)
	}
	dst, err := l.tokenAccount(to, token)
	if err != nil {
		return err
	}
	if t.Supply+amount < t.Supply || dst.Amount+amount < dst.Amount {
		return ErrSupplyOverflow
	}
	t.Supply += amount
	dst.Amount += amount
	if err := l.store.SetToken(t); err != nil {
		return err
	}
	return l.store.SetTokenAccount(dst)
}

// Transfer moves amount units of token from one account to another. signer
// must be the source account's authority.
func (l *Ledger) Transfer(token, from, to string, amount uint64, signer string) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	src, err := l.tokenAccount(from, token)
	if err != nil {
		return err
	}
	if src.Authority != signer {
		return fmt.Errorf("%w: account %s", ErrWrongSigner, from)
	}
	dst, err := l.tokenAccount(to, token)
	if err != nil {
		return err
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: have %d need %d", ErrInsufficientFunds, src.Amount, amount)
	}
	if from == to {
		return nil
	}
	if dst.Amount+amount < dst.Amount {
		return ErrSupplyOverflow
	}
	src.Amount -= amount
	dst.Amount += amount
	if err := l.store.SetTokenAccount(src); err != nil {
		return err
	}
	return l.store.SetTokenAccount(dst)
}

// BalanceOf returns the balance of account in token. A missing account
// has a zero balance.
func (l *Ledger) BalanceOf(token, account string) (uint64, error) {
	a, err := l.store.GetTokenAccount(account)
	if errors.Is(err, core.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if a.Token != token {
		return 0, fmt.Errorf("%w: %s holds %s", ErrTokenMismatch, account, a.Token)
	}
	return a.Amount, nil
}

func (l *Ledger) tokenAccount(address, token string) (*core.TokenAccount, error) {
	a, err := l.Account(address)
	if err != nil {
		return nil, err
	}
	if a.Token != token {
		return nil, fmt.Errorf("%w: %s holds %s", ErrTokenMismatch, address, a.Token)
	}
	return a, nil
}
