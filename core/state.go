package core

// Account holds a participant's native fee balance and replay-protection nonce.
// Address is the hex-encoded ed25519 public key.
type Account struct {
	Address string `json:"address"` // pubkey hex
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// Game anchors the ownership chain of its assets. Immutable once created.
type Game struct {
	Key         string `json:"key"`
	Owner       string `json:"owner"` // pubkey hex
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
}

// Asset is a tradable in-game item type backed by a fungible ledger token.
type Asset struct {
	Key               string `json:"key"`
	Game              string `json:"game"` // game key
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	URI               string `json:"uri"`
	Price             uint64 `json:"price"`
	Score             uint8  `json:"score"`
	TradeEnabled      bool   `json:"trade_enabled"`
	CollateralEnabled bool   `json:"collateral_enabled"`
	CollateralRatio   uint64 `json:"collateral_ratio"` // percent of minted value
	Token             string `json:"token"`            // ledger token key
	CreatedAt         int64  `json:"created_at"`
}

// HolderAuthority binds a balance account to the one principal allowed to
// move it. Its key doubles as the account's ledger signing authority.
type HolderAuthority struct {
	Key     string `json:"key"`
	Account string `json:"account"`
	Holder  string `json:"holder"`
}

// MintAuthority lets Delegate mint Asset in addition to the game owner.
// There is no revocation.
type MintAuthority struct {
	Key       string `json:"key"`
	Asset     string `json:"asset"`
	Game      string `json:"game"`
	Delegate  string `json:"delegate"`
	GrantedBy string `json:"granted_by"`
	CreatedAt int64  `json:"created_at"`
}

// Marketplace is the singleton listing counter.
type Marketplace struct {
	NextListingID uint64 `json:"next_listing_id"`
	Version       uint64 `json:"version"`
}

// SaleState is the lifecycle state of a Sale. Open moves to Settled once.
type SaleState string

const (
	SaleOpen    SaleState = "open"
	SaleSettled SaleState = "settled"
)

// Sale is an escrowed marketplace listing.
type Sale struct {
	Key           string    `json:"key"`
	ListingID     uint64    `json:"listing_id"`
	Asset         string    `json:"asset"`
	Token         string    `json:"token"`
	Seller        string    `json:"seller"`
	Price         uint64    `json:"price"`
	SaleAmount    uint64    `json:"sale_amount"`
	State         SaleState `json:"state"`
	CreditAccount string    `json:"credit_account"` // receives the payment
	Escrow        string    `json:"escrow"`         // escrow balance account
	Buyer         string    `json:"buyer,omitempty"`
	CreatedAt     int64     `json:"created_at"`
	SettledAt     int64     `json:"settled_at,omitempty"`
	Version       uint64    `json:"version"`
}

// Token is a fungible ledger token. Authority is the only signer that may mint.
type Token struct {
	Key       string `json:"key"`
	Authority string `json:"authority"`
	Decimals  uint8  `json:"decimals"`
	Supply    uint64 `json:"supply"`
}

// TokenAccount is a balance of one token. Authority signs transfers out of it
// and is either a principal or a capability address.
type TokenAccount struct {
	Address   string `json:"address"`
	Token     string `json:"token"`
	Authority string `json:"authority"`
	Amount    uint64 `json:"amount"`
}

// RecordReader reads the registry records that never change once written.
type RecordReader interface {
	GetGame(key string) (*Game, error)
	GetAsset(key string) (*Asset, error)
	GetHolderAuthority(key string) (*HolderAuthority, error)
	GetMintAuthority(key string) (*MintAuthority, error)
}

// State is the full chain state interface. Implementations must be
// snapshot-able so the executor can roll back failed transactions.
// Getters for keyed records return ErrNotFound when the record is absent.
type State interface {
	// Fee accounts
	GetAccount(address string) (*Account, error)
	SetAccount(account *Account) error

	// Game registry
	GetGame(key string) (*Game, error)
	SetGame(g *Game) error

	// Asset registry
	GetAsset(key string) (*Asset, error)
	SetAsset(a *Asset) error

	// Authority registry
	GetHolderAuthority(key string) (*HolderAuthority, error)
	SetHolderAuthority(h *HolderAuthority) error
	GetMintAuthority(key string) (*MintAuthority, error)
	SetMintAuthority(m *MintAuthority) error

	// Marketplace. UpdateMarketplace and UpdateSale are compare-and-swap on
	// Version: they fail with ErrConflict if the stored version differs from
	// the one passed in, and bump Version on success.
	GetMarketplace() (*Marketplace, error)
	InitMarketplace() error
	UpdateMarketplace(m *Marketplace) error
	GetSale(key string) (*Sale, error)
	CreateSale(s *Sale) error
	UpdateSale(s *Sale) error

	// Ledger
	GetToken(key string) (*Token, error)
	SetToken(t *Token) error
	GetTokenAccount(address string) (*TokenAccount, error)
	SetTokenAccount(a *TokenAccount) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// ComputeRoot returns the deterministic state root from the current write
	// buffer without flushing. Call this before signing a block.
	ComputeRoot() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	Commit() error
	// Committed reads flushed state only; the write buffer is invisible
	// to it.
	Committed() RecordReader
	// Discard drops the write buffer without flushing.
	Discard()
}
