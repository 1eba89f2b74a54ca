package events

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// EventType labels what happened.
type EventType string

const (
	EventBlockCommit     EventType = "block_commit"
	EventTxExecuted      EventType = "tx_executed"
	EventTxFailed        EventType = "tx_failed"
	EventGameRegistered  EventType = "game_registered"
	EventAssetRegistered EventType = "asset_registered"
	EventMintGranted     EventType = "mint_authority_granted"
	EventHolderBound     EventType = "holder_bound"
	EventAssetMinted     EventType = "asset_minted"
	EventCollateral      EventType = "collateral_locked"
	EventAssetTransfer   EventType = "asset_transfer"
	EventMarketList      EventType = "market_list"
	EventMarketBuy       EventType = "market_buy"
	EventCreditMinted    EventType = "credit_minted"
	EventCreditTransfer  EventType = "credit_transfer"
)

// Event carries a typed payload emitted after a state change.
type Event struct {
	Type        EventType      `json:"type"`
	TxID        string         `json:"tx_id"`
	BlockHeight int64          `json:"block_height"`
	Data        map[string]any `json:"data"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

// Emitter is a synchronous pub/sub broker. Subscribe before Emit.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[EventType][]Handler)}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// Emit calls every subscriber of ev.Type in registration order on the
// caller's goroutine.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	hs := e.handlers[ev.Type]
	e.mu.RUnlock()
	for _, h := range hs {
		deliver(h, ev)
	}
}

// deliver isolates a panicking subscriber so the rest still run.
func deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("event", ev.Type).
				WithField("tx", ev.TxID).
				Errorf("events: handler panicked: %v", r)
		}
	}()
	h(ev)
}
