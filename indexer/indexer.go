// Package indexer maintains secondary indexes fed by chain events so game
// servers can look up holdings, listings and receipts without scanning state.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/events"
	"github.com/tolelom/indiechain/storage"
)

const (
	prefixHolderAssets   = "idx:holder:asset:"
	prefixOwnerGames     = "idx:owner:game:"
	prefixGameAssets     = "idx:game:asset:"
	prefixSellerListings = "idx:seller:listing:"
	prefixAccountTxs     = "idx:account:tx:"
	prefixReceipt        = "idx:receipt:"
	keyOpenListings      = "idx:market:open"
)

// Indexer subscribes to chain events and updates secondary lookup tables.
type Indexer struct {
	mu sync.Mutex
	db storage.DB
}

// New creates an Indexer backed by db and subscribes it to emitter.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db}
	emitter.Subscribe(events.EventTxExecuted, idx.onReceipt)
	emitter.Subscribe(events.EventTxFailed, idx.onReceipt)
	emitter.Subscribe(events.EventGameRegistered, idx.onGameRegistered)
	emitter.Subscribe(events.EventAssetRegistered, idx.onAssetRegistered)
	emitter.Subscribe(events.EventAssetMinted, idx.onAssetMinted)
	emitter.Subscribe(events.EventAssetTransfer, idx.onAssetTransfer)
	emitter.Subscribe(events.EventMarketList, idx.onMarketList)
	emitter.Subscribe(events.EventMarketBuy, idx.onMarketBuy)
	return idx
}

// AssetsByHolder returns the assets a holder has received, in first-seen order.
func (idx *Indexer) AssetsByHolder(holder string) ([]string, error) {
	return idx.getList(prefixHolderAssets + holder)
}

// GamesByOwner returns the game keys registered by owner.
func (idx *Indexer) GamesByOwner(owner string) ([]string, error) {
	return idx.getList(prefixOwnerGames + owner)
}

// AssetsByGame returns the asset keys registered under game.
func (idx *Indexer) AssetsByGame(game string) ([]string, error) {
	return idx.getList(prefixGameAssets + game)
}

// OpenListings returns the ids of unsettled listings in listing order.
func (idx *Indexer) OpenListings() ([]uint64, error) {
	return idx.getIDs(keyOpenListings)
}

// ListingsBySeller returns every listing id a seller has created.
func (idx *Indexer) ListingsBySeller(seller string) ([]uint64, error) {
	return idx.getIDs(prefixSellerListings + seller)
}

// TxsByAccount returns the ids of transactions sent by account, failed ones
// included.
func (idx *Indexer) TxsByAccount(account string) ([]string, error) {
	return idx.getList(prefixAccountTxs + account)
}

// Receipt returns the receipt of a transaction.
func (idx *Indexer) Receipt(txID string) (*core.Receipt, error) {
	data, err := idx.db.Get([]byte(prefixReceipt + txID))
	if err != nil {
		return nil, err
	}
	var r core.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("indexer unmarshal receipt: %w", err)
	}
	return &r, nil
}

// ---- event handlers ----

func (idx *Indexer) onReceipt(ev events.Event) {
	r, ok := ev.Data["receipt"].(*core.Receipt)
	if !ok {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		idx.warn(ev, err)
		return
	}
	if err := idx.db.Set([]byte(prefixReceipt+r.TxID), data); err != nil {
		idx.warn(ev, err)
		return
	}
	idx.add(ev, prefixAccountTxs+r.From, r.TxID)
}

func (idx *Indexer) onGameRegistered(ev events.Event) {
	owner, _ := ev.Data["owner"].(string)
	game, _ := ev.Data["game"].(string)
	if owner != "" && game != "" {
		idx.add(ev, prefixOwnerGames+owner, game)
	}
}

func (idx *Indexer) onAssetRegistered(ev events.Event) {
	game, _ := ev.Data["game"].(string)
	asset, _ := ev.Data["asset"].(string)
	if game != "" && asset != "" {
		idx.add(ev, prefixGameAssets+game, asset)
	}
}

func (idx *Indexer) onAssetMinted(ev events.Event) {
	holder, _ := ev.Data["holder"].(string)
	asset, _ := ev.Data["asset"].(string)
	if holder != "" && asset != "" {
		idx.add(ev, prefixHolderAssets+holder, asset)
	}
}

func (idx *Indexer) onAssetTransfer(ev events.Event) {
	to, _ := ev.Data["to"].(string)
	asset, _ := ev.Data["asset"].(string)
	if to != "" && asset != "" {
		idx.add(ev, prefixHolderAssets+to, asset)
	}
}

// listingID reads the listing id of a market event. Ids round-tripped
// through JSON arrive as float64.
func listingID(ev events.Event) (uint64, bool) {
	v, ok := ev.Data["listing_id"]
	if !ok {
		return 0, false
	}
	id, err := cast.ToUint64E(v)
	return id, err == nil
}

func (idx *Indexer) onMarketList(ev events.Event) {
	id, ok := listingID(ev)
	seller := cast.ToString(ev.Data["seller"])
	if !ok || seller == "" {
		return
	}
	sid := strconv.FormatUint(id, 10)
	idx.add(ev, keyOpenListings, sid)
	idx.add(ev, prefixSellerListings+seller, sid)
}

func (idx *Indexer) onMarketBuy(ev events.Event) {
	id, ok := listingID(ev)
	if !ok {
		return
	}
	idx.remove(ev, keyOpenListings, strconv.FormatUint(id, 10))
	buyer := cast.ToString(ev.Data["buyer"])
	asset := cast.ToString(ev.Data["asset"])
	if buyer != "" && asset != "" {
		idx.add(ev, prefixHolderAssets+buyer, asset)
	}
}

func (idx *Indexer) warn(ev events.Event, err error) {
	logrus.WithError(err).WithField("event", ev.Type).WithField("tx", ev.TxID).Warn("indexer: update failed")
}

// ---- list helpers ----

func (idx *Indexer) getList(key string) ([]string, error) {
	data, err := idx.db.Get([]byte(key))
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("indexer unmarshal: %w", err)
	}
	return ids, nil
}

func (idx *Indexer) getIDs(key string) ([]uint64, error) {
	list, err := idx.getList(key)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(list))
	for _, s := range list {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("indexer: bad listing id %q: %w", s, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func (idx *Indexer) putList(key string, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}

// add appends value to the list at key unless it is already present.
func (idx *Indexer) add(ev events.Event, key, value string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	ids, err := idx.getList(key)
	if err != nil {
		idx.warn(ev, err)
		return
	}
	for _, id := range ids {
		if id == value {
			return
		}
	}
	if err := idx.putList(key, append(ids, value)); err != nil {
		idx.warn(ev, err)
	}
}

func (idx *Indexer) remove(ev events.Event, key, value string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	ids, err := idx.getList(key)
	if err != nil {
		idx.warn(ev, err)
		return
	}
	kept := ids[:0]
	for _, id := range ids {
		if id != value {
			kept = append(kept, id)
		}
	}
	if err := idx.putList(key, kept); err != nil {
		idx.warn(ev, err)
	}
}
