package storage

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/tolelom/indiechain/crypto"
)

// undo restores one key of the write buffer to what it was before a put.
type undo struct {
	key     string
	prev    []byte
	present bool
}

// overlay is an uncommitted write buffer with a journal so it can be rolled
// back to any revision. It is not safe for concurrent use.
type overlay struct {
	dirty   map[string][]byte
	journal []undo
	revs    []int // journal length at each snapshot
}

func newOverlay() overlay {
	return overlay{dirty: make(map[string][]byte)}
}

func (o *overlay) lookup(key string) ([]byte, bool) {
	v, ok := o.dirty[key]
	return v, ok
}

func (o *overlay) put(key string, val []byte) {
	prev, present := o.dirty[key]
	o.journal = append(o.journal, undo{key: key, prev: prev, present: present})
	o.dirty[key] = val
}

func (o *overlay) snapshot() int {
	o.revs = append(o.revs, len(o.journal))
	return len(o.revs) - 1
}

// revert undoes every put since snapshot id and forgets id and the
// snapshots taken after it.
func (o *overlay) revert(id int) error {
	if id < 0 || id >= len(o.revs) {
		return fmt.Errorf("invalid snapshot id %d", id)
	}
	mark := o.revs[id]
	for i := len(o.journal) - 1; i >= mark; i-- {
		u := o.journal[i]
		if u.present {
			o.dirty[u.key] = u.prev
		} else {
			delete(o.dirty, u.key)
		}
	}
	o.journal = o.journal[:mark]
	o.revs = o.revs[:id]
	return nil
}

func (o *overlay) reset() {
	*o = newOverlay()
}

// hashState digests kv in key order. Each key and value is preceded by its
// uvarint length so distinct maps cannot collide by concatenation.
func hashState(kv map[string][]byte) string {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf []byte
	for _, k := range keys {
		buf = binary.AppendUvarint(buf, uint64(len(k)))
		buf = append(buf, k...)
		buf = binary.AppendUvarint(buf, uint64(len(kv[k])))
		buf = append(buf, kv[k]...)
	}
	return crypto.Hash(buf)
}
