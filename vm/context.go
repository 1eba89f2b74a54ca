package vm

import (
	"github.com/sirupsen/logrus"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/events"
	"github.com/tolelom/indiechain/ledger"
)

// Context is handed to every Handler. Events emitted through it are held
// back until the transaction commits.
type Context struct {
	State  core.State
	Ledger *ledger.Ledger
	Block  *core.Block
	Tx     *core.Transaction
	Log    *logrus.Entry

	events []events.Event
	result any
}

// Caller is the verified principal that signed the transaction.
func (c *Context) Caller() string {
	return c.Tx.From
}

// Now is the block timestamp in unix nanoseconds.
func (c *Context) Now() int64 {
	return c.Block.Header.Timestamp
}

// Emit queues an event for delivery after the transaction succeeds.
func (c *Context) Emit(typ events.EventType, data map[string]any) {
	c.events = append(c.events, events.Event{
		Type:        typ,
		TxID:        c.Tx.ID,
		BlockHeight: c.Block.Header.Height,
		Data:        data,
	})
}

// SetResult records the value returned in the transaction's receipt.
func (c *Context) SetResult(v any) {
	c.result = v
}
