package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TC/configs"

	"github.com/tidwall/wal"
)

// Journal is an optional append-only trace of every event the room emits,
// batch-synced to a write-ahead log. It is a debugging aid: nothing is ever
// read back, and it is off unless configs.UseJournal is set.
type Journal struct {
	latch  sync.Mutex
	lsn    uint64
	logs   *wal.Log
	buffer *wal.Batch
	cancel context.CancelFunc
}

func NewJournal() *Journal {
	res := &Journal{}
	if !configs.UseJournal {
		return res
	}
	log, err := wal.Open(configs.JournalLocation, nil)
	if err != nil {
		panic(err)
	}
	res.logs = log
	res.lsn, err = log.LastIndex()
	if err != nil {
		panic(err)
	}
	res.buffer = &wal.Batch{}
	var ctx context.Context
	ctx, res.cancel = context.WithCancel(context.Background())
	go res.batchSyncLogger(ctx, res.lsn)
	return res
}

func (c *Journal) Record(event string, payload interface{}) {
	if c.logs == nil {
		return
	}
	c.latch.Lock()
	defer c.latch.Unlock()
	c.lsn++
	e := fmt.Sprintf("(%s,%s)", event, configs.JToString(payload))
	c.buffer.Write(c.lsn, []byte(e))
}

func (c *Journal) batchSyncLogger(ctx context.Context, initLSN uint64) {
	lastLSN := initLSN
	for {
		select {
		case <-time.After(configs.JournalBatchInterval):
			c.latch.Lock()
			if c.lsn == lastLSN {
				c.latch.Unlock()
			} else {
				err := c.logs.WriteBatch(c.buffer)
				if err != nil {
					panic(err)
				}
				c.buffer.Clear()
				lastLSN = c.lsn
				c.latch.Unlock()
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Journal) Close() {
	if c.logs == nil {
		return
	}
	c.cancel()
	c.latch.Lock()
	defer c.latch.Unlock()
	if c.buffer != nil {
		_ = c.logs.WriteBatch(c.buffer)
		c.buffer.Clear()
	}
	_ = c.logs.Close()
}
