package svc

import (
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"metabay/torrentdb"

	"github.com/zeromicro/go-zero/core/logx"
)

// Removal weight per record: higher weight means lower value. Dead
// beats unknown beats good, then retry count, then low relevance, then
// age.
func evictionWeight(record *torrentdb.TorrentRecord, now time.Time) int64 {
	var rank int64
	switch record.Status {
	case torrentdb.StatusGood:
		rank = 0
	case torrentdb.StatusUnknown:
		rank = 1
	default:
		rank = 2
	}

	retry := int64(record.RetryCount)
	if retry > 99 {
		retry = 99
	}

	relevance := int64(record.Relevance)
	if relevance > 99 {
		relevance = 99
	}
	if relevance < 0 {
		relevance = 0
	}

	days := (now.Unix() - record.CreationDate) / (24 * 60 * 60)
	if days > 999 {
		days = 999
	}
	if days < 0 {
		days = 0
	}

	return rank*1e7 + retry*1e5 + (99-relevance)*1e3 + days
}

// selectVictims picks the records to evict once count exceeds the
// budget: enough to get back under maxTorrents plus 10% headroom, never
// fewer than one.
func selectVictims(records []*torrentdb.TorrentRecord, maxTorrents int, now time.Time) []*torrentdb.TorrentRecord {
	numDelete := len(records) - maxTorrents + maxTorrents/10
	if numDelete <= 0 {
		numDelete = 1
	}
	if numDelete > len(records) {
		numDelete = len(records)
	}
	sorted := make([]*torrentdb.TorrentRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return evictionWeight(sorted[i], now) > evictionWeight(sorted[j], now)
	})
	return sorted[:numDelete]
}

// CapacityController bounds the number of index records. It counts
// optimistically and only re-reads the index when the counter crosses
// the budget, so the common ingest path costs no index scan.
type CapacityController struct {
	mu          sync.Mutex
	maxTorrents int
	count       int
	db          torrentdb.TorrentDB
	store       *TorrentStore
	now         func() time.Time
}

func NewCapacityController(db torrentdb.TorrentDB, store *TorrentStore, maxTorrents int) *CapacityController {
	return &CapacityController{
		maxTorrents: maxTorrents,
		count:       -1,
		db:          db,
		store:       store,
		now:         time.Now,
	}
}

// OnRecordAdded is called after every successful save. The first call
// initializes the counter from the index and enforces the bound once,
// covering records accumulated across restarts.
func (c *CapacityController) OnRecordAdded() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count < 0 {
		c.check()
	}

	c.count++
	if c.count <= c.maxTorrents {
		return
	}

	// Re-count from the index before evicting: the optimistic counter
	// drifts when something else mutates the index.
	c.check()
}

// Check runs one authoritative capacity check: re-count from the index
// and evict if over budget.
func (c *CapacityController) Check() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.check()
}

func (c *CapacityController) check() {
	records, ok := c.listLight()
	if !ok {
		return
	}
	c.enforce(records)
}

// Count reports the controller's view of the record count, reading the
// index on first use.
func (c *CapacityController) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count < 0 {
		records, ok := c.listLight()
		if !ok {
			return 0
		}
		c.count = len(records)
	}
	return c.count
}

func (c *CapacityController) listLight() ([]*torrentdb.TorrentRecord, bool) {
	records, err := c.db.ListLight()
	if err != nil {
		logx.Errorf("Failed to list index records: %+v", err)
		return nil, false
	}
	return records, true
}

func (c *CapacityController) enforce(records []*torrentdb.TorrentRecord) {
	c.count = len(records)
	if c.count <= c.maxTorrents {
		return
	}
	victims := selectVictims(records, c.maxTorrents, c.now())
	deleted := 0
	for _, victim := range victims {
		infoHash, err := hex.DecodeString(victim.InfoHash)
		if err != nil {
			logx.Errorf("Illegal info hash in index: %s", victim.InfoHash)
			continue
		}
		err = c.store.Remove(infoHash)
		if err != nil {
			logx.Errorf("Failed to evict %s: %+v", victim.InfoHash, err)
			continue
		}
		deleted++
	}
	c.count -= deleted
	metricHandlerEvent.Add(float64(deleted), "evicted")
	logx.Infof("Evicted %d of %d torrents, %d remain", deleted, len(victims), c.count)
}
