package svc

import (
	"context"
	"encoding/hex"
	"sort"
	"time"

	"metabay/common/bittorrent/tracker"
	"metabay/torrentdb"

	"github.com/zeromicro/go-zero/core/logx"
)

// HealthChecker re-scrapes stored torrents against a tracker and folds
// the swarm counters back into the index. Records the tracker reports
// no seeders for go dead, which ranks them first for eviction.
type HealthChecker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	db       torrentdb.TorrentDB
	store    *TorrentStore
	scraper  tracker.Scraper
	interval time.Duration
	limit    int
}

func NewHealthChecker(db torrentdb.TorrentDB, store *TorrentStore, scraper tracker.Scraper, interval time.Duration, limit int) *HealthChecker {
	c := &HealthChecker{
		db:       db,
		store:    store,
		scraper:  scraper,
		interval: interval,
		limit:    limit,
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

func (c *HealthChecker) Start() {
	err := c.scraper.Start()
	if err != nil {
		logx.Errorf("Failed to start tracker scraper: %+v", err)
		return
	}
	go c.applyResults()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	c.refresh()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.refresh()
		}
	}
}

func (c *HealthChecker) Stop() {
	c.cancel()
	c.scraper.Stop()
}

// refresh scrapes the records whose last check is the furthest in the
// past, never-checked ones first.
func (c *HealthChecker) refresh() {
	records, err := c.db.ListLight()
	if err != nil {
		logx.Errorf("Failed to list index records for health check: %+v", err)
		return
	}
	due := make([]*torrentdb.TorrentRecord, 0, len(records))
	deadline := time.Now().Add(-c.interval)
	for _, record := range records {
		if record.LastCheck == nil || record.LastCheck.Before(deadline) {
			due = append(due, record)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].LastCheck == nil {
			return due[j].LastCheck != nil
		}
		if due[j].LastCheck == nil {
			return false
		}
		return due[i].LastCheck.Before(*due[j].LastCheck)
	})
	if len(due) > c.limit {
		due = due[:c.limit]
	}

	batch := make([][]byte, 0, tracker.MaxScrapeHashes)
	for _, record := range due {
		infoHash, err := hex.DecodeString(record.InfoHash)
		if err != nil {
			logx.Errorf("Illegal info hash in index: %s", record.InfoHash)
			continue
		}
		batch = append(batch, infoHash)
		if len(batch) == tracker.MaxScrapeHashes {
			c.scrape(batch)
			batch = batch[:0]
		}
	}
	c.scrape(batch)
}

func (c *HealthChecker) scrape(batch [][]byte) {
	if len(batch) == 0 {
		return
	}
	err := c.scraper.Scrape(batch)
	if err != nil {
		logx.Errorf("Failed to scrape %d torrents: %+v", len(batch), err)
	}
}

func (c *HealthChecker) applyResults() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case results := <-c.scraper.Results():
			for _, result := range results {
				status := torrentdb.StatusDead
				if result.Seeders > 0 {
					status = torrentdb.StatusGood
				}
				err := c.store.UpdateHealth(result.InfoHash, result.Seeders, result.Leechers, status)
				if err != nil {
					logx.Errorf("Failed to record health for %s: %+v", hex.EncodeToString(result.InfoHash), err)
					continue
				}
				metricHandlerEvent.Inc("health_checked")
			}
		}
	}
}
