package tracker

// ScrapeResult carries the swarm counters reported for one info hash.
type ScrapeResult struct {
	InfoHash  []byte
	Seeders   uint32
	Completed uint32
	Leechers  uint32
}

// Scraper asks a tracker for swarm counters. Scrape is asynchronous:
// answers arrive batched on Results, requests the tracker never answers
// simply age out.
type Scraper interface {
	Scrape(infoHashes [][]byte) error
	Results() <-chan []*ScrapeResult
	Start() error
	Stop()
}
