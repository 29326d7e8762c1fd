package torrentdb

import (
	"time"

	"github.com/juju/errors"
)

var ErrNotFound = errors.New("torrent not found")

type TorrentStatus string

const (
	StatusUnknown TorrentStatus = "unknown"
	StatusGood    TorrentStatus = "good"
	StatusDead    TorrentStatus = "dead"
)

// TorrentRecord is the index entry for one accepted info hash. The
// payload itself lives on disk under TorrentDir/TorrentName; the record
// only remembers where, plus the descriptive and health fields used for
// lookups and eviction.
type TorrentRecord struct {
	InfoHash     string        `bson:"_id" json:"info_hash"`
	TorrentDir   string        `bson:"torrent_dir" json:"torrent_dir"`
	TorrentName  string        `bson:"torrent_name" json:"torrent_name"`
	Name         string        `bson:"name" json:"name"`
	Length       int64         `bson:"length" json:"length"`
	NumFiles     int           `bson:"num_files" json:"num_files"`
	Announce     string        `bson:"announce" json:"announce"`
	AnnounceList []string      `bson:"announce_list,omitempty" json:"announce_list,omitempty"`
	CreationDate int64         `bson:"creation_date" json:"creation_date"`
	Category     string        `bson:"category" json:"category"`
	Seeders      uint32        `bson:"seeders" json:"seeders"`
	Leechers     uint32        `bson:"leechers" json:"leechers"`
	RetryCount   int           `bson:"retry_count" json:"retry_count"`
	IgnoreCount  int           `bson:"ignore_count" json:"ignore_count"`
	Relevance    int           `bson:"relevance" json:"relevance"`
	Status       TorrentStatus `bson:"status" json:"status"`
	LastCheck    *time.Time    `bson:"last_check,omitempty" json:"last_check,omitempty"`
	CreatedAt    *time.Time    `bson:"created_at" json:"created_at"`
}

func (r *TorrentRecord) CollectionName() string {
	return "torrents"
}

func (r *TorrentRecord) PrepareID(id interface{}) (interface{}, error) {
	return id, nil
}

func (r *TorrentRecord) GetID() interface{} {
	return r.InfoHash
}

func (r *TorrentRecord) SetID(id interface{}) {
	r.InfoHash = id.(string)
}

// TorrentDB is the authoritative mapping from info hash to record.
// ListLight returns records without their announce lists, cheap enough
// to call on every capacity re-count.
type TorrentDB interface {
	Get(infoHash []byte) (*TorrentRecord, error)
	Put(record *TorrentRecord, isNew bool, mustSync bool) error
	Delete(infoHash []byte) error
	ListLight() ([]*TorrentRecord, error)
	Count() (int, error)
	Sync() error
	Close() error
}
