package torrentdb

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/juju/errors"
	bolt "go.etcd.io/bbolt"
)

var torrentsBucket = []byte("torrents")

var _ TorrentDB = (*BoltDB)(nil)

// BoltDB is the default single-file index backend.
type BoltDB struct {
	db *bolt.DB
}

func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(torrentsBucket)
		return err
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &BoltDB{db: db}, nil
}

func (b *BoltDB) Get(infoHash []byte) (*TorrentRecord, error) {
	var record *TorrentRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(torrentsBucket).Get(key(infoHash))
		if data == nil {
			return ErrNotFound
		}
		record = &TorrentRecord{}
		return json.Unmarshal(data, record)
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return record, nil
}

func (b *BoltDB) Put(record *TorrentRecord, isNew bool, mustSync bool) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		encoded, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return tx.Bucket(torrentsBucket).Put([]byte(record.InfoHash), encoded)
	})
	if err != nil {
		return errors.Trace(err)
	}
	if mustSync {
		return errors.Trace(b.db.Sync())
	}
	return nil
}

func (b *BoltDB) Delete(infoHash []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(torrentsBucket).Delete(key(infoHash))
	})
	return errors.Trace(err)
}

func (b *BoltDB) ListLight() ([]*TorrentRecord, error) {
	records := make([]*TorrentRecord, 0)
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(torrentsBucket).ForEach(func(k, v []byte) error {
			record := &TorrentRecord{}
			if err := json.Unmarshal(v, record); err != nil {
				return err
			}
			record.AnnounceList = nil
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return records, nil
}

func (b *BoltDB) Count() (int, error) {
	count := 0
	err := b.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(torrentsBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, errors.Trace(err)
	}
	return count, nil
}

func (b *BoltDB) Sync() error {
	return errors.Trace(b.db.Sync())
}

func (b *BoltDB) Close() error {
	return b.db.Close()
}

func key(infoHash []byte) []byte {
	return []byte(hex.EncodeToString(infoHash))
}
