package svc

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"metabay/common/bittorrent"
	"metabay/torrentdb"

	"github.com/juju/errors"
	"github.com/zeromicro/go-zero/core/logx"
)

// TorrentStore owns the on-disk payload files and the index records
// describing them. Nothing else writes either.
type TorrentStore struct {
	dir        string
	db         torrentdb.TorrentDB
	classifier bittorrent.Classifier
}

func NewTorrentStore(dir string, db torrentdb.TorrentDB, classifier bittorrent.Classifier) *TorrentStore {
	return &TorrentStore{
		dir:        dir,
		db:         db,
		classifier: classifier,
	}
}

// Find resolves an info hash to the payload path. A stale index entry
// whose file is gone reads as not found.
func (s *TorrentStore) Find(infoHash []byte) (string, bool) {
	record, err := s.db.Get(infoHash)
	if err != nil {
		return "", false
	}
	path := filepath.Join(record.TorrentDir, record.TorrentName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// Read returns the payload bytes, refusing files over the metadata
// bound. An exactly MaxMetadataSize file is still legal.
func (s *TorrentStore) Read(path string) ([]byte, bool) {
	info, err := os.Stat(path)
	if err != nil || info.Size() > bittorrent.MaxMetadataSize {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Save writes the payload to disk and upserts its index record. The
// caller has already verified metadata against infoHash.
func (s *TorrentStore) Save(infoHash []byte, metadata []byte) (*torrentdb.TorrentRecord, error) {
	mi, err := bittorrent.ParseMetaInfo(metadata)
	if err != nil {
		return nil, errors.Trace(err)
	}

	err = os.MkdirAll(s.dir, 0755)
	if err != nil {
		return nil, errors.Trace(err)
	}
	fileName := s.chooseFileName(infoHash)
	err = os.WriteFile(filepath.Join(s.dir, fileName), metadata, 0644)
	if err != nil {
		return nil, errors.Trace(err)
	}

	now := time.Now()
	record := &torrentdb.TorrentRecord{
		InfoHash:     hex.EncodeToString(infoHash),
		TorrentDir:   s.dir,
		TorrentName:  fileName,
		Name:         mi.Name,
		Length:       mi.Length,
		NumFiles:     mi.NumFiles,
		Announce:     mi.Announce,
		AnnounceList: mi.AnnounceList,
		CreationDate: mi.CreationDate,
		Category:     s.classifier.Classify(mi, mi.Name),
		Status:       torrentdb.StatusUnknown,
		CreatedAt:    &now,
	}
	err = s.db.Put(record, true, false)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return record, nil
}

// Remove deletes the payload file and the index entry. A missing file
// does not block removal of the record.
func (s *TorrentStore) Remove(infoHash []byte) error {
	record, err := s.db.Get(infoHash)
	if err != nil {
		return errors.Trace(err)
	}
	err = os.Remove(filepath.Join(record.TorrentDir, record.TorrentName))
	if err != nil && !os.IsNotExist(err) {
		logx.Errorf("Failed to remove payload for %s: %v", record.InfoHash, err)
	}
	return errors.Trace(s.db.Delete(infoHash))
}

// UpdateHealth applies an external health-check result to the record.
func (s *TorrentStore) UpdateHealth(infoHash []byte, seeders, leechers uint32, status torrentdb.TorrentStatus) error {
	record, err := s.db.Get(infoHash)
	if err != nil {
		return errors.Trace(err)
	}
	now := time.Now()
	record.Seeders = seeders
	record.Leechers = leechers
	record.Status = status
	record.LastCheck = &now
	if status == torrentdb.StatusDead {
		record.RetryCount++
	} else {
		record.RetryCount = 0
	}
	return errors.Trace(s.db.Put(record, false, false))
}

// Payload files are named after the hash of the info hash. A second
// copy arriving for a name already on disk gets a timestamp prefix
// instead of overwriting.
func (s *TorrentStore) chooseFileName(infoHash []byte) string {
	sum := sha1.Sum(infoHash)
	fileName := hex.EncodeToString(sum[:]) + ".torrent"
	_, err := os.Stat(filepath.Join(s.dir, fileName))
	if err == nil {
		fileName = fmt.Sprintf("%d_%s", time.Now().UnixNano(), fileName)
	}
	return fileName
}
