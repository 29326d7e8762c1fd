package torrentdb

import (
	"context"
	"encoding/hex"

	"github.com/juju/errors"
	"github.com/kamva/mgm/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ TorrentDB = (*MongoDB)(nil)

// MongoDB backs the index with a torrents collection. Durability is the
// server's concern, so Sync is a no-op.
type MongoDB struct {
	coll *mgm.Collection
}

func NewMongoDB(dbName, uri string) (*MongoDB, error) {
	err := mgm.SetDefaultConfig(nil, dbName, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &MongoDB{coll: mgm.Coll(&TorrentRecord{})}, nil
}

func (m *MongoDB) Get(infoHash []byte) (*TorrentRecord, error) {
	record := &TorrentRecord{}
	err := m.coll.FindByID(hex.EncodeToString(infoHash), record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, errors.Trace(err)
	}
	return record, nil
}

func (m *MongoDB) Put(record *TorrentRecord, isNew bool, mustSync bool) error {
	opts := options.Update()
	opts.SetUpsert(isNew)
	err := m.coll.Update(record, opts)
	return errors.Trace(err)
}

func (m *MongoDB) Delete(infoHash []byte) error {
	_, err := m.coll.DeleteOne(context.Background(), bson.M{
		"_id": hex.EncodeToString(infoHash),
	})
	return errors.Trace(err)
}

func (m *MongoDB) ListLight() ([]*TorrentRecord, error) {
	records := make([]*TorrentRecord, 0)
	err := m.coll.SimpleFind(&records, bson.M{}, &options.FindOptions{
		Projection: bson.M{
			"_id":           true,
			"torrent_dir":   true,
			"torrent_name":  true,
			"status":        true,
			"retry_count":   true,
			"relevance":     true,
			"creation_date": true,
			"last_check":    true,
			"length":        true,
		},
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return records, nil
}

func (m *MongoDB) Count() (int, error) {
	count, err := m.coll.CountDocuments(context.Background(), bson.M{})
	if err != nil {
		return 0, errors.Trace(err)
	}
	return int(count), nil
}

func (m *MongoDB) Sync() error {
	return nil
}

func (m *MongoDB) Close() error {
	return nil
}
