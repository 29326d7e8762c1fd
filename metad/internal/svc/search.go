package svc

import (
	"context"

	"metabay/torrentdb"

	"github.com/juju/errors"
	"github.com/olivere/elastic/v7"
	"github.com/zeromicro/go-zero/core/logx"
)

// SearchIndexer mirrors freshly stored records into Elasticsearch so
// they are searchable. The index store stays authoritative; a failed
// mirror write is only logged.
type SearchIndexer struct {
	ctx    context.Context
	client *elastic.Client
}

func NewSearchIndexer(host string) (*SearchIndexer, error) {
	client, err := elastic.NewClient(
		elastic.SetURL(host),
		elastic.SetSniff(false),
	)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &SearchIndexer{
		ctx:    context.Background(),
		client: client,
	}, nil
}

func (i *SearchIndexer) Store(record *torrentdb.TorrentRecord) {
	_, err := i.client.Update().
		Index("torrents").
		Id(record.InfoHash).
		Doc(record).
		DocAsUpsert(true).
		Do(i.ctx)
	if err != nil {
		logx.Errorf("Failed to index torrent %s %s: %v", record.InfoHash, record.Name, err)
	}
}
