package svc

import (
	"context"
	"time"

	"metabay/common/bittorrent"
	"metabay/common/bittorrent/tracker"
	"metabay/metad/internal/config"
	"metabay/overlay"
	"metabay/torrentdb"

	"github.com/zeromicro/go-zero/core/logx"
)

type ServiceContext struct {
	Config    config.Config
	DB        torrentdb.TorrentDB
	Store     *TorrentStore
	Capacity  *CapacityController
	Handler   *Handler
	Requester *Requester
	Overlay   *overlay.TCPOverlay
	Checker   *HealthChecker
}

func NewServiceContext(c config.Config) *ServiceContext {
	svcCtx := &ServiceContext{
		Config: c,
	}

	var err error
	if len(c.Mongo) > 0 {
		svcCtx.DB, err = torrentdb.NewMongoDB(c.MongoDatabase, c.Mongo)
	} else {
		svcCtx.DB, err = torrentdb.NewBoltDB(c.IndexPath)
	}
	if err != nil {
		logx.Errorf("Failed to open torrent index: %+v", err)
		panic(err)
	}

	svcCtx.Overlay, err = overlay.NewTCPOverlay(overlay.TCPOverlayOptions{
		Listen:      c.Listen,
		Socks5Proxy: c.Socks5Proxy,
	})
	if err != nil {
		logx.Errorf("Failed to initialize overlay: %+v", err)
		panic(err)
	}

	var helper DownloadHelper
	if len(c.AMQP) > 0 {
		helper, err = NewAMQPNotifier(c.AMQP)
		if err != nil {
			logx.Errorf("Failed to connect notifier: %+v", err)
			panic(err)
		}
	}

	var search *SearchIndexer
	if len(c.ElasticSearch) > 0 {
		search, err = NewSearchIndexer(c.ElasticSearch)
		if err != nil {
			logx.Errorf("Failed to connect search indexer: %+v", err)
			panic(err)
		}
	}

	svcCtx.Store = NewTorrentStore(c.TorrentDir, svcCtx.DB, bittorrent.NewClassifier())
	svcCtx.Capacity = NewCapacityController(svcCtx.DB, svcCtx.Store, c.MaxTorrents)
	svcCtx.Handler = NewHandler(svcCtx.Store, svcCtx.Capacity, svcCtx.DB, svcCtx.Overlay, helper, search)
	svcCtx.Overlay.RegisterHandler(svcCtx.Handler.HandleMessage)
	svcCtx.Requester = NewRequester(svcCtx.Handler, RequesterOptions{
		Workers:   c.RequestWorkers,
		QueueSize: c.RequestQueueSize,
		RateLimit: c.RequestRateLimit,
		DedupTTL:  time.Duration(c.RequestDedupTTL) * time.Second,
	})
	if len(c.Tracker) > 0 {
		scraper := tracker.NewUDPScraper(context.Background(), c.Tracker)
		svcCtx.Checker = NewHealthChecker(svcCtx.DB, svcCtx.Store, scraper,
			time.Duration(c.TrackerInterval)*time.Second, c.TrackerLimit)
	}
	return svcCtx
}
