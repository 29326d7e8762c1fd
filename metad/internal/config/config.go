package config

import (
	"time"

	"github.com/zeromicro/go-zero/core/proc"
	"github.com/zeromicro/go-zero/core/service"
)

type Config struct {
	service.ServiceConf
	Listen           string `json:",default=:23890"`
	TorrentDir       string `json:",default=torrents"`
	IndexPath        string `json:",default=torrents.db"`
	Mongo            string `json:",optional"`
	MongoDatabase    string `json:",default=metabay"`
	ElasticSearch    string `json:",optional"`
	AMQP             string `json:",optional"`
	MaxTorrents      int    `json:",default=100000"`
	RequestWorkers   int    `json:",default=16"`
	RequestQueueSize int    `json:",default=1000"`
	RequestRateLimit int    `json:",default=100"`
	RequestDedupTTL  int    `json:",default=300"`
	Tracker          string `json:",optional"`
	TrackerLimit     int    `json:",default=500"`
	TrackerInterval  int    `json:",default=600"`
	Socks5Proxy      string `json:",optional"`
	ForceQuitSeconds int    `json:",default=20"`
}

func (c *Config) MustSetUp() {
	c.ServiceConf.MustSetUp()
	proc.SetTimeToForceQuit(time.Duration(c.ForceQuitSeconds) * time.Second)
}
