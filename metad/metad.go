package main

import (
	"flag"
	_ "net/http/pprof"

	"metabay/metad/internal/config"
	"metabay/metad/internal/svc"

	"github.com/sirupsen/logrus"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/service"
)

var configFile = flag.String("f", "etc/metad.yaml", "the config file")

func main() {
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)
	c.MustSetUp()
	ctx := svc.NewServiceContext(c)

	// Enforce the torrent budget once up front so a full store left by a
	// previous run shrinks before new metadata arrives.
	ctx.Capacity.Check()

	group := service.NewServiceGroup()
	group.Add(ctx.Overlay)
	group.Add(ctx.Requester)
	if ctx.Checker != nil {
		group.Add(ctx.Checker)
	}
	defer group.Stop()

	logrus.Infof("Starting metad...")
	group.Start()
}
