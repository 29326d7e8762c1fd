package svc

import (
	"context"
	"encoding/hex"
	"time"

	"metabay/common/bittorrent"
	"metabay/common/executor"
	"metabay/common/util"

	"golang.org/x/time/rate"
)

type MetadataRequest struct {
	Peer     string
	InfoHash []byte
}

// Requester fans outbound GET_METADATA requests over a worker pool,
// rate limited and deduplicated so one hot hash is not requested from
// the whole neighbourhood at once.
type Requester struct {
	handler  *Handler
	executor *executor.Executor[MetadataRequest]
	limiter  *rate.Limiter
	pending  *util.LRWCache[string, struct{}]
	ctx      context.Context
	cancel   context.CancelFunc
	ticker   *time.Ticker
}

type RequesterOptions struct {
	Workers   int
	QueueSize int
	RateLimit int
	DedupTTL  time.Duration
}

func NewRequester(handler *Handler, opts RequesterOptions) *Requester {
	r := &Requester{
		handler: handler,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateLimit),
		ticker:  time.NewTicker(time.Second),
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.pending = util.NewLRWCache[string, struct{}](r.ctx, opts.DedupTTL, opts.QueueSize*4)
	r.executor = executor.NewExecutor(r.ctx, opts.Workers, opts.QueueSize, r.send)
	return r
}

// Request queues an outbound metadata request. It never blocks: a full
// queue or an in-flight duplicate drops the request and returns false.
func (r *Requester) Request(peer string, infoHash []byte) bool {
	if !bittorrent.IsValidInfoHash(infoHash) {
		return false
	}
	key := hex.EncodeToString(infoHash)
	if r.pending.Exists(key) {
		metricHandlerEvent.Inc("request_dedup")
		return false
	}
	ok := r.executor.TryCommit(MetadataRequest{Peer: peer, InfoHash: infoHash})
	if !ok {
		metricHandlerEvent.Inc("request_drop")
		return false
	}
	r.pending.Set(key, struct{}{})
	return true
}

func (r *Requester) send(req MetadataRequest) {
	err := r.limiter.Wait(r.ctx)
	if err != nil {
		return
	}
	r.handler.RequestMetadata(req.Peer, req.InfoHash)
}

func (r *Requester) Start() {
	r.executor.Start()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.ticker.C:
			metricQueueSize.Set(float64(r.executor.QueueSize()), "metadata_requests")
		}
	}
}

func (r *Requester) Stop() {
	r.ticker.Stop()
	r.cancel()
	r.executor.Stop()
}
