package tracker

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"math/rand"
	"net"
	"sync/atomic"
	"time"

	"metabay/common/util"

	"github.com/juju/errors"
	"github.com/zeromicro/go-zero/core/logx"
)

const (
	protocolMagic uint64 = 0x41727101980

	actionConnect uint32 = 0x00
	actionScrape  uint32 = 0x02
	actionError   uint32 = 0x03

	// MaxScrapeHashes bounds one scrape request per BEP 15.
	MaxScrapeHashes = 74

	pendingTTL  = 30 * time.Second
	pendingSize = 64
)

type connectRequest struct {
	ProtocolMagic uint64
	Action        uint32
	TransactionID uint32
}

type connectResponse struct {
	ConnectionID uint64
}

type requestHeader struct {
	ConnectionID  uint64
	Action        uint32
	TransactionID uint32
}

type responseHeader struct {
	Action        uint32
	TransactionID uint32
}

type swarmCounters struct {
	Seeders   uint32
	Completed uint32
	Leechers  uint32
}

var _ Scraper = (*UDPScraper)(nil)

// UDPScraper speaks the BEP 15 UDP tracker protocol over a single
// connected socket. Scrape answers are matched to requests by
// transaction id through a short-lived pending table.
type UDPScraper struct {
	addr         string
	conn         *net.UDPConn
	connected    chan struct{}
	connectionID atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc

	pending *util.LRWCache[uint32, [][]byte]
	results chan []*ScrapeResult
}

func NewUDPScraper(ctx context.Context, addr string) *UDPScraper {
	s := &UDPScraper{
		addr:      addr,
		connected: make(chan struct{}, 1),
		results:   make(chan []*ScrapeResult),
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.pending = util.NewLRWCache[uint32, [][]byte](s.ctx, pendingTTL, pendingSize)
	return s
}

func (s *UDPScraper) Results() <-chan []*ScrapeResult {
	return s.results
}

func (s *UDPScraper) Start() error {
	if s.conn != nil {
		return nil
	}
	addr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return errors.Trace(err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return errors.Trace(err)
	}
	s.conn = conn
	if s.connectionID.Load() == 0 {
		err = s.sendConnect()
		if err != nil {
			return errors.Trace(err)
		}
	}
	go s.receive()
	return nil
}

func (s *UDPScraper) Stop() {
	s.cancel()
	s.disconnect()
	s.pending.Close()
}

// Scrape queues one request for up to MaxScrapeHashes hashes. It blocks
// until the tracker handshake finished, then returns as soon as the
// datagram is on the wire.
func (s *UDPScraper) Scrape(infoHashes [][]byte) error {
	if len(infoHashes) == 0 {
		return nil
	}
	if len(infoHashes) > MaxScrapeHashes {
		return errors.Errorf("scrape of %d hashes exceeds the %d per-request bound", len(infoHashes), MaxScrapeHashes)
	}
	if s.connectionID.Load() == 0 {
		select {
		case <-s.connected:
		case <-s.ctx.Done():
			return errors.New("scraper stopped before the tracker handshake")
		}
	}

	hdr := requestHeader{
		ConnectionID:  s.connectionID.Load(),
		Action:        actionScrape,
		TransactionID: rand.Uint32(),
	}
	writer := bytes.NewBuffer(make([]byte, 0, 16+20*len(infoHashes)))
	err := binary.Write(writer, binary.BigEndian, hdr)
	if err != nil {
		return errors.Trace(err)
	}
	// The pending table keeps its own copy, callers may reuse the batch.
	queued := make([][]byte, len(infoHashes))
	for i, infoHash := range infoHashes {
		_, err = writer.Write(infoHash[:20])
		if err != nil {
			return errors.Trace(err)
		}
		queued[i] = append([]byte(nil), infoHash[:20]...)
	}
	s.pending.Set(hdr.TransactionID, queued)
	_, err = s.conn.Write(writer.Bytes())
	if err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (s *UDPScraper) sendConnect() error {
	req := connectRequest{
		ProtocolMagic: protocolMagic,
		Action:        actionConnect,
		TransactionID: rand.Uint32(),
	}
	return errors.Trace(binary.Write(s.conn, binary.BigEndian, req))
}

func (s *UDPScraper) disconnect() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *UDPScraper) receive() {
	// 16 header bytes plus 12 per hash, 2048 covers a full request.
	buf := make([]byte, 2048)
	for {
		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			logx.Errorf("Tracker read failed: %+v", err)
			s.disconnect()
			return
		}
		reader := bytes.NewReader(buf[:n])
		hdr := responseHeader{}
		err = binary.Read(reader, binary.BigEndian, &hdr)
		if err != nil {
			logx.Errorf("Broken tracker response header: %+v", err)
			continue
		}
		switch hdr.Action {
		case actionConnect:
			err = s.handleConnect(reader)
		case actionScrape:
			err = s.handleScrape(reader, hdr.TransactionID)
		case actionError:
			msg, _ := io.ReadAll(reader)
			logx.Errorf("Tracker rejected transaction %d: %s", hdr.TransactionID, msg)
			s.pending.Delete(hdr.TransactionID)
		default:
			logx.Errorf("Unknown tracker action %d", hdr.Action)
		}
		if err != nil {
			logx.Errorf("Failed to handle tracker response: %+v", err)
		}
	}
}

func (s *UDPScraper) handleConnect(reader io.Reader) error {
	resp := connectResponse{}
	err := binary.Read(reader, binary.BigEndian, &resp)
	if err != nil {
		return errors.Trace(err)
	}
	s.connectionID.Store(resp.ConnectionID)
	logx.Infof("Tracker handshake done, connection %d", resp.ConnectionID)
	select {
	case s.connected <- struct{}{}:
	default:
	}
	return nil
}

func (s *UDPScraper) handleScrape(reader io.Reader, transactionID uint32) error {
	infoHashes, ok := s.pending.GetAndRemove(transactionID)
	if !ok {
		logx.Infof("Dropping scrape answer for expired transaction %d", transactionID)
		return nil
	}
	results := make([]*ScrapeResult, 0, len(infoHashes))
	for _, infoHash := range infoHashes {
		counters := swarmCounters{}
		err := binary.Read(reader, binary.BigEndian, &counters)
		if err != nil {
			return errors.Trace(err)
		}
		results = append(results, &ScrapeResult{
			InfoHash:  infoHash,
			Seeders:   counters.Seeders,
			Completed: counters.Completed,
			Leechers:  counters.Leechers,
		})
	}
	// Never strand this goroutine on a consumer that already stopped.
	select {
	case s.results <- results:
	case <-s.ctx.Done():
	}
	return nil
}
