package overlay

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"github.com/zeromicro/go-zero/core/threading"
	"golang.org/x/net/proxy"
)

// Frames are a 4-byte big-endian length followed by the payload. The
// bound leaves headroom above the largest legal metadata message.
const maxFrameSize = 9 * 1024 * 1024

type TCPOverlayOptions struct {
	Listen      string
	Socks5Proxy string
}

var _ Overlay = (*TCPOverlay)(nil)

// TCPOverlay keeps one connection per peer, identified by remote
// address. Each connection has a single read loop, which serializes
// handling of messages from that peer.
type TCPOverlay struct {
	opts     TCPOverlayOptions
	handler  HandlerFunc
	listener net.Listener
	dialer   proxy.Dialer

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	conns map[string]*peerConn
}

type peerConn struct {
	conn    net.Conn
	writeMu sync.Mutex
}

func NewTCPOverlay(opts TCPOverlayOptions) (*TCPOverlay, error) {
	o := &TCPOverlay{
		opts:  opts,
		conns: make(map[string]*peerConn),
	}
	var err error
	if len(opts.Socks5Proxy) > 0 {
		o.dialer, err = proxy.SOCKS5("tcp", opts.Socks5Proxy, nil, nil)
		if err != nil {
			return nil, errors.Trace(err)
		}
	} else {
		o.dialer = &net.Dialer{}
	}
	o.ctx, o.cancel = context.WithCancel(context.Background())
	return o, nil
}

func (o *TCPOverlay) RegisterHandler(h HandlerFunc) {
	o.handler = h
}

// Addr returns the bound listen address, valid after Start.
func (o *TCPOverlay) Addr() string {
	if o.listener == nil {
		return ""
	}
	return o.listener.Addr().String()
}

func (o *TCPOverlay) Start() {
	listener, err := net.Listen("tcp", o.opts.Listen)
	if err != nil {
		logrus.Errorf("Failed to listen on %s: %v", o.opts.Listen, err)
		panic(err)
	}
	o.listener = listener
	logrus.Infof("Overlay listening on %s", listener.Addr())
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-o.ctx.Done():
				return
			default:
			}
			logrus.Errorf("Accept failed: %v", err)
			continue
		}
		o.track(conn)
	}
}

func (o *TCPOverlay) Stop() {
	o.cancel()
	if o.listener != nil {
		_ = o.listener.Close()
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for peer, pc := range o.conns {
		_ = pc.conn.Close()
		delete(o.conns, peer)
	}
}

func (o *TCPOverlay) track(conn net.Conn) *peerConn {
	peer := conn.RemoteAddr().String()
	pc := &peerConn{conn: conn}
	o.mu.Lock()
	if existing, ok := o.conns[peer]; ok {
		o.mu.Unlock()
		_ = conn.Close()
		return existing
	}
	o.conns[peer] = pc
	o.mu.Unlock()
	go o.readLoop(peer, pc)
	return pc
}

func (o *TCPOverlay) drop(peer string, pc *peerConn) {
	_ = pc.conn.Close()
	o.mu.Lock()
	if o.conns[peer] == pc {
		delete(o.conns, peer)
	}
	o.mu.Unlock()
}

func (o *TCPOverlay) readLoop(peer string, pc *peerConn) {
	defer o.drop(peer, pc)
	for {
		msg, err := readFrame(pc.conn)
		if err != nil {
			if err != io.EOF {
				logrus.Debugf("Connection to %s broken: %v", peer, err)
			}
			return
		}
		if o.handler == nil {
			continue
		}
		// A handler panic costs at most this one message, never the
		// process.
		handled := false
		threading.RunSafe(func() {
			handled = o.handler(peer, msg)
		})
		if !handled {
			logrus.Debugf("Unhandled message from %s, %d bytes", peer, len(msg))
		}
	}
}

// Send reuses the live connection for the peer, dialing only when none
// exists. Replies to inbound peers therefore flow back on the same
// connection they arrived on.
func (o *TCPOverlay) Send(peer string, msg []byte) error {
	pc, err := o.peerConn(peer)
	if err != nil {
		return errors.Trace(err)
	}
	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	err = writeFrame(pc.conn, msg)
	if err != nil {
		o.drop(peer, pc)
		return errors.Trace(err)
	}
	return nil
}

func (o *TCPOverlay) peerConn(peer string) (*peerConn, error) {
	o.mu.RLock()
	pc, ok := o.conns[peer]
	o.mu.RUnlock()
	if ok {
		return pc, nil
	}
	conn, err := o.dialer.Dial("tcp", peer)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return o.track(conn), nil
}

func readFrame(conn net.Conn) ([]byte, error) {
	header := make([]byte, 4)
	_, err := io.ReadFull(conn, header)
	if err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(header)
	if length == 0 || length > maxFrameSize {
		return nil, fmt.Errorf("illegal frame size %d", length)
	}
	msg := make([]byte, length)
	_, err = io.ReadFull(conn, msg)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func writeFrame(conn net.Conn, msg []byte) error {
	if len(msg) == 0 || len(msg) > maxFrameSize {
		return fmt.Errorf("illegal frame size %d", len(msg))
	}
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(msg)))
	_, err := conn.Write(header)
	if err != nil {
		return err
	}
	_, err = conn.Write(msg)
	return err
}
