package svc

import (
	"encoding/hex"

	"metabay/common/bencode"
	"metabay/common/bittorrent"
	"metabay/overlay"
	"metabay/torrentdb"

	"github.com/zeromicro/go-zero/core/logx"
)

// One-byte message type tags on the overlay wire.
const (
	MsgGetMetadata byte = 0x01
	MsgMetadata    byte = 0x02
)

// DownloadHelper is told about each verified metadata payload after it
// is stored. Notification is best effort and never rolls back a save.
type DownloadHelper interface {
	Notify(infoHash []byte, metadata []byte)
}

// Handler answers GET_METADATA requests from the local store and
// ingests METADATA responses after content verification. It keeps no
// per-peer state; every message stands alone.
type Handler struct {
	store    *TorrentStore
	capacity *CapacityController
	db       torrentdb.TorrentDB
	overlay  overlay.Overlay
	helper   DownloadHelper
	search   *SearchIndexer
}

func NewHandler(store *TorrentStore, capacity *CapacityController, db torrentdb.TorrentDB, ov overlay.Overlay, helper DownloadHelper, search *SearchIndexer) *Handler {
	return &Handler{
		store:    store,
		capacity: capacity,
		db:       db,
		overlay:  ov,
		helper:   helper,
		search:   search,
	}
}

// HandleMessage is the overlay callback. False means the message was
// malformed or unrecognized; the transport uses that for diagnostics
// only.
func (h *Handler) HandleMessage(peer string, msg []byte) bool {
	if len(msg) < 1 {
		return false
	}
	switch msg[0] {
	case MsgGetMetadata:
		metricOverlayReceive.Inc("get_metadata")
		return h.sendMetadata(peer, msg[1:])
	case MsgMetadata:
		metricOverlayReceive.Inc("metadata")
		return h.gotMetadata(peer, msg[1:])
	default:
		metricOverlayReceive.Inc("unknown")
		logx.Debugf("Unknown overlay message type %d from %s", msg[0], peer)
		return false
	}
}

// RequestMetadata asks peer for the payload of infoHash. It returns as
// soon as the request is handed to the transport; the answer, if any,
// arrives later as an independent METADATA message.
func (h *Handler) RequestMetadata(peer string, infoHash []byte) bool {
	if !bittorrent.IsValidInfoHash(infoHash) {
		return false
	}
	encoded, err := bencode.BEncode(infoHash)
	if err != nil {
		return false
	}
	err = h.overlay.Send(peer, append([]byte{MsgGetMetadata}, encoded...))
	if err != nil {
		logx.Debugf("Failed to send metadata request to %s: %v", peer, err)
		return false
	}
	metricOverlaySend.Inc("get_metadata")
	return true
}

func (h *Handler) sendMetadata(peer string, payload []byte) bool {
	decoded, err := bencode.BDecode(payload)
	if err != nil {
		metricHandlerEvent.Inc("request_decode_fail")
		return false
	}
	infoHash, ok := decoded.([]byte)
	if !ok || !bittorrent.IsValidInfoHash(infoHash) {
		metricHandlerEvent.Inc("request_bad_hash")
		return false
	}

	path, ok := h.store.Find(infoHash)
	if !ok {
		// Unknown here. Not an error, just nothing to answer with.
		metricHandlerEvent.Inc("request_miss")
		return true
	}
	metadata, ok := h.store.Read(path)
	if !ok {
		metricHandlerEvent.Inc("request_unreadable")
		return true
	}

	encoded, err := bencode.BEncode(map[string]any{
		"torrent_hash": infoHash,
		"metadata":     metadata,
	})
	if err != nil {
		return false
	}
	err = h.overlay.Send(peer, append([]byte{MsgMetadata}, encoded...))
	if err != nil {
		logx.Debugf("Failed to send metadata to %s: %v", peer, err)
		return false
	}
	metricOverlaySend.Inc("metadata")
	metricHandlerEvent.Inc("request_served")
	return true
}

func (h *Handler) gotMetadata(peer string, payload []byte) bool {
	dict, _, err := bencode.BDecodeDict(payload)
	if err != nil {
		metricHandlerEvent.Inc("ingest_decode_fail")
		return false
	}
	infoHash := bencode.GetBytes(dict, "torrent_hash")
	metadata := bencode.GetBytes(dict, "metadata")
	if infoHash == nil || metadata == nil {
		metricHandlerEvent.Inc("ingest_decode_fail")
		return false
	}
	if !bittorrent.IsValidInfoHash(infoHash) || len(metadata) > bittorrent.MaxMetadataSize {
		metricHandlerEvent.Inc("ingest_bad_format")
		return false
	}
	if !bittorrent.VerifyInfoHash(infoHash, metadata) {
		metricHandlerEvent.Inc("ingest_hash_mismatch")
		logx.Infof("Metadata from %s does not hash to %s, dropped", peer, hex.EncodeToString(infoHash))
		return false
	}

	record, err := h.store.Save(infoHash, metadata)
	if err != nil {
		metricHandlerEvent.Inc("ingest_store_fail")
		logx.Errorf("Failed to store metadata for %s: %+v", hex.EncodeToString(infoHash), err)
		return false
	}
	h.capacity.OnRecordAdded()
	err = h.db.Sync()
	if err != nil {
		logx.Errorf("Index sync failed: %+v", err)
	}

	if h.search != nil {
		h.search.Store(record)
	}
	if h.helper != nil {
		h.helper.Notify(infoHash, metadata)
	}
	metricHandlerEvent.Inc("ingest_saved")
	logx.Infof("Stored metadata for %s (%s, %d bytes)", record.InfoHash, record.Name, len(metadata))
	return true
}
