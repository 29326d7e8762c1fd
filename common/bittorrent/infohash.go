package bittorrent

import (
	"bytes"
	"crypto/sha1"

	"metabay/common/bencode"
)

const (
	// InfoHashSize is the length of a torrent info hash in bytes.
	InfoHashSize = 20

	// MaxMetadataSize bounds a single .torrent payload. 8MB of
	// metadata describes roughly 80G of content.
	MaxMetadataSize = 8 * 1024 * 1024
)

func IsValidInfoHash(infoHash []byte) bool {
	return len(infoHash) == InfoHashSize
}

// VerifyInfoHash reports whether metadata hashes to infoHash. The info
// dict is re-encoded in its wire order before hashing, so a decoded and
// re-encoded payload verifies iff the bytes were untouched. Any decode
// failure or missing info dict verifies false.
func VerifyInfoHash(infoHash []byte, metadata []byte) bool {
	if !IsValidInfoHash(infoHash) {
		return false
	}
	dict, _, err := bencode.BDecodeDict(metadata)
	if err != nil {
		return false
	}
	info, ok := bencode.GetDict(dict, "info")
	if !ok {
		return false
	}
	encoded, err := bencode.BEncode(info)
	if err != nil {
		return false
	}
	sum := sha1.Sum([]byte(encoded))
	return bytes.Equal(sum[:], infoHash)
}
