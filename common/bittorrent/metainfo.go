package bittorrent

import (
	"reflect"
	"strings"

	"metabay/common/bencode"

	"github.com/juju/errors"
	"github.com/mitchellh/mapstructure"
)

type MetaFile struct {
	Length int64    `mapstructure:"length"`
	Path   []string `mapstructure:"path"`
}

// MetaInfo is the flattened view of a .torrent payload that the index
// keeps. Raw piece data is never retained here.
type MetaInfo struct {
	Name         string
	Length       int64
	NumFiles     int
	Files        []MetaFile
	Announce     string
	AnnounceList []string
	CreationDate int64
}

type rawInfo struct {
	Name   string     `mapstructure:"name"`
	Length int64      `mapstructure:"length"`
	Files  []MetaFile `mapstructure:"files"`
}

type rawMetaInfo struct {
	Info         rawInfo    `mapstructure:"info"`
	Announce     string     `mapstructure:"announce"`
	AnnounceList [][]string `mapstructure:"announce-list"`
	CreationDate int64      `mapstructure:"creation date"`
}

// ParseMetaInfo decodes a metadata payload into a MetaInfo. Single-file
// torrents report NumFiles 1 with the top-level length; multi-file
// torrents sum their file lengths.
func ParseMetaInfo(metadata []byte) (*MetaInfo, error) {
	dict, _, err := bencode.BDecodeDict(metadata)
	if err != nil {
		return nil, errors.Trace(err)
	}
	raw := rawMetaInfo{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &raw,
		DecodeHook: func(src reflect.Kind, target reflect.Kind, from interface{}) (interface{}, error) {
			if target == reflect.String {
				switch v := from.(type) {
				case []byte:
					return strings.ToValidUTF8(string(v), ""), nil
				case string:
					return strings.ToValidUTF8(v, ""), nil
				}
			}
			return from, nil
		},
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	err = decoder.Decode(bencode.ToMap(dict))
	if err != nil {
		return nil, errors.Trace(err)
	}

	ret := &MetaInfo{
		Name:         raw.Info.Name,
		Files:        raw.Info.Files,
		Announce:     raw.Announce,
		CreationDate: raw.CreationDate,
	}
	if len(raw.Info.Files) > 0 {
		ret.NumFiles = len(raw.Info.Files)
		for _, f := range raw.Info.Files {
			ret.Length += f.Length
		}
	} else {
		ret.NumFiles = 1
		ret.Length = raw.Info.Length
	}
	for _, tier := range raw.AnnounceList {
		ret.AnnounceList = append(ret.AnnounceList, tier...)
	}
	return ret, nil
}
