package bittorrent

import (
	"path"
	"strings"
)

// Classifier assigns a category tag to a parsed metadata payload. It is
// a pure function of the metainfo and display name.
type Classifier interface {
	Classify(mi *MetaInfo, name string) string
}

const CategoryOther = "other"

var extCategories = map[string]string{
	".mp4": "video", ".mkv": "video", ".avi": "video", ".wmv": "video",
	".mov": "video", ".flv": "video", ".ts": "video", ".m2ts": "video",
	".mp3": "audio", ".flac": "audio", ".aac": "audio", ".ogg": "audio",
	".wav": "audio", ".m4a": "audio", ".ape": "audio",
	".jpg": "image", ".jpeg": "image", ".png": "image", ".gif": "image",
	".bmp": "image", ".webp": "image",
	".zip": "archive", ".rar": "archive", ".7z": "archive",
	".tar": "archive", ".gz": "archive", ".bz2": "archive",
	".exe": "software", ".msi": "software", ".iso": "software",
	".dmg": "software", ".apk": "software", ".deb": "software",
	".pdf": "document", ".epub": "document", ".mobi": "document",
	".djvu": "document", ".txt": "document", ".doc": "document",
	".docx": "document",
}

type extClassifier struct{}

func NewClassifier() Classifier {
	return extClassifier{}
}

// Classify picks the category carrying the most bytes. A single-file
// torrent has no file list, so the display name decides.
func (extClassifier) Classify(mi *MetaInfo, name string) string {
	if mi == nil || len(mi.Files) == 0 {
		if cat, ok := extCategories[ext(name)]; ok {
			return cat
		}
		return CategoryOther
	}
	sizes := make(map[string]int64)
	for _, f := range mi.Files {
		if len(f.Path) == 0 {
			continue
		}
		cat, ok := extCategories[ext(f.Path[len(f.Path)-1])]
		if !ok {
			cat = CategoryOther
		}
		sizes[cat] += f.Length
	}
	best := CategoryOther
	var bestSize int64 = -1
	for cat, size := range sizes {
		if size > bestSize {
			best = cat
			bestSize = size
		}
	}
	return best
}

func ext(name string) string {
	return strings.ToLower(path.Ext(name))
}
