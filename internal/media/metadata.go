package media

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"sniffer/internal/textutil"
)

// Kind identifies the variant held by a Metadata value.
type Kind string

const (
	KindTrack Kind = "track"
	KindMovie Kind = "movie"
	// KindUnknown describes an asset whose metadata could not be resolved.
	KindUnknown Kind = "unknown"
)

// Metadata is the closed set of catalog records. A nil Metadata means the
// asset could not be resolved. Only Track and Movie implement it.
type Metadata interface {
	Kind() Kind
	// CanonicalName is the file name stem for the saved asset.
	CanonicalName() string
	sealed()
}

// KindOf returns the kind of m, treating nil as KindUnknown.
func KindOf(m Metadata) Kind {
	if m == nil {
		return KindUnknown
	}
	return m.Kind()
}

// Track is the catalog record for an audio track. Zero numeric fields and
// empty strings mean the catalog did not supply the value.
type Track struct {
	Title       string
	Album       string
	Artist      string
	Composer    string
	Lyricist    string
	Genre       string
	Copyright   string
	Lyrics      string
	Year        string
	TrackNumber int
	TrackTotal  int
	DiscNumber  int
	DiscTotal   int
	CoverArtURL string
}

func (Track) Kind() Kind { return KindTrack }

func (Track) sealed() {}

// CanonicalName renders "NN Title"; without a track number only the title is used.
func (t Track) CanonicalName() string {
	if t.TrackNumber <= 0 {
		return t.Title
	}
	return fmt.Sprintf("%02d %s", t.TrackNumber, t.Title)
}

// CoverArtExtension returns the file extension of the cover art URL without
// the leading dot, or "jpg" when the URL carries none.
func (t Track) CoverArtExtension() string {
	raw := strings.TrimSpace(t.CoverArtURL)
	if raw == "" {
		return ""
	}
	p := raw
	if parsed, err := url.Parse(raw); err == nil {
		p = parsed.Path
	}
	ext := strings.TrimPrefix(path.Ext(p), ".")
	if ext == "" || !isAlphanumeric(ext) {
		return "jpg"
	}
	return strings.ToLower(ext)
}

// CoverFileName is the name under which the cover art is saved beside the
// track: "{album}.{ext}". Empty when the track has no cover art URL.
func (t Track) CoverFileName() string {
	ext := t.CoverArtExtension()
	if ext == "" {
		return ""
	}
	return textutil.SegmentOr(t.Album, "cover") + "." + ext
}

// Movie is the catalog record for a music video.
type Movie struct {
	Title  string
	Artist string
}

func (Movie) Kind() Kind { return KindMovie }

func (Movie) sealed() {}

// CanonicalName returns the title.
func (m Movie) CanonicalName() string { return m.Title }

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
