package tagging

import (
	"strconv"

	"sniffer/internal/media"
)

// Vorbis comment field names written for tracks, in write order.
const (
	FieldTitle       = "TITLE"
	FieldTrackNumber = "TRACKNUMBER"
	FieldTrackTotal  = "TRACKTOTAL"
	FieldDate        = "DATE"
	FieldAlbum       = "ALBUM"
	FieldArtist      = "ARTIST"
	FieldComposer    = "COMPOSER"
	FieldCopyright   = "COPYRIGHT"
	FieldDiscNumber  = "DISCNUMBER"
	FieldDiscTotal   = "DISCTOTAL"
	FieldGenre       = "GENRE"
	FieldLyricist    = "LYRICIST"
	FieldLyrics      = "LYRICS"
)

// managedFields are removed from existing comments before writing, so stale
// values never survive a rewrite. YEAR is cleared in favour of DATE.
var managedFields = []string{
	FieldTitle, FieldTrackNumber, FieldTrackTotal, FieldDate, FieldAlbum,
	FieldArtist, FieldComposer, FieldCopyright, FieldDiscNumber, FieldDiscTotal,
	FieldGenre, FieldLyricist, FieldLyrics, "YEAR",
}

type field struct {
	name  string
	value string
}

// trackFields returns the populated fields of track in write order. Empty
// strings and non-positive numbers are omitted.
func trackFields(track media.Track) []field {
	candidates := []field{
		{FieldTitle, track.Title},
		{FieldTrackNumber, number(track.TrackNumber)},
		{FieldTrackTotal, number(track.TrackTotal)},
		{FieldDate, track.Year},
		{FieldAlbum, track.Album},
		{FieldArtist, track.Artist},
		{FieldComposer, track.Composer},
		{FieldCopyright, track.Copyright},
		{FieldDiscNumber, number(track.DiscNumber)},
		{FieldDiscTotal, number(track.DiscTotal)},
		{FieldGenre, track.Genre},
		{FieldLyricist, track.Lyricist},
		{FieldLyrics, track.Lyrics},
	}
	out := candidates[:0]
	for _, f := range candidates {
		if f.value != "" {
			out = append(out, f)
		}
	}
	return out
}

func number(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
