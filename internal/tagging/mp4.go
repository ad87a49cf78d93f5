package tagging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zhaarey/go-mp4tag"

	"sniffer/internal/fileutil"
	"sniffer/internal/media"
)

// MP4Writer rewrites iTunes-style tags in m4a files.
type MP4Writer struct{}

func (MP4Writer) Extensions() []string { return []string{"m4a"} }

// Write tags a temporary copy and renames it over the original, so a failed
// rewrite leaves the downloaded file as it was.
func (MP4Writer) Write(_ context.Context, dir, fileName string, track media.Track) error {
	path := filepath.Join(dir, fileName)
	tmp, err := fileutil.TempSibling(path)
	if err != nil {
		return fmt.Errorf("create temp copy: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	if err := fileutil.CopyFile(path, tmp); err != nil {
		return fmt.Errorf("copy m4a: %w", err)
	}
	if err := writeMP4Tags(tmp, track); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace m4a: %w", err)
	}
	committed = true
	return nil
}

func writeMP4Tags(path string, track media.Track) error {
	tags := &mp4tag.MP4Tags{
		Title:       track.Title,
		Album:       track.Album,
		Artist:      track.Artist,
		AlbumArtist: track.Artist,
		Composer:    track.Composer,
		CustomGenre: track.Genre,
		Lyrics:      track.Lyrics,
		Date:        track.Year,
		Copyright:   track.Copyright,
		TrackNumber: int16(track.TrackNumber),
		TrackTotal:  int16(track.TrackTotal),
		DiscNumber:  int16(track.DiscNumber),
		DiscTotal:   int16(track.DiscTotal),
	}
	if track.Lyricist != "" {
		tags.Custom = map[string]string{FieldLyricist: track.Lyricist}
	}

	mp4, err := mp4tag.Open(path)
	if err != nil {
		return fmt.Errorf("open m4a: %w", err)
	}
	defer mp4.Close()
	if err := mp4.Write(tags, []string{}); err != nil {
		return fmt.Errorf("write m4a tags: %w", err)
	}
	return nil
}
