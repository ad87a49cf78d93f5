package tagging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"

	"sniffer/internal/fileutil"
	"sniffer/internal/logging"
	"sniffer/internal/media"
)

const defaultVendor = "sniffer"

// FLACWriter rewrites Vorbis comments and the front cover picture of FLAC files.
// A cover image that cannot be embedded is skipped and reported on Logger.
type FLACWriter struct {
	Logger *slog.Logger
}

func (FLACWriter) Extensions() []string { return []string{"flac"} }

// Write parses the whole file in memory, rebuilds its metadata blocks and
// replaces the original only after the new stream is fully encoded.
func (w FLACWriter) Write(ctx context.Context, dir, fileName string, track media.Track) error {
	path := filepath.Join(dir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read flac: %w", err)
	}
	file, err := flac.ParseBytes(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse flac: %w", err)
	}

	cover, err := loadCover(dir, track)
	if err != nil {
		return err
	}
	if cover != nil {
		if err := replaceFrontCover(file, cover); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, w.Logger), "cover art not embedded", "cover_invalid",
				logging.Error(err),
				logging.String("file", fileName),
				logging.String(logging.FieldImpact, "tags written without artwork"),
			)
		}
	}

	if err := replaceComments(file, trackFields(track)); err != nil {
		return err
	}

	if err := fileutil.ReplaceFile(path, file.Marshal()); err != nil {
		return fmt.Errorf("write flac: %w", err)
	}
	return nil
}

type coverImage struct {
	data []byte
	mime string
}

// loadCover reads {album}.{ext} from dir. A missing file is not an error.
func loadCover(dir string, track media.Track) (*coverImage, error) {
	name := track.CoverFileName()
	if name == "" {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cover art: %w", err)
	}
	mime := imageMIME(track.CoverArtExtension())
	if mime == "" {
		return nil, nil
	}
	return &coverImage{data: data, mime: mime}, nil
}

func imageMIME(ext string) string {
	switch strings.ToLower(ext) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return ""
	}
}

func replaceFrontCover(file *flac.File, cover *coverImage) error {
	picture, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front cover", cover.data, cover.mime)
	if err != nil {
		return fmt.Errorf("encode cover art: %w", err)
	}

	kept := file.Meta[:0]
	for _, block := range file.Meta {
		if block.Type == flac.Picture {
			existing, err := flacpicture.ParseFromMetaDataBlock(*block)
			if err == nil && existing.PictureType == flacpicture.PictureTypeFrontCover {
				continue
			}
		}
		kept = append(kept, block)
	}
	pictureBlock := picture.Marshal()
	file.Meta = append(kept, &pictureBlock)
	return nil
}

// replaceComments drops every managed field from the existing comment block,
// keeps unmanaged fields, and appends fields in order.
func replaceComments(file *flac.File, fields []field) error {
	index := -1
	var existing *flacvorbis.MetaDataBlockVorbisComment
	for i, block := range file.Meta {
		if block.Type != flac.VorbisComment {
			continue
		}
		parsed, err := flacvorbis.ParseFromMetaDataBlock(*block)
		if err != nil {
			return fmt.Errorf("parse vorbis comments: %w", err)
		}
		index, existing = i, parsed
		break
	}

	comments := flacvorbis.New()
	comments.Vendor = defaultVendor
	if existing != nil {
		if existing.Vendor != "" {
			comments.Vendor = existing.Vendor
		}
		for _, entry := range existing.Comments {
			if !isManaged(entry) {
				comments.Comments = append(comments.Comments, entry)
			}
		}
	}
	for _, f := range fields {
		if err := comments.Add(f.name, f.value); err != nil {
			return fmt.Errorf("set %s: %w", f.name, err)
		}
	}

	block := comments.Marshal()
	if index >= 0 {
		file.Meta[index] = &block
	} else {
		file.Meta = append(file.Meta, &block)
	}
	return nil
}

func isManaged(entry string) bool {
	key, _, _ := strings.Cut(entry, "=")
	for _, name := range managedFields {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}
