package organizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sniffer/internal/media"
	"sniffer/internal/services"
	"sniffer/internal/textutil"
)

const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
	UnknownTitle  = "Untitled"
)

// Placement is where one captured asset and its companion files are written.
type Placement struct {
	Dir      string
	FileName string
	// CoverPath is empty unless the metadata carries a cover art URL.
	CoverPath string
}

// AssetPath returns the full destination of the primary asset.
func (p Placement) AssetPath() string {
	return filepath.Join(p.Dir, p.FileName)
}

// Layout computes the destination of asset under root.
//
//	track:   root/{artist}/{album}/{NN title}.{ext}
//	movie:   root/{artist}/{title}.{ext}
//	unknown: root/{id}.{ext}
func Layout(root string, meta media.Metadata, asset media.AssetName) Placement {
	switch m := meta.(type) {
	case media.Track:
		dir := filepath.Join(root,
			textutil.SegmentOr(m.Artist, UnknownArtist),
			textutil.SegmentOr(m.Album, UnknownAlbum),
		)
		placement := Placement{
			Dir:      dir,
			FileName: fileName(m.CanonicalName(), asset),
		}
		if cover := m.CoverFileName(); cover != "" {
			placement.CoverPath = filepath.Join(dir, cover)
		}
		return placement
	case media.Movie:
		return Placement{
			Dir:      filepath.Join(root, textutil.SegmentOr(m.Artist, UnknownArtist)),
			FileName: fileName(m.CanonicalName(), asset),
		}
	default:
		return Placement{
			Dir:      root,
			FileName: textutil.SegmentOr(asset.FileName, asset.ID),
		}
	}
}

func fileName(canonical string, asset media.AssetName) string {
	base := textutil.SegmentOr(canonical, textutil.SegmentOr(asset.ID, UnknownTitle))
	if asset.Extension == "" {
		return base
	}
	return base + "." + asset.Extension
}

// Prepare validates p against root and creates its directory.
func Prepare(root string, p Placement) error {
	if err := ValidatePlacement(root, p); err != nil {
		return err
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return services.Wrap(services.ErrDownload, "organizer", "create directory", p.Dir, err)
	}
	return nil
}

// ValidatePlacement rejects placements that would escape root.
func ValidatePlacement(root string, p Placement) error {
	for _, target := range []string{p.AssetPath(), p.CoverPath} {
		if target == "" {
			continue
		}
		if !within(root, target) {
			return services.Wrap(
				services.ErrConfiguration,
				"organizer",
				"validate placement",
				fmt.Sprintf("%q is outside the output directory %q", target, root),
				nil,
			)
		}
	}
	if p.FileName == "" {
		return services.Wrap(services.ErrConfiguration, "organizer", "validate placement", "empty file name", nil)
	}
	return nil
}

func within(root, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel != ".." && !filepath.IsAbs(rel) && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
