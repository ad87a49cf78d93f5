package media

import (
	"net/url"
	"path"
	"strings"
)

// AssetName is a requested file name split into its id and extension.
type AssetName struct {
	FileName  string
	ID        string
	Extension string
}

// AssetFromPath returns the last segment of a request path with any query
// string removed, e.g. "/a/b/123.flac?x=1" yields "123.flac".
func AssetFromPath(requestPath string) string {
	p := requestPath
	if parsed, err := url.Parse(requestPath); err == nil {
		p = parsed.Path
	} else if idx := strings.IndexAny(p, "?#"); idx >= 0 {
		p = p[:idx]
	}
	base := path.Base(p)
	if base == "/" || base == "." {
		return ""
	}
	return base
}

// SplitAssetName splits "id.ext" on ".". ok is false unless there are exactly
// two parts.
func SplitAssetName(fileName string) (AssetName, bool) {
	parts := strings.Split(fileName, ".")
	if len(parts) != 2 {
		return AssetName{FileName: fileName}, false
	}
	return AssetName{FileName: fileName, ID: parts[0], Extension: strings.ToLower(parts[1])}, true
}
