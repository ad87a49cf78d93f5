package catalog

import (
	"context"
	"strings"

	"sniffer/internal/media"
)

// TrackResolver maps audio assets to the catalog's tracks collection.
type TrackResolver struct {
	client *Client
}

// NewTrackResolver serves flac and m4a assets from {base}/tracks/{id}.
func NewTrackResolver(client *Client) *TrackResolver {
	return &TrackResolver{client: client}
}

func (r *TrackResolver) Name() string { return "track" }

func (r *TrackResolver) Extensions() []string { return []string{"flac", "m4a"} }

type trackResult struct {
	TrackTitleOriginal string `json:"track_title_original"`
	TrackTitle         string `json:"track_title"`
	AlbumTitle         string `json:"album_title"`
	ArtistName         string `json:"artist_nm"`
	TrackNo            int    `json:"track_no"`
	DiscID             int    `json:"disc_id"`
	NormalLyrics       string `json:"normal_lyrics"`
	ReleaseYMD         string `json:"release_ymd"`
	ImageURLs          struct {
		Original string `json:"original"`
	} `json:"img_urls"`
}

func (r *TrackResolver) Resolve(ctx context.Context, id string) (media.Metadata, error) {
	var result trackResult
	if err := r.client.getResult(ctx, "tracks", id, &result); err != nil {
		return nil, err
	}
	title := result.TrackTitleOriginal
	if strings.TrimSpace(title) == "" {
		title = result.TrackTitle
	}
	return media.Track{
		Title:       title,
		Album:       result.AlbumTitle,
		Artist:      result.ArtistName,
		TrackNumber: result.TrackNo,
		DiscNumber:  result.DiscID,
		Lyrics:      result.NormalLyrics,
		Year:        releaseYear(result.ReleaseYMD),
		CoverArtURL: result.ImageURLs.Original,
	}, nil
}

// MovieResolver maps video assets to the catalog's mvs collection.
type MovieResolver struct {
	client *Client
}

// NewMovieResolver serves mp4 assets from {base}/mvs/{id}.
func NewMovieResolver(client *Client) *MovieResolver {
	return &MovieResolver{client: client}
}

func (r *MovieResolver) Name() string { return "movie" }

func (r *MovieResolver) Extensions() []string { return []string{"mp4"} }

type movieResult struct {
	Title      string `json:"mv_title"`
	ArtistName string `json:"mv_main_artist_nm"`
}

func (r *MovieResolver) Resolve(ctx context.Context, id string) (media.Metadata, error) {
	var result movieResult
	if err := r.client.getResult(ctx, "mvs", id, &result); err != nil {
		return nil, err
	}
	return media.Movie{Title: result.Title, Artist: result.ArtistName}, nil
}

// releaseYear returns the first four characters of a yyyymmdd date.
func releaseYear(ymd string) string {
	ymd = strings.TrimSpace(ymd)
	if len(ymd) < 4 {
		return ""
	}
	return ymd[:4]
}
