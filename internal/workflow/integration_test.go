package workflow

import (
	"context"
	"fmt"
	"image/color"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"

	"sniffer/internal/capture"
	"sniffer/internal/history"
	"sniffer/internal/logging"
	"sniffer/internal/testsupport"
)

type hitCounter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (h *hitCounter) add(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.hits == nil {
		h.hits = make(map[string]int)
	}
	h.hits[path]++
}

func (h *hitCounter) get(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits[path]
}

func TestEndToEndCaptureToTaggedFile(t *testing.T) {
	audio := testsupport.MinimalFLAC(t)
	cover := testsupport.PNG(t, color.RGBA{G: 255, A: 255})

	var cdnHits hitCounter
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cdnHits.add(r.URL.Path)
		if r.Header.Get("User-Agent") != "X" {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		switch r.URL.Path {
		case "/123.flac":
			_, _ = w.Write(audio)
		case "/images/77.png":
			_, _ = w.Write(cover)
		default:
			http.NotFound(w, r)
		}
	}))
	defer cdn.Close()

	catalogServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/3/tracks/123" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"result":{"track_title_original":"Foo","artist_nm":"Bar","album_title":"Baz","track_no":3,"disc_id":1,"release_ymd":"20200115","img_urls":{"original":%q}},"ret_code":0}`,
			cdn.URL+"/images/77.png")
	}))
	defer catalogServer.Close()

	cdnURL, _ := url.Parse(cdn.URL)
	cfg := testsupport.NewConfig(t, testsupport.WithCatalog(catalogServer.URL+"/3"))
	cfg.Capture.TargetHost = cdnURL.Host
	store := testsupport.MustOpenHistory(t, cfg)

	components, err := DefaultComponents(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("DefaultComponents: %v", err)
	}

	request := testsupport.HTTPGet("/123.flac", cdnURL.Host, "X", "*/*")
	source := &sliceSource{frames: []capture.Frame{
		testsupport.TCPFrame(t, []byte(request)),
		testsupport.TCPFrame(t, []byte(request)),
		testsupport.UDPFrame(t, []byte(request)),
	}}

	manager := NewManager(cfg, source, components, logging.NewNop())
	if err := manager.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	manager.Wait()

	albumDir := filepath.Join(cfg.Paths.OutputDir, "Bar", "Baz")
	assetPath := filepath.Join(albumDir, "03 Foo.flac")
	file, err := flac.ParseFile(assetPath)
	if err != nil {
		t.Fatalf("parse saved file: %v", err)
	}
	var comments *flacvorbis.MetaDataBlockVorbisComment
	for _, block := range file.Meta {
		if block.Type == flac.VorbisComment {
			comments, err = flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				t.Fatalf("parse comments: %v", err)
			}
		}
	}
	if comments == nil {
		t.Fatal("saved file has no tags")
	}
	for key, want := range map[string]string{"TITLE": "Foo", "ARTIST": "Bar", "ALBUM": "Baz", "TRACKNUMBER": "3", "DATE": "2020"} {
		got, _ := comments.Get(key)
		if len(got) != 1 || got[0] != want {
			t.Fatalf("%s = %q, want %q", key, got, want)
		}
	}
	if _, err := os.Stat(filepath.Join(albumDir, "Baz.png")); err != nil {
		t.Fatalf("cover not saved: %v", err)
	}

	if got := cdnHits.get("/123.flac"); got != 1 {
		t.Fatalf("asset fetched %d times, want 1", got)
	}

	entries, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	outcomes := map[string]int{}
	for _, e := range entries {
		outcomes[e.Outcome]++
	}
	if outcomes[history.OutcomeSuccess] != 1 || outcomes[history.OutcomeSkipped] != 1 {
		t.Fatalf("outcomes = %v, want one success and one skip", outcomes)
	}

	stats := manager.Stats()
	if stats.Frames != 3 || stats.Matches != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
