package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	flac "github.com/go-flac/go-flac"
)

// FLACFrames is the audio payload MinimalFLAC writes after its metadata.
var FLACFrames = []byte{0xff, 0xf8, 0x69, 0x08, 0x00, 0x00}

// MinimalFLAC returns a stream with a zeroed STREAMINFO block, the extra
// metadata blocks given and FLACFrames as audio data.
func MinimalFLAC(t testing.TB, extra ...flac.MetaDataBlock) []byte {
	t.Helper()
	file := &flac.File{
		Meta: []*flac.MetaDataBlock{{
			Type: flac.StreamInfo,
			Data: make([]byte, 34),
		}},
		Frames: append([]byte(nil), FLACFrames...),
	}
	for i := range extra {
		block := extra[i]
		file.Meta = append(file.Meta, &block)
	}
	return file.Marshal()
}

// PNG encodes a 2x2 image filled with c.
func PNG(t testing.TB, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
