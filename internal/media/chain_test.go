package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

// stubDecoder fakes the external binary with canned results.
type stubDecoder struct {
	imageData []byte
	videoData []byte
	err       error
	calls     []string
}

func (s *stubDecoder) DecodeImage(_ context.Context, path string, _ int) ([]byte, error) {
	s.calls = append(s.calls, "image:"+filepath.Base(path))
	return s.imageData, s.err
}

func (s *stubDecoder) DecodeVideoFrame(_ context.Context, path string, _ int) ([]byte, error) {
	s.calls = append(s.calls, "video:"+filepath.Base(path))
	return s.videoData, s.err
}

func writeTestJPEG(t *testing.T, dir, name string, width, height int) string {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	path := filepath.Join(dir, name)
	if err := imaging.Save(img, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGenerateStandardImageUsesInProcessDecoders(t *testing.T) {
	dec := &stubDecoder{err: errors.New("must not be called")}
	chain := NewChain(dec, 64)

	path := writeTestJPEG(t, t.TempDir(), "photo.jpg", 640, 480)
	data := chain.Generate(context.Background(), path)

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not decodable JPEG: %v", err)
	}
	if img.Bounds().Dx() > 64 || img.Bounds().Dy() > 64 {
		t.Errorf("thumbnail is %v, want bounded by 64", img.Bounds())
	}
	for _, call := range dec.calls {
		t.Errorf("external decoder was invoked: %s", call)
	}
}

func TestGenerateVideoPrefersEmbeddedPreview(t *testing.T) {
	dec := &stubDecoder{err: errors.New("must not be called")}
	chain := NewChain(dec, 64)

	// A fake container: garbage around a real embedded JPEG.
	var embedded bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	if err := jpeg.Encode(&embedded, img, nil); err != nil {
		t.Fatal(err)
	}
	var file bytes.Buffer
	file.Write([]byte{0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p'})
	file.Write(embedded.Bytes())
	file.Write([]byte{0x01, 0x02, 0x03})

	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, file.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	data := chain.Generate(context.Background(), path)
	out, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output not decodable: %v", err)
	}
	if out.Bounds().Dx() > 64 || out.Bounds().Dy() > 64 {
		t.Errorf("thumbnail %v exceeds bound", out.Bounds())
	}
	for _, call := range dec.calls {
		t.Errorf("external decoder was invoked despite an embedded preview: %s", call)
	}
}

func TestGenerateVideoFallsBackToExternalDecoder(t *testing.T) {
	frame := Placeholder("frame", "x", 64) // any valid JPEG bytes
	dec := &stubDecoder{videoData: frame}
	chain := NewChain(dec, 64)

	// No embedded JPEG anywhere, so the in-process scan fails first.
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("not a real video"), 0644); err != nil {
		t.Fatal(err)
	}

	data := chain.Generate(context.Background(), path)
	if !bytes.Equal(data, frame) {
		t.Error("video thumbnail did not come from the external decoder")
	}
	if len(dec.calls) != 1 || dec.calls[0] != "video:clip.mp4" {
		t.Errorf("decoder calls = %v", dec.calls)
	}
}

func TestStrategyOrderPutsExternalLast(t *testing.T) {
	chain := NewChain(&stubDecoder{}, 64)

	names := func(strategies []Strategy) []string {
		var out []string
		for _, s := range strategies {
			out = append(out, s.Name)
		}
		return out
	}

	tests := []struct {
		class string
		got   []string
		want  []string
	}{
		{"image", names(chain.imageStrategies()), []string{"imaging", "vips", "external"}},
		{"complex", names(chain.complexImageStrategies()), []string{"vips", "external"}},
		{"video", names(chain.videoStrategies()), []string{"embedded-preview", "external"}},
	}
	for _, tt := range tests {
		if len(tt.got) != len(tt.want) {
			t.Errorf("%s strategies = %v, want %v", tt.class, tt.got, tt.want)
			continue
		}
		for i := range tt.want {
			if tt.got[i] != tt.want[i] {
				t.Errorf("%s strategies = %v, want %v", tt.class, tt.got, tt.want)
				break
			}
		}
	}
}

func TestGenerateCancelledReturnsNil(t *testing.T) {
	dec := &stubDecoder{err: errors.New("must not be called")}
	chain := NewChain(dec, 64)

	path := writeTestJPEG(t, t.TempDir(), "photo.jpg", 640, 480)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if data := chain.Generate(ctx, path); data != nil {
		t.Errorf("Generate() with cancelled context returned %d bytes, want nil", len(data))
	}
	for _, call := range dec.calls {
		t.Errorf("external decoder was invoked after cancellation: %s", call)
	}
}

func TestGenerateAlwaysReturnsBytes(t *testing.T) {
	// Zero-byte video, no working decoder anywhere: still get a tile.
	dec := &stubDecoder{err: errors.New("binary missing")}
	chain := NewChain(dec, 64)

	path := filepath.Join(t.TempDir(), "empty.mp4")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	data := chain.Generate(context.Background(), path)
	if len(data) == 0 {
		t.Fatal("Generate() returned no bytes")
	}
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("placeholder output not decodable: %v", err)
	}
}

func TestGenerateWithNilDecoder(t *testing.T) {
	chain := NewChain(nil, 64)

	path := filepath.Join(t.TempDir(), "clip.mov")
	if err := os.WriteFile(path, []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	data := chain.Generate(context.Background(), path)
	if len(data) == 0 {
		t.Fatal("Generate() returned no bytes without a decoder")
	}
}

func TestExtractEmbeddedJPEG(t *testing.T) {
	var embedded bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	if err := jpeg.Encode(&embedded, img, nil); err != nil {
		t.Fatal(err)
	}

	data := append([]byte{0xDE, 0xAD}, embedded.Bytes()...)
	data = append(data, 0xBE, 0xEF)

	got := extractEmbeddedJPEG(data)
	if got == nil {
		t.Fatal("extractEmbeddedJPEG() found nothing")
	}
	if _, err := jpeg.Decode(bytes.NewReader(got)); err != nil {
		t.Errorf("extracted range not decodable: %v", err)
	}

	if extractEmbeddedJPEG([]byte{0x00, 0x01, 0x02}) != nil {
		t.Error("extractEmbeddedJPEG() found a JPEG in garbage")
	}
}
