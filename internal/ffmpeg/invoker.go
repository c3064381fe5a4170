// Package ffmpeg wraps the bundled ffmpeg binary used as the last real
// decoding tier for formats the in-process decoders cannot handle. The
// binary is provisioned once into a writable cache location, and every
// invocation decodes, resizes and JPEG-encodes a single frame under a
// wall-clock timeout, so callers never materialize full-resolution pixel
// buffers.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"media-indexer/internal/logging"
)

// DefaultTimeout bounds each decoder invocation.
const DefaultTimeout = 15 * time.Second

var (
	// ErrBinaryNotFound is returned when no decoder binary exists for the
	// current platform, neither bundled nor on PATH.
	ErrBinaryNotFound = errors.New("ffmpeg binary not found")

	// ErrTimeout is returned when an invocation exceeded its wall-clock
	// budget and was killed.
	ErrTimeout = errors.New("ffmpeg invocation timed out")
)

// Invoker locates, provisions and runs the external decoder binary.
type Invoker struct {
	toolsDir string
	cacheDir string
	timeout  time.Duration

	mu         sync.Mutex
	binaryPath string
}

// NewInvoker creates an Invoker. toolsDir holds the bundled per-platform
// binaries; cacheDir is a writable location the selected binary is copied
// into on first use.
func NewInvoker(toolsDir, cacheDir string) *Invoker {
	return &Invoker{
		toolsDir: toolsDir,
		cacheDir: cacheDir,
		timeout:  DefaultTimeout,
	}
}

// SetTimeout overrides the per-invocation timeout. Useful in tests.
func (inv *Invoker) SetTimeout(d time.Duration) {
	if d > 0 {
		inv.timeout = d
	}
}

// bundledBinaryName returns the name of the bundled binary for the
// running OS and CPU architecture.
func bundledBinaryName() string {
	switch runtime.GOOS {
	case "windows":
		return "ffmpeg.exe"
	case "darwin":
		return "ffmpeg_mac"
	default:
		if runtime.GOARCH == "arm64" || runtime.GOARCH == "arm" {
			return "ffmpeg_linux_arm"
		}
		return "ffmpeg_linux_amd"
	}
}

// provisionedName is the file name the binary gets in the cache.
func provisionedName() string {
	if runtime.GOOS == "windows" {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

// Binary resolves the decoder binary path, provisioning the bundled copy
// on first use. The provisioned copy is reused across runs; when no
// bundled binary exists, a system ffmpeg on PATH is accepted.
func (inv *Invoker) Binary() (string, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.binaryPath != "" {
		return inv.binaryPath, nil
	}

	src := filepath.Join(inv.toolsDir, bundledBinaryName())
	if _, err := os.Stat(src); err == nil {
		dest, err := inv.provision(src)
		if err != nil {
			return "", fmt.Errorf("provisioning decoder binary: %w", err)
		}
		inv.binaryPath = dest
		return dest, nil
	}

	if path, err := exec.LookPath("ffmpeg"); err == nil {
		logging.Debug("No bundled decoder binary, using system ffmpeg: %s", path)
		inv.binaryPath = path
		return path, nil
	}

	return "", ErrBinaryNotFound
}

// provision copies the bundled binary into the cache tools directory and
// marks it executable. The copy is skipped when the destination already
// exists.
func (inv *Invoker) provision(src string) (string, error) {
	toolsCache := filepath.Join(inv.cacheDir, "tools")
	if err := os.MkdirAll(toolsCache, 0755); err != nil {
		return "", err
	}

	dest := filepath.Join(toolsCache, provisionedName())
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}

	logging.Info("Provisioned decoder binary: %s", dest)
	return dest, nil
}

// DecodeImage decodes a single frame from a complex image (HEIC, RAW,
// ...) and returns it resized to targetWidth as JPEG bytes.
func (inv *Invoker) DecodeImage(ctx context.Context, path string, targetWidth int) ([]byte, error) {
	args := []string{
		"-probesize", "50M",
		"-analyzeduration", "100M",
		"-i", path,
		"-frames:v", "1",
	}
	return inv.run(ctx, args, targetWidth)
}

// DecodeVideoFrame extracts the first frame of the first video stream,
// resized to targetWidth, as JPEG bytes.
func (inv *Invoker) DecodeVideoFrame(ctx context.Context, path string, targetWidth int) ([]byte, error) {
	args := []string{
		"-ss", "00:00:00",
		"-i", path,
		"-map", "0:v:0",
		"-frames:v", "1",
	}
	return inv.run(ctx, args, targetWidth)
}

// run executes the decoder with the shared output arguments: decode-time
// resize, color-space normalization, a mild exposure/saturation lift for
// presentable thumbnails, and MJPEG encoding into a temp file.
func (inv *Invoker) run(ctx context.Context, inputArgs []string, targetWidth int) ([]byte, error) {
	binary, err := inv.Binary()
	if err != nil {
		return nil, err
	}

	outPath := filepath.Join(os.TempDir(), "thumb_"+uuid.NewString()+".jpg")
	defer os.Remove(outPath)

	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	args = append(args, inputArgs...)
	args = append(args,
		"-vf", fmt.Sprintf("scale=%d:-2,format=yuvj420p,eq=gamma=1.5:saturation=1.2:contrast=1.05", targetWidth),
		"-c:v", "mjpeg",
		"-q:v", "2",
		"-update", "1",
		outPath,
	)

	runCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return nil, ErrTimeout
	}

	data, readErr := os.ReadFile(outPath)
	if runErr != nil && (readErr != nil || len(data) == 0) {
		return nil, fmt.Errorf("ffmpeg failed: %w (stderr: %s)", runErr, strings.TrimSpace(stderr.String()))
	}
	if readErr != nil || len(data) == 0 {
		return nil, errors.New("ffmpeg produced no output")
	}

	return data, nil
}
