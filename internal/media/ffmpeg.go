package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

var ErrFFmpegNotFound = errors.New("ffmpeg not found in PATH")

type FFmpegConfig struct {
	FFmpegPath  string
	FFprobePath string
	TempDir     string
}

type FFmpegDecoder struct {
	ffmpeg  string
	ffprobe string
	tempDir string
	logger  *slog.Logger
}

func NewFFmpegDecoder(cfg FFmpegConfig, logger *slog.Logger) *FFmpegDecoder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	return &FFmpegDecoder{
		ffmpeg:  cfg.FFmpegPath,
		ffprobe: cfg.FFprobePath,
		tempDir: cfg.TempDir,
		logger:  logger.With("component", "ffmpeg-decoder"),
	}
}

// Available reports whether both binaries resolve.
func (d *FFmpegDecoder) Available() error {
	for _, bin := range []string{d.ffmpeg, d.ffprobe} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%w: %s", ErrFFmpegNotFound, bin)
		}
	}
	return nil
}

type probeResult struct {
	width    int
	height   int
	fps      float64
	rotation int
}

// displaySize is the frame size after ffmpeg applies the stream's rotation.
func (p probeResult) displaySize() (int, int) {
	if p.rotation%180 != 0 {
		return p.height, p.width
	}
	return p.width, p.height
}

func (d *FFmpegDecoder) Open(ctx context.Context, data []byte) (VideoStream, error) {
	dir, err := os.MkdirTemp(d.tempDir, "frames-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			d.logger.Warn("failed to remove temp dir", "dir", dir, "error", err)
		}
	}

	input := filepath.Join(dir, "input.mp4")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		cleanup()
		return nil, fmt.Errorf("write temp input: %w", err)
	}

	info, err := d.probe(ctx, input)
	if err != nil {
		cleanup()
		return nil, err
	}

	// The scale filter pins the raw output size, so the frame stride read by
	// Next cannot drift from what ffmpeg writes.
	width, height := targetSize(info.displaySize())
	info.width, info.height = width, height

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, d.ffmpeg,
		"-v", "error",
		"-i", input,
		"-map", "0:v:0",
		"-vf", fmt.Sprintf("scale=%d:%d:flags=bilinear", width, height),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		cleanup()
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		cleanup()
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrFFmpegNotFound
		}
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	return &ffmpegStream{
		cmd:     cmd,
		cancel:  cancel,
		cleanup: cleanup,
		reader:  bufio.NewReaderSize(stdout, 1<<20),
		stderr:  stderr,
		info:    info,
	}, nil
}

func (d *FFmpegDecoder) probe(ctx context.Context, input string) (probeResult, error) {
	cmd := exec.CommandContext(ctx, d.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_streams",
		"-of", "json",
		input,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return probeResult{}, ErrFFmpegNotFound
		}
		if ctx.Err() != nil {
			return probeResult{}, ctx.Err()
		}
		return probeResult{}, fmt.Errorf("ffprobe failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return parseProbe(out)
}

func parseProbe(out []byte) (probeResult, error) {
	stream := gjson.GetBytes(out, "streams.0")
	if !stream.Exists() {
		return probeResult{}, errors.New("no video stream found")
	}

	res := probeResult{
		width:  int(stream.Get("width").Int()),
		height: int(stream.Get("height").Int()),
		fps:    parseRate(stream.Get("avg_frame_rate").String()),
	}
	if res.fps <= 0 {
		res.fps = parseRate(stream.Get("r_frame_rate").String())
	}
	res.rotation = parseRotation(stream)
	if res.width <= 0 || res.height <= 0 {
		return probeResult{}, fmt.Errorf("invalid video dimensions %dx%d", res.width, res.height)
	}
	return res, nil
}

// parseRotation prefers the display matrix side data and falls back to the
// legacy rotate tag written by older muxers.
func parseRotation(stream gjson.Result) int {
	rotation := 0
	found := false
	stream.Get("side_data_list").ForEach(func(_, sd gjson.Result) bool {
		if r := sd.Get("rotation"); r.Exists() {
			rotation = int(r.Int())
			found = true
			return false
		}
		return true
	})
	if !found {
		rotation = int(stream.Get("tags.rotate").Int())
	}
	rotation %= 360
	if rotation < 0 {
		rotation += 360
	}
	return rotation
}

// parseRate reads ffprobe rationals such as "30000/1001".
func parseRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

type ffmpegStream struct {
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	cleanup func()
	reader  *bufio.Reader
	stderr  *bytes.Buffer
	info    probeResult

	closeOnce sync.Once
}

func (s *ffmpegStream) FrameRate() float64 {
	return s.info.fps
}

func (s *ffmpegStream) frameBytes() int {
	return s.info.width * s.info.height * 4
}

func (s *ffmpegStream) Next() (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, s.info.width, s.info.height))

	_, err := io.ReadFull(s.reader, img.Pix)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return img, nil
}

func (s *ffmpegStream) Skip() error {
	if _, err := s.reader.Discard(s.frameBytes()); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("skip frame: %w", err)
	}
	return nil
}

func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.cmd.Wait()
		s.cleanup()
	})
	return nil
}
