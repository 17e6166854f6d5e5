package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"time"
)

type Extractor struct {
	decoder VideoDecoder
	logger  *slog.Logger
}

func NewExtractor(decoder VideoDecoder, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		decoder: decoder,
		logger:  logger.With("component", "frame-extractor"),
	}
}

// FrameInterval keeps one of every N native frames so the output approaches
// the target sampling rate. Unknown native rates keep every frame.
func FrameInterval(nativeFPS, targetFPS float64) int {
	if nativeFPS <= 0 || targetFPS <= 0 || math.IsNaN(nativeFPS) || math.IsInf(nativeFPS, 0) {
		return 1
	}
	return max(1, int(math.Round(nativeFPS/targetFPS)))
}

func (e *Extractor) Extract(ctx context.Context, data []byte, targetFPS float64, maxFrames int) ([]Frame, error) {
	if targetFPS <= 0 {
		targetFPS = DefaultTargetFPS
	}
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}
	if len(data) == 0 {
		return nil, newMediaError("empty media payload", nil)
	}

	start := time.Now()

	if img, ok := decodeStill(data); ok {
		e.logger.Debug("processing single image")
		frame, err := optimizeFrame(img)
		if err != nil {
			return nil, newMediaError("could not encode image", err)
		}
		e.logger.Info("processed single image", "duration_ms", time.Since(start).Milliseconds())
		return []Frame{frame}, nil
	}

	frames, err := e.extractVideo(ctx, data, targetFPS, maxFrames)
	if err != nil {
		return nil, err
	}

	e.logger.Info("extracted video frames",
		"frames", len(frames),
		"duration_ms", time.Since(start).Milliseconds())
	return frames, nil
}

func (e *Extractor) extractVideo(ctx context.Context, data []byte, targetFPS float64, maxFrames int) ([]Frame, error) {
	if e.decoder == nil {
		return nil, newMediaError("could not decode media", errors.New("video decoding not configured"))
	}

	stream, err := e.decoder.Open(ctx, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, newMediaError("could not open video", err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			e.logger.Warn("failed to release video stream", "error", err)
		}
	}()

	nativeFPS := stream.FrameRate()
	interval := FrameInterval(nativeFPS, targetFPS)
	e.logger.Debug("video opened", "native_fps", nativeFPS, "frame_interval", interval)

	frames := make([]Frame, 0, maxFrames)
	for index := 0; len(frames) < maxFrames; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if index%interval != 0 {
			if err := stream.Skip(); err != nil {
				if !errors.Is(err, io.EOF) {
					e.logger.Warn("frame skip failed, stopping", "index", index, "error", err)
				}
				break
			}
			continue
		}

		img, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			e.logger.Warn("frame read failed, stopping", "index", index, "error", err)
			break
		}

		frame, err := optimizeFrame(img)
		if err != nil {
			e.logger.Warn("frame optimization failed", "index", index, "error", err)
			continue
		}
		frames = append(frames, frame)
	}

	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	return frames, nil
}
