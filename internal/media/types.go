package media

import (
	"context"
	"encoding/base64"
	"errors"
	"image"
)

const (
	MIMETypeJPEG = "image/jpeg"

	MaxDimension     = 800
	JPEGQuality      = 70
	DefaultMaxFrames = 5
	DefaultTargetFPS = 1.0
)

var ErrMedia = errors.New("media error")

var ErrNoFrames = &MediaError{Reason: "no frames extracted"}

type MediaError struct {
	Reason string
	Err    error
}

func (e *MediaError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

func (e *MediaError) Is(target error) bool {
	return target == ErrMedia
}

func newMediaError(reason string, err error) *MediaError {
	return &MediaError{Reason: reason, Err: err}
}

type Frame struct {
	MIMEType string
	Data     []byte
	Width    int
	Height   int
}

func (f Frame) Base64() string {
	return base64.StdEncoding.EncodeToString(f.Data)
}

// VideoDecoder opens a container and yields its frames in presentation order.
type VideoDecoder interface {
	Open(ctx context.Context, data []byte) (VideoStream, error)
}

// VideoStream returns io.EOF from Next and Skip once the source is exhausted.
// Skip advances past one frame without decoding it. Close must release every
// resource acquired by Open and is safe to call twice.
type VideoStream interface {
	FrameRate() float64
	Next() (image.Image, error)
	Skip() error
	Close() error
}
