package inference

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eleven-am/streamsight/internal/dto"
	"github.com/eleven-am/streamsight/internal/generation"
	"github.com/eleven-am/streamsight/internal/media"
	"github.com/eleven-am/streamsight/internal/shared"
	"github.com/eleven-am/streamsight/internal/transcript"
)

const (
	HeaderSessionID = "X-Session-ID"

	DefaultMaxUploadBytes = 100 << 20

	statusClientClosedRequest = 499
)

var mediaFields = []string{"video", "video_file"}

type Handler struct {
	orchestrator   *Orchestrator
	transcripts    *transcript.Store
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewHandler(orchestrator *Orchestrator, transcripts *transcript.Store, maxUploadBytes int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		orchestrator:   orchestrator,
		transcripts:    transcripts,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/infer", h.Infer)
	e.GET("/sessions/:id/history", h.History)
}

// Infer answers a prompt about optional uploaded media
// @Summary      Run inference
// @Description  Answers the prompt using the uploaded video or image (if any) and the session's prior exchanges. The response body is the generated text verbatim; the effective session id is returned in the X-Session-ID header.
// @Tags         inference
// @Accept       multipart/form-data
// @Produce      text/plain
// @Param        prompt formData string true "Question to answer"
// @Param        video formData file false "Video or image to analyse"
// @Param        session_id formData string false "Session to continue; generated when omitted"
// @Success      200 {string} string "Generated text"
// @Header       200 {string} X-Session-ID "Effective session id"
// @Failure      400 {object} shared.APIError "Missing prompt or undecodable media"
// @Failure      413 {object} shared.APIError "Upload too large"
// @Failure      500 {object} shared.APIError "Generation failed after all retries"
// @Router       /infer [post]
func (h *Handler) Infer(c echo.Context) error {
	prompt := c.FormValue("prompt")
	sessionID := c.FormValue("session_id")

	data, err := h.readUpload(c)
	if err != nil {
		return err
	}

	res, err := h.orchestrator.Infer(c.Request().Context(), Request{
		Prompt:    prompt,
		Media:     data,
		SessionID: sessionID,
	})
	if err != nil {
		return h.mapError(err)
	}

	c.Response().Header().Set(HeaderSessionID, res.SessionID)
	return c.String(http.StatusOK, res.Text)
}

func (h *Handler) readUpload(c echo.Context) ([]byte, error) {
	for _, field := range mediaFields {
		fh, err := c.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			continue
		}
		if err != nil {
			if isTooLarge(err) {
				return nil, shared.PayloadTooLarge("upload_too_large", "uploaded media exceeds the size limit")
			}
			return nil, shared.BadRequest("invalid_form", "could not parse multipart form")
		}
		return h.readFile(fh)
	}
	return nil, nil
}

func (h *Handler) readFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > h.maxUploadBytes {
		return nil, shared.PayloadTooLarge("upload_too_large", "uploaded media exceeds the size limit")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, shared.BadRequest("invalid_upload", "could not read uploaded media")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		return nil, shared.BadRequest("invalid_upload", "could not read uploaded media")
	}
	if int64(len(data)) > h.maxUploadBytes {
		return nil, shared.PayloadTooLarge("upload_too_large", "uploaded media exceeds the size limit")
	}
	return data, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	var httpErr *echo.HTTPError
	return errors.As(err, &httpErr) && httpErr.Code == http.StatusRequestEntityTooLarge
}

func (h *Handler) mapError(err error) error {
	var mediaErr *media.MediaError
	var genErr *generation.GenerationError

	switch {
	case errors.Is(err, ErrMissingPrompt):
		return shared.BadRequest("missing_prompt", "prompt is required")
	case errors.As(err, &mediaErr):
		return shared.BadRequest("media_processing_failed", mediaErr.Error())
	case errors.As(err, &genErr):
		h.logger.Error("generation failed", "attempts", genErr.Attempts, "error", genErr.Cause)
		return shared.NewAPIError("generation_failed", genErr.Error()).
			WithDetails(map[string]int{"attempts": genErr.Attempts}).
			ToHTTP(http.StatusInternalServerError)
	case errors.Is(err, context.Canceled):
		return shared.NewAPIError("request_cancelled", "request cancelled").ToHTTP(statusClientClosedRequest)
	default:
		h.logger.Error("inference failed", "error", err)
		return shared.InternalError("inference_failed", "failed to process request")
	}
}

// History lists archived exchanges for a session
// @Summary      Get session history
// @Description  Returns archived exchanges for the session, newest first. Requires the transcript archive to be configured.
// @Tags         sessions
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        limit query int false "Maximum exchanges to return" default(50)
// @Success      200 {object} dto.HistoryResponse
// @Failure      400 {object} shared.APIError "Invalid limit"
// @Failure      404 {object} shared.APIError "Transcript archive disabled"
// @Failure      500 {object} shared.APIError "Failed to load history"
// @Router       /sessions/{id}/history [get]
func (h *Handler) History(c echo.Context) error {
	if !h.transcripts.Enabled() {
		return shared.NotFound("transcripts_disabled", "transcript archive is not configured")
	}

	sessionID := c.Param("id")
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return shared.BadRequest("invalid_limit", "limit must be a non-negative integer")
		}
		limit = n
	}

	ctx := c.Request().Context()
	exchanges, err := h.transcripts.ListBySession(ctx, sessionID, limit)
	if err != nil {
		h.logger.Error("failed to list exchanges", "session_id", sessionID, "error", err)
		return shared.InternalError("history_failed", "failed to load session history")
	}

	total, err := h.transcripts.CountBySession(ctx, sessionID)
	if err != nil {
		h.logger.Error("failed to count exchanges", "session_id", sessionID, "error", err)
		return shared.InternalError("history_failed", "failed to load session history")
	}

	resp := dto.HistoryResponse{
		SessionID: sessionID,
		Total:     total,
		Exchanges: make([]dto.ExchangeResponse, 0, len(exchanges)),
	}
	for _, e := range exchanges {
		resp.Exchanges = append(resp.Exchanges, dto.ExchangeResponse{
			ID:         e.ID,
			Prompt:     e.Prompt,
			Response:   e.Response,
			FrameCount: e.FrameCount,
			LatencyMs:  e.LatencyMs,
			CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, resp)
}
