package detectionHandler

import (
	"HawkVision/internal/api/detection"
	contextPkg "HawkVision/pkg/context"
	"HawkVision/pkg/handlerUtil"
	"HawkVision/pkg/log"
	"HawkVision/pkg/overlay"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

const maxUploadWait = 60 * time.Second

// Upload accepts a dropped image. It answers 202 with the loading state as
// soon as the drop is accepted; with ?wait=true it holds the response until
// the detection has finished.
func (h *DetectionHandler) Upload(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	sessionID := h.middleware.GetSessionID(ctx)
	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"session_id": sessionID,
		"path":       ctx.Path(),
	}).Debug("Processing image drop")

	form, err := ctx.MultipartForm()
	if err != nil {
		return errHandler.Handle(ctx, requestID, detection.ErrBadRequest, ctx.Path(), "parse_multipart_form")
	}

	upload, err := h.detectionService.Drop(contextPkg.FromFiberCtx(ctx), sessionID, form.File["file"])
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "drop_image")
	}

	status := fiber.StatusAccepted
	if ctx.QueryBool("wait") {
		c, cancel := context.WithTimeout(ctx.Context(), maxUploadWait)
		defer cancel()

		select {
		case <-upload.Done():
			status = fiber.StatusOK
		case <-c.Done():
			return errHandler.HandleRequestTimeout(ctx)
		}
	}

	state, err := h.detectionService.State(sessionID)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_state")
	}

	return errHandler.HandleSuccess(ctx, status, detection.NewViewStateResponse(state))
}

func (h *DetectionHandler) GetState(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	state, err := h.detectionService.State(h.middleware.GetSessionID(ctx))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_state")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.NewViewStateResponse(state))
}

// GetOverlay takes the preview element's laid-out size from the caller, the
// only party that can measure it.
func (h *DetectionHandler) GetOverlay(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	var req detection.OverlayRequest
	if err := ctx.QueryParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, detection.ErrBadRequest, ctx.Path(), "parse_query")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	resp, err := h.detectionService.Overlay(
		h.middleware.GetSessionID(ctx),
		overlay.Size{Width: req.Width, Height: req.Height},
	)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "render_overlay")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, resp)
}

func (h *DetectionHandler) GetSummary(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	resp, err := h.detectionService.Summary(h.middleware.GetSessionID(ctx))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "summarize")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, resp)
}

func (h *DetectionHandler) GetPreview(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	img, err := h.detectionService.Preview(contextPkg.FromFiberCtx(ctx), h.middleware.GetSessionID(ctx), ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_preview")
	}

	ctx.Set(fiber.HeaderContentType, img.ContentType)
	ctx.Set(fiber.HeaderCacheControl, "private, no-store")
	return ctx.Status(fiber.StatusOK).Send(img.Data)
}

func (h *DetectionHandler) CloseSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	sessionID := h.middleware.GetSessionID(ctx)
	errHandler := handlerUtil.New(h.log)

	if err := h.detectionService.CloseSession(contextPkg.FromFiberCtx(ctx), sessionID); err != nil {
		if errors.Is(err, detection.ErrSessionNotFound) {
			return errHandler.HandleSuccess(ctx, fiber.StatusNoContent, nil)
		}
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "close_session")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"session_id": sessionID,
	}).Info("Session closed")

	return errHandler.HandleSuccess(ctx, fiber.StatusNoContent, nil)
}
