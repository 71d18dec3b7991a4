package handlerUtil

import (
	"HawkVision/pkg/log"
	"HawkVision/pkg/response"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	var respErr *response.Error
	if errors.As(err, &respErr) {
		fields := log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"code":       respErr.Code,
			"path":       path,
			"operation":  operation,
		}

		switch {
		case respErr.Code == fiber.StatusNoContent:
			h.logger.WithFields(fields).Debug("Nothing to do")
			return c.SendStatus(fiber.StatusNoContent)
		case respErr.Code >= fiber.StatusInternalServerError:
			h.logger.WithFields(fields).Error("Operation failed with error response")
		default:
			h.logger.WithFields(fields).Warn("Operation failed with error response")
		}

		return c.Status(respErr.Code).JSON(ErrorResponse{Error: err.Error()})
	}

	traceID := log.ErrorWithTraceID(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}, "Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "An unexpected error occurred",
		TraceID: traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Validation failed: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(ErrorResponse{
		Error: utils.StatusMessage(fiber.StatusRequestTimeout),
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
