package detection

import (
	"HawkVision/pkg/response"
	"net/http"
)

var (
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
	ErrBadRequest          = response.NewError(http.StatusBadRequest, "bad request")
	ErrNoFile              = response.NewError(http.StatusNoContent, "no file provided")
	ErrUnsupportedFileType = response.NewError(http.StatusUnsupportedMediaType, "only jpeg and png images are accepted")
	ErrFileTooLarge        = response.NewError(http.StatusRequestEntityTooLarge, "image is too large")
	ErrSessionNotFound     = response.NewError(http.StatusNotFound, "session not found")
	ErrPreviewNotFound     = response.NewError(http.StatusNotFound, "preview not found")
)
