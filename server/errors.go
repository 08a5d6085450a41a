package server

import (
	"errors"
	"net/http"

	"dealership-backend/blobstore"
	"dealership-backend/orm"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Machine-readable error codes carried in every error response body.
const (
	codeValidation = "validation_error"
	codeConflict   = "conflict"
	codeNotFound   = "not_found"
	codeUpload     = "upload_failed"
	codeServer     = "server_error"
)

// respondError converts internal errors to a JSON error response with a
// machine-readable code and a human-readable message.
func respondError(c *gin.Context, err error) {
	status, code := classifyError(err)

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}

	c.JSON(status, gin.H{
		"status":  "error",
		"code":    code,
		"message": err.Error(),
	})
}

func classifyError(err error) (int, string) {
	var validationErr *orm.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, codeValidation
	}

	var conflictErr *orm.ConflictError
	if errors.As(err, &conflictErr) {
		return http.StatusConflict, codeConflict
	}

	var notFoundErr *orm.NotFoundError
	if errors.As(err, &notFoundErr) {
		return http.StatusNotFound, codeNotFound
	}

	var uploadErr *blobstore.UploadError
	if errors.As(err, &uploadErr) {
		return http.StatusInternalServerError, codeUpload
	}

	// DatabaseError and anything unexpected
	return http.StatusInternalServerError, codeServer
}
