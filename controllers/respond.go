package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"bulk-order-service/apperrors"
	"bulk-order-service/middlewares"
)

// respondError writes the {"error": message} envelope for err. Internal
// failures are logged and hidden behind a generic message.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	kind := apperrors.KindOf(err)
	if kind == apperrors.KindInternal {
		log.Error().Err(err).
			Str("request_id", middlewares.GetRequestID(c)).
			Str("path", c.FullPath()).
			Msg("request failed")
	}
	c.JSON(apperrors.HTTPStatus(kind), gin.H{"error": apperrors.Message(err)})
}

func parseID(c *gin.Context, what string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID"})
		return 0, false
	}
	return id, true
}

func succeeded(c *gin.Context) bool {
	status := c.Writer.Status()
	return status >= 200 && status < 300
}
