package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"checkin/internal/domain"
)

type errorDTO struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

// toHTTPStatus maps a domain error code to the response status.
func toHTTPStatus(code string) int {
	switch code {
	case "invalid_status", "source_misconfigured":
		return http.StatusUnprocessableEntity
	case "attendee_not_found":
		return http.StatusNotFound
	case "switch_not_confirmed", "update_rejected":
		return http.StatusConflict
	case "source_parse_error":
		return http.StatusBadGateway
	case "source_unavailable", "manual_source_required", "not_initialized":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes err localized for the request's Accept-Language.
func (s *Server) abortWithError(c *gin.Context, err error) {
	code := domain.Code(err)
	if code == "" {
		code = "unknown"
	}
	msg := s.tr.Error(s.tr.Match(c.GetHeader("Accept-Language")), err)
	c.AbortWithStatusJSON(toHTTPStatus(code), errorBody(code, msg))
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody("invalid_argument", msg))
}
