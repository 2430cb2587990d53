package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pilo_plug/internal/device"
	"pilo_plug/internal/repository"
	"pilo_plug/internal/service"
)

// errBadRequest marks malformed query parameters and bodies.
var errBadRequest = errors.New("bad request")

// respond writes a success envelope; extra keys sit next to data.
func (h *Handler) respond(c *gin.Context, data interface{}, extra gin.H) {
	resp := gin.H{"success": true}
	if data != nil {
		resp["data"] = data
	}
	for k, v := range extra {
		resp[k] = v
	}
	c.JSON(http.StatusOK, resp)
}

// fail maps err to a status code and a failure envelope and logs it.
func (h *Handler) fail(c *gin.Context, err error, logKey string, kv ...interface{}) {
	code := statusFor(err)
	fields := append([]interface{}{"err", err, "request_id", c.GetString(requestIDKey)}, kv...)
	if code >= http.StatusInternalServerError {
		h.log.Errorw(logKey, fields...)
	} else {
		h.log.Infow(logKey, fields...)
	}
	c.AbortWithStatusJSON(code, gin.H{"success": false, "error": errorBody(err)})
}

func statusFor(err error) int {
	var de *device.Error
	switch {
	case errors.As(err, &de):
		switch de.Kind {
		case device.KindValidation:
			return http.StatusBadRequest
		case device.KindTimeout:
			return http.StatusGatewayTimeout
		case device.KindConnection, device.KindHTTP:
			return http.StatusBadGateway
		default:
			return http.StatusInternalServerError
		}
	case errors.Is(err, errBadRequest),
		errors.Is(err, service.ErrUnknownPeriod),
		errors.Is(err, repository.ErrInvalidWindow):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNoSamples):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the classified device error as is, or {"message": ...}.
func errorBody(err error) interface{} {
	var de *device.Error
	if errors.As(err, &de) {
		return de
	}
	return gin.H{"message": err.Error()}
}

func healthCode(ok bool) int {
	if ok {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}
