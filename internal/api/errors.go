package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/peqlink/internal/peq"
)

// deviceStatus maps device error codes onto HTTP statuses.
var deviceStatus = map[string]int{
	peq.ErrCodeUnsupportedDevice:  http.StatusUnprocessableEntity,
	peq.ErrCodeTimeout:            http.StatusGatewayTimeout,
	peq.ErrCodeDeviceDisconnected: http.StatusGone,
	peq.ErrCodeProtocolDecode:     http.StatusBadGateway,
	peq.ErrCodeNotConnected:       http.StatusConflict,
	peq.ErrCodeSessionActive:      http.StatusConflict,
	peq.ErrCodeInvalidParams:      http.StatusBadRequest,
	peq.ErrCodeExperimental:       http.StatusPreconditionFailed,
}

// deviceErrors lists the statuses device operations may return, for the
// OpenAPI document.
var deviceErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusConflict,
	http.StatusGone,
	http.StatusUnprocessableEntity,
	http.StatusBadGateway,
	http.StatusGatewayTimeout,
}

// toHTTPError converts an orchestrator error into a huma status error whose
// detail carries the device error code.
func toHTTPError(err error) error {
	var de *peq.DeviceError
	if !errors.As(err, &de) {
		return huma.Error500InternalServerError("Internal error", err)
	}
	status, ok := deviceStatus[de.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	msg := de.Message
	if de.Cause != nil {
		msg += ": " + de.Cause.Error()
	}
	return huma.NewError(status, msg, &huma.ErrorDetail{
		Location: "device",
		Message:  de.Code,
	})
}
