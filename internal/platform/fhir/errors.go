package fhir

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// HTTPErrorHandler renders errors under a path containing "/fhir" as an
// OperationOutcome and every other error as {"error": message}.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := http.StatusText(status)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			msg = fmt.Sprint(he.Message)
		} else {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).Str("request_id", rid).Msg("unhandled error")
		}

		var body interface{} = map[string]string{"error": msg}
		if strings.Contains(c.Request().URL.Path, "/fhir") {
			severity := IssueSeverityError
			if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
				severity = IssueSeverityFatal
			}
			body = NewOperationOutcome(severity, IssueTypeForStatus(status), msg)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("writing error response")
		}
	}
}
