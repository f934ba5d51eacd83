package fhir

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorHandler returns an echo.HTTPErrorHandler that renders every handler
// error as an OperationOutcome. An *echo.HTTPError whose Message is already
// an *OperationOutcome is written as is; any other message becomes the
// diagnostics of a single issue coded from the status. Errors that are not
// *echo.HTTPError are logged and reported as 500 without leaking details.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, outcome := outcomeFor(err)
		if status >= http.StatusInternalServerError {
			reqID, _ := c.Get("request_id").(string)
			logger.Error().
				Err(err).
				Str("request_id", reqID).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, outcome)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("failed to write error response")
		}
	}
}

func outcomeFor(err error) (int, *OperationOutcome) {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return http.StatusInternalServerError, InternalErrorOutcome("internal server error")
	}
	if he.Code >= http.StatusInternalServerError {
		return he.Code, InternalErrorOutcome(http.StatusText(he.Code))
	}

	switch m := he.Message.(type) {
	case *OperationOutcome:
		return he.Code, m
	case string:
		return he.Code, NewOperationOutcome(IssueSeverityError, IssueCodeForStatus(he.Code), m)
	default:
		return he.Code, NewOperationOutcome(IssueSeverityError, IssueCodeForStatus(he.Code), fmt.Sprint(m))
	}
}

// IssueCodeForStatus picks the issue type code that matches an HTTP status.
func IssueCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return IssueTypeInvalid
	case http.StatusNotFound:
		return IssueTypeNotFound
	case http.StatusMethodNotAllowed:
		return IssueTypeNotSupported
	case http.StatusConflict:
		return IssueTypeConflict
	case http.StatusUnprocessableEntity:
		return IssueTypeBusinessRule
	case http.StatusUnsupportedMediaType:
		return IssueTypeStructure
	default:
		if status >= http.StatusInternalServerError {
			return IssueTypeException
		}
		return IssueTypeProcessing
	}
}
