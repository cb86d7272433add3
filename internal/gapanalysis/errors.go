package gapanalysis

import (
	"errors"
	"net/http"

	"esg-gap-backend/internal/csvdata"
	"esg-gap-backend/internal/csvsource"
)

// HTTPError maps a pipeline error to a status, an error code, a message and
// optional details for the standard error envelope.
func HTTPError(err error) (status int, code, message string, details any) {
	var verr *csvdata.ValidationError
	var ferr *FetchError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, "invalid_report_data", "Report data is invalid", verr.Result
	case errors.As(err, &ferr):
		return http.StatusBadGateway, "report_data_unavailable", "Report data could not be retrieved", fetchDetails(ferr)
	case errors.Is(err, ErrNoData):
		return http.StatusConflict, "report_not_ready", "Report data is not available yet", nil
	default:
		return http.StatusInternalServerError, "internal_error", "Failed to compute gap analysis", nil
	}
}

// fetchDetails describes a fetch failure without echoing raw error text,
// which can carry hosts, keys or provider messages.
func fetchDetails(ferr *FetchError) map[string]any {
	details := map[string]any{}
	var (
		pairErr      *csvsource.PairError
		statusErr    *csvsource.StatusError
		transportErr *csvsource.TransportError
	)
	if errors.As(ferr, &pairErr) {
		details["source"] = pairErr.Side
	}
	switch {
	case errors.As(ferr, &statusErr):
		details["reason"] = "unexpected_status"
		details["url"] = statusErr.URL
		details["statusCode"] = statusErr.StatusCode
	case errors.As(ferr, &transportErr):
		details["reason"] = "unreachable"
		if transportErr.Timeout() {
			details["reason"] = "timeout"
		}
		details["url"] = transportErr.URL
	case errors.Is(ferr, csvsource.ErrTooLarge):
		details["reason"] = "too_large"
	case errors.Is(ferr, csvsource.ErrUnsupportedScheme):
		details["reason"] = "unsupported_scheme"
	case errors.Is(ferr, csvsource.ErrNotConfigured):
		details["reason"] = "not_configured"
	default:
		details["reason"] = "unavailable"
	}
	return details
}
