package httpx

import (
	"net/http"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// RespondError maps the shared error taxonomy to RFC7807 responses. The kind
// and per-field detail pass through unmodified so callers can react
// programmatically.
func RespondError(w http.ResponseWriter, err error) {
	kind := shared.KindOf(err)
	status := http.StatusInternalServerError
	title := "Internal Error"
	detail := ""

	switch kind {
	case shared.KindValidation:
		status, title, detail = http.StatusBadRequest, "Validation Failed", err.Error()
	case shared.KindReference:
		status, title, detail = http.StatusUnprocessableEntity, "Invalid Reference", err.Error()
	case shared.KindConflict:
		status, title, detail = http.StatusConflict, "Conflict", err.Error()
	case shared.KindPrecondition:
		status, title, detail = http.StatusPreconditionFailed, "Precondition Failed", err.Error()
	case shared.KindAuthorization:
		status, title, detail = http.StatusForbidden, "Forbidden", err.Error()
	case shared.KindTimeout:
		status, title, detail = http.StatusGatewayTimeout, "Storage Timeout", err.Error()
	case shared.KindNotFound:
		status, title, detail = http.StatusNotFound, "Not Found", err.Error()
	}

	JSON(w, status, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
		Kind:   string(kind),
		Fields: shared.FieldsOf(err),
	})
}
