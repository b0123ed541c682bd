package route

import (
	"errors"
	"log/slog"
	"net/http"

	"npocal/src-server/model"
	"npocal/src-server/service"
)

// Map a service error onto the wire. Validation problems are the caller's
// to fix; not-found covers both missing entities and entities the caller
// isn't entitled to know about.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *model.ValidationError
	switch {
	case errors.As(err, &validationErr):
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(validationErr.Error()))
	case errors.Is(err, service.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Not found"))
	case errors.Is(err, service.ErrForbidden):
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("Forbidden"))
	case errors.Is(err, service.ErrConflict):
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte("Conflict, please retry"))
	default:
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
		slog.Error("unhandled service error", "error", err)
	}
}
