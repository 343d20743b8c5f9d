package endpoints

import (
	"errors"
	"net/http"

	"github.com/storyloom/storyloom/internal/story"
)

// writeStoryError maps pipeline errors onto HTTP status codes.
func writeStoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, story.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, story.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, story.ErrPartialGeneration), errors.Is(err, story.ErrGenerationFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
