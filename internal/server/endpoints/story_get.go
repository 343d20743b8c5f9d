package endpoints

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom/internal/api"
	"github.com/storyloom/storyloom/internal/svcctx"
)

// GetBookEndpoint handles GET /api/story/{person_id}.
type GetBookEndpoint struct{}

func (e *GetBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/story/{person_id}", e.handler
}

func (e *GetBookEndpoint) RequiresInit() bool { return true }

func (e *GetBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("person_id")
	if personID == "" {
		writeError(w, http.StatusBadRequest, "person_id is required")
		return
	}

	svc := svcctx.StoryFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "story service not initialized")
		return
	}

	book, err := svc.GetBook(r.Context(), personID)
	if err != nil {
		writeStoryError(w, err)
		return
	}
	if book == nil {
		writeError(w, http.StatusNotFound, "no compiled book for person")
		return
	}

	writeJSON(w, http.StatusOK, Book{
		PersonID:     book.PersonID,
		BookText:     book.BookText,
		StyleGuide:   book.StyleGuide,
		ChaptersUsed: book.ChaptersUsed,
		CompiledAt:   book.CompiledAt.Format(time.RFC3339),
	})
}

func (e *GetBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <person-id>",
		Short: "Fetch a person's compiled book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var book Book
			if err := client.Get(cmd.Context(), "/api/story/"+args[0], &book); err != nil {
				return err
			}
			return api.Output(book)
		},
	}
}
