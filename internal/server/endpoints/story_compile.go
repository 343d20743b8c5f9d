package endpoints

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom/internal/api"
	"github.com/storyloom/storyloom/internal/svcctx"
)

// CompileBookRequest is the body for POST /api/story/compile.
type CompileBookRequest struct {
	PersonID   string `json:"person_id"`
	StyleGuide string `json:"style_guide,omitempty"`
}

// Book is the API representation of a compiled life-story book.
type Book struct {
	PersonID     string `json:"person_id"`
	BookText     string `json:"book_text"`
	StyleGuide   string `json:"style_guide,omitempty"`
	ChaptersUsed int    `json:"chapters_used"`
	CompiledAt   string `json:"compiled_at"`
}

// CompileBookResponse is the response for POST /api/story/compile.
type CompileBookResponse struct {
	Compiled bool `json:"compiled"`
	Book     Book `json:"book"`
}

// CompileBookEndpoint handles POST /api/story/compile.
// Compilation synthesizes any chapters that are not cached yet, so this can
// be a long call on a cold cache.
type CompileBookEndpoint struct{}

func (e *CompileBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/story/compile", e.handler
}

func (e *CompileBookEndpoint) RequiresInit() bool { return true }

func (e *CompileBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req CompileBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.PersonID == "" {
		writeError(w, http.StatusBadRequest, "person_id is required")
		return
	}

	svc := svcctx.StoryFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "story service not initialized")
		return
	}

	book, err := svc.CompileBook(r.Context(), req.PersonID, req.StyleGuide)
	if err != nil {
		writeStoryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CompileBookResponse{
		Compiled: true,
		Book: Book{
			PersonID:     book.PersonID,
			BookText:     book.BookText,
			StyleGuide:   book.StyleGuide,
			ChaptersUsed: book.ChaptersUsed,
			CompiledAt:   book.CompiledAt.Format(time.RFC3339),
		},
	})
}

func (e *CompileBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		personID   string
		styleGuide string
	)
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a person's full life-story book",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := CompileBookRequest{PersonID: personID, StyleGuide: styleGuide}
			var resp CompileBookResponse
			if err := client.Post(cmd.Context(), "/api/story/compile", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&personID, "person", "", "person ID to compile for")
	cmd.Flags().StringVar(&styleGuide, "style", "", "style guide for chapters generated during compile")
	cmd.MarkFlagRequired("person")
	return cmd
}
