package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom/internal/api"
	"github.com/storyloom/storyloom/internal/export"
	"github.com/storyloom/storyloom/internal/svcctx"
)

// ExportBookRequest is the body for POST /api/story/export.
type ExportBookRequest struct {
	PersonID string `json:"person_id"`
	Format   string `json:"format,omitempty"` // "markdown" (default) or "epub"
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
}

// ExportBookResponse reports where the exported file was written.
type ExportBookResponse struct {
	PersonID string `json:"person_id"`
	Format   string `json:"format"`
	Path     string `json:"path"`
}

// ExportBookEndpoint handles POST /api/story/export. It writes the
// person's compiled book to the server's exports directory.
type ExportBookEndpoint struct{}

func (e *ExportBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/story/export", e.handler
}

func (e *ExportBookEndpoint) RequiresInit() bool { return true }

func (e *ExportBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ExportBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.PersonID == "" {
		writeError(w, http.StatusBadRequest, "person_id is required")
		return
	}
	format := req.Format
	if format == "" {
		format = "markdown"
	}
	if format != "markdown" && format != "epub" {
		writeError(w, http.StatusBadRequest, "format must be markdown or epub")
		return
	}

	svc := svcctx.StoryFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "story service not initialized")
		return
	}
	homeDir := svcctx.HomeFrom(r.Context())
	if homeDir == nil {
		writeError(w, http.StatusServiceUnavailable, "home directory not configured")
		return
	}

	stored, err := svc.GetBook(r.Context(), req.PersonID)
	if err != nil {
		writeStoryError(w, err)
		return
	}
	if stored == nil {
		writeError(w, http.StatusNotFound, "no compiled book for person")
		return
	}

	title := req.Title
	if title == "" {
		title = "My Life Story"
	}
	book := export.Book{
		Title:      title,
		Author:     req.Author,
		CompiledAt: stored.CompiledAt,
		Sections:   export.ParseSections(stored.BookText),
	}

	if err := homeDir.EnsureExportsDir(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var path string
	switch format {
	case "epub":
		path = homeDir.BookEpubPath(req.PersonID)
		err = export.NewEpubBuilder(book).Build(path)
	default:
		path = homeDir.BookExportPath(req.PersonID)
		err = export.WriteMarkdown(path, book)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("export failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, ExportBookResponse{
		PersonID: req.PersonID,
		Format:   format,
		Path:     path,
	})
}

func (e *ExportBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	var format, title, author string
	cmd := &cobra.Command{
		Use:   "export <person-id>",
		Short: "Export a person's compiled book to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := ExportBookRequest{
				PersonID: args[0],
				Format:   format,
				Title:    title,
				Author:   author,
			}
			var resp ExportBookResponse
			if err := client.Post(cmd.Context(), "/api/story/export", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&format, "format", "markdown", "export format (markdown or epub)")
	cmd.Flags().StringVar(&title, "title", "", "book title")
	cmd.Flags().StringVar(&author, "author", "", "author name")
	return cmd
}
