package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom/internal/api"
	"github.com/storyloom/storyloom/internal/svcctx"
)

// Chapter is the API representation of an interview chapter.
type Chapter struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SortOrder int    `json:"sort_order"`
}

// Question is the API representation of an interview question.
type Question struct {
	ID        string `json:"id"`
	ChapterID string `json:"chapter_id"`
	SortOrder int    `json:"sort_order"`
	Prompt    string `json:"prompt"`
}

// ListChaptersEndpoint handles GET /api/chapters.
type ListChaptersEndpoint struct{}

func (e *ListChaptersEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/chapters", e.handler
}

func (e *ListChaptersEndpoint) RequiresInit() bool { return true }

func (e *ListChaptersEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	chapters, err := st.ListChapters(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]Chapter, 0, len(chapters))
	for _, ch := range chapters {
		out = append(out, Chapter{ID: ch.ID, Title: ch.Title, SortOrder: ch.SortOrder})
	}
	writeJSON(w, http.StatusOK, out)
}

func (e *ListChaptersEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "chapters",
		Short: "List interview chapters",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var chapters []Chapter
			if err := client.Get(cmd.Context(), "/api/chapters", &chapters); err != nil {
				return err
			}
			return api.Output(chapters)
		},
	}
}

// ListQuestionsEndpoint handles GET /api/chapters/{id}/questions.
type ListQuestionsEndpoint struct{}

func (e *ListQuestionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/chapters/{id}/questions", e.handler
}

func (e *ListQuestionsEndpoint) RequiresInit() bool { return true }

func (e *ListQuestionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "chapter id is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	ch, err := st.GetChapter(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ch == nil {
		writeError(w, http.StatusNotFound, "chapter not found")
		return
	}

	questions, err := st.ListQuestions(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]Question, 0, len(questions))
	for _, q := range questions {
		out = append(out, Question{ID: q.ID, ChapterID: q.ChapterID, SortOrder: q.SortOrder, Prompt: q.Prompt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (e *ListQuestionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "questions <chapter-id>",
		Short: "List questions for a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var questions []Question
			if err := client.Get(cmd.Context(), "/api/chapters/"+args[0]+"/questions", &questions); err != nil {
				return err
			}
			return api.Output(questions)
		},
	}
}
