package endpoints

import (
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom/internal/api"
	"github.com/storyloom/storyloom/internal/svcctx"
)

// GetChapterNarrativeEndpoint handles GET /api/story/chapter/{id}?person_id=.
// An absent narrative is a null body, not an error; only an unknown chapter
// is a 404.
type GetChapterNarrativeEndpoint struct{}

func (e *GetChapterNarrativeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/story/chapter/{id}", e.handler
}

func (e *GetChapterNarrativeEndpoint) RequiresInit() bool { return true }

func (e *GetChapterNarrativeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	chapterID := r.PathValue("id")
	personID := r.URL.Query().Get("person_id")
	if chapterID == "" || personID == "" {
		writeError(w, http.StatusBadRequest, "chapter id and person_id are required")
		return
	}

	svc := svcctx.StoryFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "story service not initialized")
		return
	}

	n, err := svc.GetChapterNarrative(r.Context(), personID, chapterID)
	if err != nil {
		writeStoryError(w, err)
		return
	}
	if n == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	writeJSON(w, http.StatusOK, ChapterNarrative{
		PersonID:    n.PersonID,
		ChapterID:   n.ChapterID,
		Narrative:   n.Narrative,
		Summary:     n.Summary,
		GeneratedAt: n.GeneratedAt.Format(time.RFC3339),
	})
}

func (e *GetChapterNarrativeEndpoint) Command(getServerURL func() string) *cobra.Command {
	var personID string
	cmd := &cobra.Command{
		Use:   "narrative <chapter-id>",
		Short: "Fetch the cached narrative for a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/story/chapter/" + args[0] + "?person_id=" + url.QueryEscape(personID)
			var resp *ChapterNarrative
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			if resp == nil {
				return api.Output(map[string]string{"status": "not generated"})
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&personID, "person", "", "person ID the narrative belongs to")
	cmd.MarkFlagRequired("person")
	return cmd
}

// ListNarrativesEndpoint handles GET /api/story/narratives?person_id=.
// It lists the person's synthesized chapters in canonical order.
type ListNarrativesEndpoint struct{}

func (e *ListNarrativesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/story/narratives", e.handler
}

func (e *ListNarrativesEndpoint) RequiresInit() bool { return true }

func (e *ListNarrativesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	personID := r.URL.Query().Get("person_id")
	if personID == "" {
		writeError(w, http.StatusBadRequest, "person_id query parameter is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	narratives, err := st.ListNarratives(r.Context(), personID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]ChapterNarrative, 0, len(narratives))
	for _, n := range narratives {
		out = append(out, ChapterNarrative{
			PersonID:    n.PersonID,
			ChapterID:   n.ChapterID,
			Narrative:   n.Narrative,
			Summary:     n.Summary,
			GeneratedAt: n.GeneratedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (e *ListNarrativesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var personID string
	cmd := &cobra.Command{
		Use:   "narratives",
		Short: "List a person's synthesized chapter narratives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/story/narratives?person_id=" + url.QueryEscape(personID)
			var narratives []ChapterNarrative
			if err := client.Get(cmd.Context(), path, &narratives); err != nil {
				return err
			}
			return api.Output(narratives)
		},
	}
	cmd.Flags().StringVar(&personID, "person", "", "person ID to list narratives for")
	cmd.MarkFlagRequired("person")
	return cmd
}
