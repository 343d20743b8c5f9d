package endpoints

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom/internal/api"
	"github.com/storyloom/storyloom/internal/story"
	"github.com/storyloom/storyloom/internal/svcctx"
)

// SynthesizeChapterRequest is the body for POST /api/story/chapter.
type SynthesizeChapterRequest struct {
	PersonID       string `json:"person_id"`
	ChapterID      string `json:"chapter_id"`
	StyleGuide     string `json:"style_guide,omitempty"`
	ContextSummary string `json:"context_summary,omitempty"`
	Force          bool   `json:"force,omitempty"`
}

// ChapterNarrative is the API representation of a generated narrative.
type ChapterNarrative struct {
	PersonID    string `json:"person_id"`
	ChapterID   string `json:"chapter_id"`
	Narrative   string `json:"narrative"`
	Summary     string `json:"summary"`
	GeneratedAt string `json:"generated_at"`
}

// SynthesizeChapterEndpoint handles POST /api/story/chapter.
// Returns the cached narrative when one exists unless force is set.
type SynthesizeChapterEndpoint struct{}

func (e *SynthesizeChapterEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/story/chapter", e.handler
}

func (e *SynthesizeChapterEndpoint) RequiresInit() bool { return true }

func (e *SynthesizeChapterEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req SynthesizeChapterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.PersonID == "" || req.ChapterID == "" {
		writeError(w, http.StatusBadRequest, "person_id and chapter_id are required")
		return
	}

	svc := svcctx.StoryFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "story service not initialized")
		return
	}

	n, err := svc.SynthesizeChapter(r.Context(), story.SynthesizeRequest{
		PersonID:       req.PersonID,
		ChapterID:      req.ChapterID,
		StyleGuide:     req.StyleGuide,
		ContextSummary: req.ContextSummary,
		Force:          req.Force,
	})
	if err != nil {
		writeStoryError(w, err)
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

func (e *SynthesizeChapterEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		personID   string
		styleGuide string
		force      bool
	)
	cmd := &cobra.Command{
		Use:   "synthesize <chapter-id>",
		Short: "Generate the narrative for one chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := SynthesizeChapterRequest{
				PersonID:   personID,
				ChapterID:  args[0],
				StyleGuide: styleGuide,
				Force:      force,
			}
			var resp ChapterNarrative
			if err := client.Post(cmd.Context(), "/api/story/chapter", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&personID, "person", "", "person ID to synthesize for")
	cmd.Flags().StringVar(&styleGuide, "style", "", "style guide for the narrative voice")
	cmd.Flags().BoolVar(&force, "force", false, "regenerate even if a narrative is cached")
	cmd.MarkFlagRequired("person")
	return cmd
}
