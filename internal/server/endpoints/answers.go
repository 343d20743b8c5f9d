package endpoints

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom/internal/api"
	"github.com/storyloom/storyloom/internal/store"
	"github.com/storyloom/storyloom/internal/svcctx"
)

// UpsertAnswerRequest is the body for POST /api/answers.
type UpsertAnswerRequest struct {
	PersonID   string `json:"person_id"`
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
}

// Answer is the API representation of a stored interview answer.
type Answer struct {
	PersonID   string `json:"person_id"`
	QuestionID string `json:"question_id"`
	ChapterID  string `json:"chapter_id"`
	Text       string `json:"text"`
	UpdatedAt  string `json:"updated_at"`
}

// UpsertAnswerEndpoint handles POST /api/answers.
// Answers arrive from an external capture flow; repeated posts for the same
// (person, question) replace the stored text.
type UpsertAnswerEndpoint struct{}

func (e *UpsertAnswerEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/answers", e.handler
}

func (e *UpsertAnswerEndpoint) RequiresInit() bool { return true }

func (e *UpsertAnswerEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req UpsertAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.PersonID == "" || req.QuestionID == "" {
		writeError(w, http.StatusBadRequest, "person_id and question_id are required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	// Resolve the question's chapter so answers stay queryable per chapter.
	question, err := st.GetQuestion(r.Context(), req.QuestionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if question == nil {
		writeError(w, http.StatusNotFound, "question not found")
		return
	}

	if _, err := st.EnsurePerson(r.Context(), req.PersonID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	err = st.UpsertAnswer(r.Context(), store.Answer{
		PersonID:   req.PersonID,
		QuestionID: req.QuestionID,
		ChapterID:  question.ChapterID,
		Text:       req.Text,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"person_id":   req.PersonID,
		"question_id": req.QuestionID,
		"chapter_id":  question.ChapterID,
		"status":      "saved",
	})
}

func (e *UpsertAnswerEndpoint) Command(getServerURL func() string) *cobra.Command {
	var personID string
	cmd := &cobra.Command{
		Use:   "answer <question-id> <text>",
		Short: "Save an interview answer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := UpsertAnswerRequest{
				PersonID:   personID,
				QuestionID: args[0],
				Text:       args[1],
			}
			var resp map[string]string
			if err := client.Post(cmd.Context(), "/api/answers", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&personID, "person", "", "person ID the answer belongs to")
	cmd.MarkFlagRequired("person")
	return cmd
}

// DeleteAnswerEndpoint handles DELETE /api/answers/{question_id}?person_id=.
// Deleting an answer lets a person retract or re-record a response before
// synthesis; it does not touch any cached narrative.
type DeleteAnswerEndpoint struct{}

func (e *DeleteAnswerEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/answers/{question_id}", e.handler
}

func (e *DeleteAnswerEndpoint) RequiresInit() bool { return true }

func (e *DeleteAnswerEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	questionID := r.PathValue("question_id")
	personID := r.URL.Query().Get("person_id")
	if questionID == "" || personID == "" {
		writeError(w, http.StatusBadRequest, "question id and person_id are required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	deleted, err := st.DeleteAnswer(r.Context(), personID, questionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "answer not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"person_id":   personID,
		"question_id": questionID,
		"status":      "deleted",
	})
}

func (e *DeleteAnswerEndpoint) Command(getServerURL func() string) *cobra.Command {
	var personID string
	cmd := &cobra.Command{
		Use:   "unanswer <question-id>",
		Short: "Delete an interview answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/answers/" + args[0] + "?person_id=" + url.QueryEscape(personID)
			if err := client.Delete(cmd.Context(), path); err != nil {
				return err
			}
			return api.Output(map[string]string{
				"question_id": args[0],
				"status":      "deleted",
			})
		},
	}
	cmd.Flags().StringVar(&personID, "person", "", "person ID the answer belongs to")
	cmd.MarkFlagRequired("person")
	return cmd
}

// ListAnswersEndpoint handles GET /api/answers?person_id=&chapter_id=.
type ListAnswersEndpoint struct{}

func (e *ListAnswersEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/answers", e.handler
}

func (e *ListAnswersEndpoint) RequiresInit() bool { return true }

func (e *ListAnswersEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	personID := r.URL.Query().Get("person_id")
	chapterID := r.URL.Query().Get("chapter_id")
	if personID == "" || chapterID == "" {
		writeError(w, http.StatusBadRequest, "person_id and chapter_id query parameters are required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	answers, err := st.ListAnswers(r.Context(), personID, chapterID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]Answer, 0, len(answers))
	for _, a := range answers {
		out = append(out, Answer{
			PersonID:   a.PersonID,
			QuestionID: a.QuestionID,
			ChapterID:  a.ChapterID,
			Text:       a.Text,
			UpdatedAt:  a.UpdatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (e *ListAnswersEndpoint) Command(getServerURL func() string) *cobra.Command {
	var personID string
	cmd := &cobra.Command{
		Use:   "answers <chapter-id>",
		Short: "List a person's answers for a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/answers?person_id=" + url.QueryEscape(personID) + "&chapter_id=" + url.QueryEscape(args[0])
			var answers []Answer
			if err := client.Get(cmd.Context(), path, &answers); err != nil {
				return err
			}
			return api.Output(answers)
		},
	}
	cmd.Flags().StringVar(&personID, "person", "", "person ID to list answers for")
	cmd.MarkFlagRequired("person")
	return cmd
}
