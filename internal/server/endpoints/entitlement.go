package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom/internal/api"
	"github.com/storyloom/storyloom/internal/svcctx"
)

// SetEntitlementRequest is the body for POST /api/admin/entitlement.
type SetEntitlementRequest struct {
	PersonID    string `json:"person_id"`
	CanGenerate bool   `json:"can_generate"`
}

// SetEntitlementEndpoint handles POST /api/admin/entitlement.
// Grants or revokes a person's right to trigger narrative generation.
type SetEntitlementEndpoint struct{}

func (e *SetEntitlementEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/admin/entitlement", e.handler
}

func (e *SetEntitlementEndpoint) RequiresInit() bool { return true }

func (e *SetEntitlementEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req SetEntitlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.PersonID == "" {
		writeError(w, http.StatusBadRequest, "person_id is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	if _, err := st.EnsurePerson(r.Context(), req.PersonID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := st.SetCanGenerate(r.Context(), req.PersonID, req.CanGenerate); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"person_id":    req.PersonID,
		"can_generate": req.CanGenerate,
	})
}

func (e *SetEntitlementEndpoint) Command(getServerURL func() string) *cobra.Command {
	var revoke bool
	cmd := &cobra.Command{
		Use:   "entitle <person-id>",
		Short: "Grant or revoke a person's generation entitlement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := SetEntitlementRequest{PersonID: args[0], CanGenerate: !revoke}
			var resp map[string]any
			if err := client.Post(cmd.Context(), "/api/admin/entitlement", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "revoke instead of grant")
	return cmd
}
