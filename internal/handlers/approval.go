package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/edupanel/apiserver/internal/services"
	"github.com/edupanel/apiserver/internal/store"
	"github.com/edupanel/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// ApprovalHandler exposes the privileged approval workflow: faculty
// resolve students, HOD resolve faculty.
type ApprovalHandler struct {
	approvals *services.ApprovalService
	identity  *services.IdentityService
}

func NewApprovalHandler(approvals *services.ApprovalService, identity *services.IdentityService) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals, identity: identity}
}

// ApprovalRouter registers approval routes on the given router.
func ApprovalRouter(r chi.Router, handler *ApprovalHandler, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Get("/", handler.ListPending)
	r.With(authMiddleware).Post("/{accountID}/approve", handler.Approve)
	r.With(authMiddleware).Post("/{accountID}/reject", handler.Reject)
}

type PendingListResponse struct {
	Items []types.PendingApprovalEntry `json:"items"`
	Total int                          `json:"total"`
}

// ListPending returns the accounts waiting on the caller. The read is
// always fresh, so an account approved from another session is gone
// from the next call here.
func (h *ApprovalHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	approver, ok := h.approver(w, r)
	if !ok {
		return
	}

	entries, err := h.approvals.ListPending(r.Context(), approver.Role)
	if err != nil {
		if errors.Is(err, types.ErrApprovalScope) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list pending accounts")
		return
	}

	writeJSON(w, http.StatusOK, PendingListResponse{Items: entries, Total: len(entries)})
}

// Approve resolves the target account. Optional body fields override
// the target's own draft; with neither, placeholders are used.
// Approving an already-approved account is a no-op success.
func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	approver, ok := h.approver(w, r)
	if !ok {
		return
	}

	fields, err := optionalProfileFields(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	accountID := chi.URLParam(r, "accountID")
	if err := h.approvals.Approve(r.Context(), approver.Role, accountID, fields); err != nil {
		writeApprovalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "approved"})
}

// Reject durably marks the target rejected. Rejecting an approved
// account is a no-op; approval stands.
func (h *ApprovalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	approver, ok := h.approver(w, r)
	if !ok {
		return
	}

	accountID := chi.URLParam(r, "accountID")
	if err := h.approvals.Reject(r.Context(), approver.Role, accountID); err != nil {
		writeApprovalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "rejected"})
}

// approver loads the caller's identity and requires an approved
// faculty or hod account. A pending faculty member cannot resolve
// students yet.
func (h *ApprovalHandler) approver(w http.ResponseWriter, r *http.Request) (types.UserIdentity, bool) {
	accountID, err := accountIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return types.UserIdentity{}, false
	}

	identity, err := h.identity.Identity(r.Context(), accountID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return types.UserIdentity{}, false
	}

	if identity.Role != types.RoleFaculty && identity.Role != types.RoleHOD {
		writeError(w, http.StatusForbidden, "approver role required")
		return types.UserIdentity{}, false
	}
	if identity.ApprovalStatus != types.ApprovalApproved {
		writeError(w, http.StatusForbidden, "approver account is not active")
		return types.UserIdentity{}, false
	}
	return identity, true
}

func optionalProfileFields(r *http.Request) (types.ProfileFields, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.New("invalid request")
	}
	if len(body) == 0 {
		return nil, nil
	}

	var discriminator struct {
		Role types.Role `json:"role"`
	}
	if err := json.Unmarshal(body, &discriminator); err != nil {
		return nil, errors.New("invalid request")
	}
	if discriminator.Role == "" {
		return nil, nil
	}

	switch discriminator.Role {
	case types.RoleStudent:
		var fields types.StudentFields
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, errors.New("invalid student fields")
		}
		return fields, nil
	case types.RoleFaculty, types.RoleHOD:
		var fields types.FacultyFields
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, errors.New("invalid faculty fields")
		}
		return fields, nil
	default:
		return nil, errors.New("unknown role")
	}
}

func writeApprovalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrApprovalScope):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "account not found")
	default:
		writeError(w, http.StatusInternalServerError, "approval operation failed")
	}
}
