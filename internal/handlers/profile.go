package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/edupanel/apiserver/internal/routing"
	"github.com/edupanel/apiserver/internal/services"
	"github.com/edupanel/apiserver/internal/storage"
	"github.com/edupanel/apiserver/internal/store"
	"github.com/edupanel/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	maxAvatarBytes  = 4 << 20
	formFieldAvatar = "avatar"
)

// ProfileHandler provides profile setup and avatar upload.
type ProfileHandler struct {
	identity *services.IdentityService
	avatars  *storage.Storage
}

func NewProfileHandler(identity *services.IdentityService, avatars *storage.Storage) *ProfileHandler {
	return &ProfileHandler{identity: identity, avatars: avatars}
}

// ProfileRouter registers profile routes on the given router. All of
// them require authentication.
func ProfileRouter(r chi.Router, handler *ProfileHandler, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Post("/", handler.CompleteProfile)
	r.With(authMiddleware).Post("/avatar", handler.UploadAvatar)
}

// CompleteProfile accepts the role-discriminated profile submission.
// Resubmitting a complete profile is a no-op success.
func (h *ProfileHandler) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	fields, err := decodeProfileFields(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.identity.CompleteProfile(r.Context(), accountID, fields); err != nil {
		var validation *types.ValidationError
		switch {
		case errors.As(err, &validation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "account not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to complete profile")
		}
		return
	}

	identity, err := h.identity.Identity(r.Context(), accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load identity")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"identity": identity,
		"next":     routing.NextRoute(&identity),
	})
}

// UploadAvatar stores the avatar object and records its URL on the
// account.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "avatar storage is not configured")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile(formFieldAvatar)
	if err != nil {
		writeError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	if header.Size > maxAvatarBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "avatar exceeds size limit")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "avatar must be an image")
		return
	}

	key := fmt.Sprintf("avatars/%s%s", accountID, path.Ext(header.Filename))
	if err := h.avatars.Put(r.Context(), key, file, header.Size, contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	avatarURL := "/" + h.avatars.Bucket() + "/" + key
	if err := h.identity.SetAvatar(r.Context(), accountID, avatarURL); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record avatar")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"avatar_url": avatarURL})
}

// decodeProfileFields picks the ProfileFields variant from the "role"
// discriminator in the body and unmarshals the rest of the fields into it.
func decodeProfileFields(r *http.Request) (types.ProfileFields, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, errors.New("invalid request")
	}

	var discriminator struct {
		Role types.Role `json:"role"`
	}
	if err := json.Unmarshal(raw, &discriminator); err != nil {
		return nil, errors.New("invalid request")
	}

	switch discriminator.Role {
	case types.RoleStudent:
		var fields types.StudentFields
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, errors.New("invalid student profile fields")
		}
		return fields, nil
	case types.RoleFaculty, types.RoleHOD:
		var fields types.FacultyFields
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, errors.New("invalid faculty profile fields")
		}
		return fields, nil
	default:
		return nil, errors.New("role must be student or faculty")
	}
}
