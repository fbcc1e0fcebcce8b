// internal/app/features/profile/profile.go
package profile

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	uierrors "github.com/dalemusser/onepager/internal/app/features/errors"
	profilestore "github.com/dalemusser/onepager/internal/app/store/profiles"
	"github.com/dalemusser/onepager/internal/app/system/auth"
	"github.com/dalemusser/onepager/internal/app/system/htmlsanitize"
	"github.com/dalemusser/onepager/internal/app/system/session"
	"github.com/dalemusser/onepager/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	maxNameLen  = 120
	maxPhoneLen = 40
)

// updateRequest fields are optional; absent fields are left unchanged.
type updateRequest struct {
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
	Phone     *string `json:"phone"`
}

// HandleUpdate handles PATCH /api/profile. Only the profile scope of the
// caller's cached session is invalidated; the workspace selection stays.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	uid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		uierrors.Unauthorized(w)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}

	upd, msg := validate(req)
	if msg != "" {
		uierrors.BadRequest(w, msg)
		return
	}
	if upd.FullName == nil && upd.AvatarURL == nil && upd.Phone == nil {
		uierrors.BadRequest(w, "nothing to update")
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	if err := h.Profiles.Update(ctx, uid, upd); err != nil {
		if errors.Is(err, profilestore.ErrNotFound) {
			uierrors.NotFound(w, "profile not found")
			return
		}
		h.ErrLog.LogServerError(w, r, "profile update failed", err)
		return
	}

	h.Sessions.Invalidate(u.ID, session.ScopeProfile)
	h.Audit.ProfileUpdated(r, uid, upd.Fields())
	h.Log.Debug("profile updated", zap.String("user_id", u.ID))
	w.WriteHeader(http.StatusNoContent)
}

// validate cleans req into a store update. A non-empty message means the
// request is rejected.
func validate(req updateRequest) (profilestore.Update, string) {
	var upd profilestore.Update

	if req.FullName != nil {
		name := htmlsanitize.PlainText(*req.FullName)
		if name == "" {
			return upd, "full_name cannot be empty"
		}
		if utf8.RuneCountInString(name) > maxNameLen {
			return upd, "full_name is too long"
		}
		upd.FullName = &name
	}

	if req.AvatarURL != nil {
		avatar := strings.TrimSpace(*req.AvatarURL)
		if avatar != "" {
			parsed, err := url.Parse(avatar)
			if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
				return upd, "avatar_url must be an https URL"
			}
		}
		upd.AvatarURL = &avatar
	}

	if req.Phone != nil {
		phone := htmlsanitize.PlainText(*req.Phone)
		if len(phone) > maxPhoneLen {
			return upd, "phone is too long"
		}
		upd.Phone = &phone
	}

	return upd, ""
}
