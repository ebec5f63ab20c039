package handlers

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/blockkit/blockkit-api/internal/authz"
	"github.com/blockkit/blockkit-api/internal/models"
	"github.com/blockkit/blockkit-api/internal/notification"
	"github.com/blockkit/blockkit-api/internal/repository"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const defaultInviteTTL = 7 * 24 * time.Hour

// TeamInviteHandler lets team-tier licensees share their license by email.
type TeamInviteHandler struct {
	inviteRepo repository.TeamInviteRepository
	userRepo   repository.UserRepository
	mailer     notification.InviteMailer
	urlTpl     string
	tokenTTL   time.Duration
	logger     zerolog.Logger
}

func NewTeamInviteHandler(
	inviteRepo repository.TeamInviteRepository,
	userRepo repository.UserRepository,
	mailer notification.InviteMailer,
	inviteURLTemplate string,
	logger zerolog.Logger,
) *TeamInviteHandler {
	if inviteURLTemplate == "" {
		inviteURLTemplate = "https://blockkit.dev/team/accept?token=%s"
	}
	return &TeamInviteHandler{
		inviteRepo: inviteRepo,
		userRepo:   userRepo,
		mailer:     mailer,
		urlTpl:     inviteURLTemplate,
		tokenTTL:   defaultInviteTTL,
		logger:     logger.With().Str("component", "team_invite").Logger(),
	}
}

type createInviteRequest struct {
	Email string `json:"email"`
}

// CreateInvite handles POST /api/team/invites. Only active team-tier
// licensees may invite.
func (h *TeamInviteHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	inviter, err := h.userRepo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "unknown_identity", "Account not found")
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("inviter lookup failed")
		writeError(w, http.StatusInternalServerError, "generic_failure", "Failed to load account")
		return
	}

	if !inviter.HasActiveLicense || inviter.LicenseTier != models.TierTeam {
		writeError(w, http.StatusForbidden, "not_entitled", "An active team license is required to invite members")
		return
	}

	var payload createInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request payload")
		return
	}

	email := strings.TrimSpace(strings.ToLower(payload.Email))
	if email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Email is required")
		return
	}

	// Refuse before persisting anything: an invite row with no email behind
	// it would never reach the invitee.
	if h.mailer == nil {
		writeError(w, http.StatusInternalServerError, "not_configured", "Email sender not configured")
		return
	}

	token, err := generateInviteToken()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate invite token")
		writeError(w, http.StatusInternalServerError, "generic_failure", "Failed to generate invite token")
		return
	}

	invite, err := h.inviteRepo.CreateInvite(models.TeamInvite{
		InviterID: inviter.ID,
		Email:     email,
		TokenHash: hashInviteToken(token),
		ExpiresAt: time.Now().Add(h.tokenTTL),
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create invite")
		writeError(w, http.StatusInternalServerError, "generic_failure", "Failed to create invite")
		return
	}

	inviteURL := fmt.Sprintf(h.urlTpl, token)
	if err := h.mailer.SendInvite(invite.Email, inviter.Email, inviteURL); err != nil {
		h.logger.Error().Err(err).Str("email", invite.Email).Msg("failed to send invite email")
		writeError(w, http.StatusInternalServerError, "generic_failure", "Failed to send invite email")
		return
	}

	response := struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}{
		ID:        invite.ID,
		Email:     invite.Email,
		Token:     token,
		ExpiresAt: invite.ExpiresAt,
	}

	writeJSON(w, http.StatusCreated, response)
}

// ListInvites handles GET /api/team/invites, returning every invite the
// caller has issued.
func (h *TeamInviteHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	invites, err := h.inviteRepo.ListInvitesByInviter(userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list invites")
		writeError(w, http.StatusInternalServerError, "generic_failure", "Failed to load invites")
		return
	}
	if invites == nil {
		invites = []models.TeamInvite{}
	}

	writeJSON(w, http.StatusOK, invites)
}

// PreviewInvite handles GET /api/team/invites/{token}.
func (h *TeamInviteHandler) PreviewInvite(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(mux.Vars(r)["token"])
	if token == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Token is required")
		return
	}

	invite, err := h.inviteRepo.GetInviteByTokenHash(hashInviteToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "invite_not_found", "Invite not found")
			return
		}
		h.logger.Error().Err(err).Msg("failed to load invite")
		writeError(w, http.StatusInternalServerError, "generic_failure", "Failed to load invite")
		return
	}

	if invite.IsUsed() {
		writeError(w, http.StatusConflict, "invite_used", "Invite already accepted")
		return
	}
	if invite.IsExpired(time.Now()) {
		writeError(w, http.StatusGone, "invite_expired", "Invite expired")
		return
	}

	inviter, err := h.userRepo.GetUserByID(invite.InviterID)
	if err != nil {
		h.logger.Error().Err(err).Str("inviter_id", invite.InviterID).Msg("failed to load inviter")
		writeError(w, http.StatusInternalServerError, "generic_failure", "Failed to load invite")
		return
	}

	response := struct {
		Email        string    `json:"email"`
		InviterEmail string    `json:"inviter_email"`
		ExpiresAt    time.Time `json:"expires_at"`
	}{
		Email:        invite.Email,
		InviterEmail: inviter.Email,
		ExpiresAt:    invite.ExpiresAt,
	}

	writeJSON(w, http.StatusOK, response)
}

// AcceptInvite handles POST /api/team/invites/{token}/accept. Accepting
// creates (or upgrades) the invitee with an active team license; each invite
// is usable exactly once.
func (h *TeamInviteHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(mux.Vars(r)["token"])
	if token == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Token is required")
		return
	}

	var payload struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request payload")
		return
	}

	invite, err := h.inviteRepo.GetInviteByTokenHash(hashInviteToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "invite_not_found", "Invite not found")
			return
		}
		h.logger.Error().Err(err).Msg("failed to load invite")
		writeError(w, http.StatusInternalServerError, "generic_failure", "Failed to load invite")
		return
	}

	if invite.IsUsed() {
		writeError(w, http.StatusConflict, "invite_used", "Invite already accepted")
		return
	}
	if invite.IsExpired(time.Now()) {
		writeError(w, http.StatusGone, "invite_expired", "Invite expired")
		return
	}

	existing, err := h.userRepo.GetUserByEmail(invite.Email)
	switch {
	case err == nil:
		if !existing.IsActive {
			writeError(w, http.StatusConflict, "user_inactive", "User is inactive")
			return
		}
		if _, err := h.userRepo.SetLicense(existing.ID, models.TierTeam, true); err != nil {
			h.logger.Error().Err(err).Str("user_id", existing.ID).Msg("failed to upgrade license")
			writeError(w, http.StatusInternalServerError, "generic_failure", "Failed to activate license")
			return
		}
	case errors.Is(err, sql.ErrNoRows):
		password := strings.TrimSpace(payload.Password)
		if password == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "Password is required")
			return
		}
		if _, err := h.userRepo.CreateUser(invite.Email, password, models.TierTeam, true); err != nil {
			h.logger.Error().Err(err).Str("email", invite.Email).Msg("failed to create user")
			writeError(w, http.StatusInternalServerError, "generic_failure", "Failed to create account")
			return
		}
	default:
		h.logger.Error().Err(err).Msg("failed to load user")
		writeError(w, http.StatusInternalServerError, "generic_failure", "Failed to load account")
		return
	}

	if _, err := h.inviteRepo.MarkInviteAccepted(invite.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusGone, "invite_expired", "Invite no longer valid")
			return
		}
		h.logger.Error().Err(err).Msg("failed to finalize invite")
		writeError(w, http.StatusInternalServerError, "generic_failure", "Failed to finalize invite")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func generateInviteToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashInviteToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
