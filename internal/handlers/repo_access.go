package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/blockkit/blockkit-api/internal/authz"
	"github.com/blockkit/blockkit-api/internal/catalog"
	"github.com/blockkit/blockkit-api/internal/entitlement"
	"github.com/blockkit/blockkit-api/internal/github"
	"github.com/blockkit/blockkit-api/internal/repository"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// CollaboratorGateway is the slice of the GitHub client the handler needs.
type CollaboratorGateway interface {
	InviteCollaborator(ctx context.Context, repo catalog.Repo, handle string) (github.Outcome, error)
}

// RepoAccessHandler grants entitled customers access to the private GitHub
// repository behind a purchased block.
type RepoAccessHandler struct {
	catalog      *catalog.Catalog
	userRepo     repository.UserRepository
	entitlements *entitlement.Resolver
	gateway      CollaboratorGateway
	logger       zerolog.Logger
}

func NewRepoAccessHandler(
	cat *catalog.Catalog,
	userRepo repository.UserRepository,
	entitlements *entitlement.Resolver,
	gateway CollaboratorGateway,
	logger zerolog.Logger,
) *RepoAccessHandler {
	return &RepoAccessHandler{
		catalog:      cat,
		userRepo:     userRepo,
		entitlements: entitlements,
		gateway:      gateway,
		logger:       logger.With().Str("component", "repo_access").Logger(),
	}
}

type repoAccessRequest struct {
	GitHubHandle string `json:"github_handle"`
}

type repoAccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	RepoURL string `json:"repo_url,omitempty"`
}

// RequestInvite handles POST /api/blocks/{itemID}/repo-access. The steps run
// strictly in order: identity, item validation, handle validation,
// entitlement, then the external invite. No GitHub call is made unless
// everything local has passed.
func (h *RepoAccessHandler) RequestInvite(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	itemID := mux.Vars(r)["itemID"]
	item, ok := h.catalog.Lookup(itemID)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_item", "Unknown block id")
		return
	}

	var req repoAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_handle", "Request body must include github_handle")
		return
	}

	handle, err := github.NormalizeHandle(req.GitHubHandle)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_handle",
			"That doesn't look like a valid GitHub username. Usernames contain only letters, digits, and hyphens.")
		return
	}

	user, err := h.userRepo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "unknown_identity", "Account not found")
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("user lookup failed")
		writeError(w, http.StatusInternalServerError, "generic_failure", "Something went wrong. Try again or contact support.")
		return
	}

	granted, err := h.entitlements.Resolve(user, item.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID).Str("item_id", item.ID).Msg("entitlement resolution failed")
		writeError(w, http.StatusInternalServerError, "generic_failure", "Something went wrong. Try again or contact support.")
		return
	}
	if !granted {
		writeError(w, http.StatusForbidden, "not_entitled",
			"You need an active license or a purchase of this block to request repository access.")
		return
	}

	outcome, err := h.gateway.InviteCollaborator(r.Context(), item.Repo, handle)
	if err != nil {
		h.respondInviteError(w, err, handle)
		return
	}

	writeJSON(w, http.StatusOK, repoAccessResponse{
		Status:  string(outcome.Kind),
		Message: outcome.Message,
		RepoURL: outcome.RepoURL,
	})
}

func (h *RepoAccessHandler) respondInviteError(w http.ResponseWriter, err error, handle string) {
	var notFound *github.HandleNotFoundError
	var invalid *github.InvalidHandleError

	switch {
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, "invalid_handle",
			"That doesn't look like a valid GitHub username. Usernames contain only letters, digits, and hyphens.")

	case errors.As(err, &notFound):
		writeError(w, http.StatusBadRequest, "handle_not_found",
			"No GitHub user named \""+notFound.Handle+"\" exists. Double-check the username and try again.")

	case errors.Is(err, github.ErrNotConfigured):
		h.logger.Error().Str("handle", handle).Msg("github token missing; cannot send invites")
		writeError(w, http.StatusInternalServerError, "not_configured",
			"The GitHub integration is currently unavailable. Please contact support.")

	default:
		h.logger.Error().Err(err).Str("handle", handle).Msg("invite failed")
		writeError(w, http.StatusInternalServerError, "generic_failure",
			"Something went wrong while sending the invite. Try again or contact support.")
	}
}
