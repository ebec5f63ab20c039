package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/blockkit/blockkit-api/internal/catalog"
	"github.com/blockkit/blockkit-api/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	defaultAPIBaseURL = "https://api.github.com"
	defaultTimeout    = 30 * time.Second

	acceptHeader     = "application/vnd.github+json"
	apiVersionHeader = "2022-11-28"

	// Invitees are always granted read-only access. Fixed policy.
	invitePermission = "pull"

	noreplyDomain = "users.noreply.github.com"
)

// Client talks to the GitHub REST API on behalf of the marketplace to grant
// repository access to entitled customers.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient constructs a gateway client. The token may be empty; in that
// case every invite attempt fails with ErrNotConfigured without touching
// the network.
func NewClient(cfg config.GitHubConfig, logger zerolog.Logger) *Client {
	baseURL := strings.TrimRight(cfg.APIBaseURL, "/")
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.With().Str("component", "github_gateway").Logger(),
	}
}

// Configured reports whether an API token was provided. Checked once at
// startup so a missing token is surfaced immediately rather than on the
// first customer request.
func (c *Client) Configured() bool {
	return c.token != ""
}

// InviteCollaborator adds handle as a read-only collaborator on repo and
// classifies GitHub's answer. It is safe to call repeatedly with the same
// inputs: every "already in the desired state" response maps to a success
// variant. No retries are performed here; resubmission is the caller's call.
func (c *Client) InviteCollaborator(ctx context.Context, repo catalog.Repo, handle string) (Outcome, error) {
	if !c.Configured() {
		return Outcome{}, ErrNotConfigured
	}

	normalized, err := NormalizeHandle(handle)
	if err != nil {
		return Outcome{}, err
	}

	status, body, err := c.addCollaborator(ctx, repo, normalized)
	if err != nil {
		c.logger.Error().Err(err).Str("repo", repo.String()).Str("handle", normalized).
			Msg("add collaborator request failed")
		return Outcome{}, errors.Wrap(ErrUnavailable, err.Error())
	}

	return c.classify(ctx, repo, normalized, status, body)
}

// classify maps the add-collaborator status code to a closed set of
// outcomes. A 404 is ambiguous (unknown handle vs. unreachable repository)
// and triggers a secondary user lookup to disambiguate.
func (c *Client) classify(ctx context.Context, repo catalog.Repo, handle string, status int, body []byte) (Outcome, error) {
	switch status {
	case http.StatusCreated:
		return Outcome{
			Kind:   OutcomeInvited,
			Handle: handle,
			Message: fmt.Sprintf(
				"Invitation sent. Check your GitHub notifications or the inbox for %s@%s.",
				handle, noreplyDomain),
		}, nil

	case http.StatusNoContent:
		return Outcome{
			Kind:    OutcomeAlreadyCollaborator,
			Handle:  handle,
			Message: fmt.Sprintf("You already have access to this repository: %s", repo.HTMLURL()),
			RepoURL: repo.HTMLURL(),
		}, nil

	case http.StatusUnprocessableEntity:
		// GitHub reports a duplicate invite attempt as 422. The desired end
		// state (an outstanding invitation) already holds.
		return Outcome{
			Kind:    OutcomePending,
			Handle:  handle,
			Message: "An invitation is already pending. Accept it from your GitHub notifications.",
		}, nil

	case http.StatusNotFound:
		exists, err := c.handleExists(ctx, handle)
		if err != nil {
			c.logger.Error().Err(err).Str("handle", handle).Msg("user lookup failed")
			return Outcome{}, errors.Wrap(ErrUnavailable, err.Error())
		}
		if !exists {
			return Outcome{}, &HandleNotFoundError{Handle: handle}
		}
		// The handle exists, so the 404 points at the repository side.
		// Operators get the platform body; the user gets nothing internal.
		c.logger.Error().Int("status", status).Str("repo", repo.String()).
			Str("handle", handle).Bytes("body", body).
			Msg("collaborator invite returned 404 for an existing user")
		return Outcome{}, errors.Wrap(ErrUnavailable, "repository not reachable for invite")

	default:
		c.logger.Error().Int("status", status).Str("repo", repo.String()).
			Str("handle", handle).Bytes("body", body).
			Msg("unexpected response from collaborator invite")
		return Outcome{}, errors.Wrapf(ErrUnavailable, "unexpected status %d", status)
	}
}

// addCollaborator issues PUT /repos/{owner}/{repo}/collaborators/{handle}.
func (c *Client) addCollaborator(ctx context.Context, repo catalog.Repo, handle string) (int, []byte, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/collaborators/%s", c.baseURL, repo.Owner, repo.Name, handle)

	payload, err := json.Marshal(map[string]string{"permission": invitePermission})
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, body, nil
}

// handleExists issues GET /users/{handle} and reports whether the user
// exists. Kept separate from the invite call so the disambiguation step can
// be exercised in isolation.
func (c *Client) handleExists(ctx context.Context, handle string) (bool, error) {
	url := fmt.Sprintf("%s/users/%s", c.baseURL, handle)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("user lookup returned status %d", resp.StatusCode)
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersionHeader)
}
