package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/blockkit/blockkit-api/internal/catalog"
	"github.com/blockkit/blockkit-api/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRepo = catalog.Repo{Owner: "blockkit", Name: "pro-blocks"}

// fakeGitHub stands in for the GitHub REST API and records what was called.
type fakeGitHub struct {
	inviteStatus int
	userStatus   int

	inviteCalls    int
	userCalls      int
	lastInvitePath string
	lastAuth       string
	lastPermission string
}

func (f *fakeGitHub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && strings.Contains(r.URL.Path, "/collaborators/"):
			f.inviteCalls++
			f.lastInvitePath = r.URL.Path
			f.lastAuth = r.Header.Get("Authorization")

			var payload map[string]string
			json.NewDecoder(r.Body).Decode(&payload)
			f.lastPermission = payload["permission"]

			w.WriteHeader(f.inviteStatus)
			if f.inviteStatus >= 400 {
				w.Write([]byte(`{"message":"Not Found"}`))
			}

		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/users/"):
			f.userCalls++
			w.WriteHeader(f.userStatus)

		default:
			w.WriteHeader(http.StatusTeapot)
		}
	})
}

func newTestClient(t *testing.T, fake *fakeGitHub, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return NewClient(config.GitHubConfig{Token: token, APIBaseURL: srv.URL}, zerolog.Nop())
}

func TestInviteCollaboratorInvited(t *testing.T) {
	fake := &fakeGitHub{inviteStatus: http.StatusCreated}
	client := newTestClient(t, fake, "tok")

	outcome, err := client.InviteCollaborator(context.Background(), testRepo, "@Octo-Cat")
	require.NoError(t, err)

	assert.Equal(t, OutcomeInvited, outcome.Kind)
	assert.Equal(t, "Octo-Cat", outcome.Handle)
	assert.Contains(t, outcome.Message, "Octo-Cat@users.noreply.github.com")

	assert.Equal(t, 1, fake.inviteCalls)
	assert.Equal(t, 0, fake.userCalls)
	assert.Equal(t, "/repos/blockkit/pro-blocks/collaborators/Octo-Cat", fake.lastInvitePath)
	assert.Equal(t, "Bearer tok", fake.lastAuth)
	assert.Equal(t, "pull", fake.lastPermission)
}

func TestInviteCollaboratorAlreadyCollaborator(t *testing.T) {
	fake := &fakeGitHub{inviteStatus: http.StatusNoContent}
	client := newTestClient(t, fake, "tok")

	outcome, err := client.InviteCollaborator(context.Background(), testRepo, "octocat")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAlreadyCollaborator, outcome.Kind)
	assert.Equal(t, "https://github.com/blockkit/pro-blocks", outcome.RepoURL)
	assert.Contains(t, outcome.Message, "blockkit/pro-blocks")
}

func TestInviteCollaboratorPending(t *testing.T) {
	fake := &fakeGitHub{inviteStatus: http.StatusUnprocessableEntity}
	client := newTestClient(t, fake, "tok")

	outcome, err := client.InviteCollaborator(context.Background(), testRepo, "octocat")
	require.NoError(t, err)

	assert.Equal(t, OutcomePending, outcome.Kind)
	assert.Equal(t, 0, fake.userCalls)
}

func TestInviteCollaboratorHandleNotFound(t *testing.T) {
	fake := &fakeGitHub{inviteStatus: http.StatusNotFound, userStatus: http.StatusNotFound}
	client := newTestClient(t, fake, "tok")

	_, err := client.InviteCollaborator(context.Background(), testRepo, "ghost-user")
	require.Error(t, err)

	var notFound *HandleNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost-user", notFound.Handle)
	assert.Contains(t, err.Error(), "ghost-user")

	assert.Equal(t, 1, fake.inviteCalls)
	assert.Equal(t, 1, fake.userCalls)
}

func TestInviteCollaboratorRepoSideNotFound(t *testing.T) {
	// 404 on the invite but the user exists: the repository side is broken.
	// The caller gets an opaque failure with no repository detail in it.
	fake := &fakeGitHub{inviteStatus: http.StatusNotFound, userStatus: http.StatusOK}
	client := newTestClient(t, fake, "tok")

	_, err := client.InviteCollaborator(context.Background(), testRepo, "octocat")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	var notFound *HandleNotFoundError
	assert.False(t, strings.Contains(err.Error(), "pro-blocks"))
	assert.NotErrorAs(t, err, &notFound)

	assert.Equal(t, 1, fake.inviteCalls)
	assert.Equal(t, 1, fake.userCalls)
}

func TestInviteCollaboratorLookupFailure(t *testing.T) {
	// 404 on the invite and the disambiguating user lookup errors out. The
	// handle may well exist, so this is never blamed on the user.
	fake := &fakeGitHub{inviteStatus: http.StatusNotFound, userStatus: http.StatusInternalServerError}
	client := newTestClient(t, fake, "tok")

	_, err := client.InviteCollaborator(context.Background(), testRepo, "octocat")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	var notFound *HandleNotFoundError
	assert.NotErrorAs(t, err, &notFound)

	assert.Equal(t, 1, fake.inviteCalls)
	assert.Equal(t, 1, fake.userCalls)
}

func TestInviteCollaboratorUnexpectedStatus(t *testing.T) {
	fake := &fakeGitHub{inviteStatus: http.StatusInternalServerError}
	client := newTestClient(t, fake, "tok")

	_, err := client.InviteCollaborator(context.Background(), testRepo, "octocat")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 0, fake.userCalls)
}

func TestInviteCollaboratorTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	client := NewClient(config.GitHubConfig{Token: "tok", APIBaseURL: srv.URL}, zerolog.Nop())

	_, err := client.InviteCollaborator(context.Background(), testRepo, "octocat")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestInviteCollaboratorNotConfigured(t *testing.T) {
	fake := &fakeGitHub{inviteStatus: http.StatusCreated}
	client := newTestClient(t, fake, "")

	_, err := client.InviteCollaborator(context.Background(), testRepo, "octocat")
	assert.ErrorIs(t, err, ErrNotConfigured)

	assert.Equal(t, 0, fake.inviteCalls)
	assert.Equal(t, 0, fake.userCalls)
}

func TestInviteCollaboratorInvalidHandleSkipsNetwork(t *testing.T) {
	fake := &fakeGitHub{inviteStatus: http.StatusCreated}
	client := newTestClient(t, fake, "tok")

	_, err := client.InviteCollaborator(context.Background(), testRepo, "not valid!")
	require.Error(t, err)

	var invalid *InvalidHandleError
	assert.ErrorAs(t, err, &invalid)
	assert.Equal(t, 0, fake.inviteCalls)
}

// Re-invoking after any success keeps reporting a success variant: a fresh
// invite is followed by "already pending", then by "already a member" once
// accepted. No sequence of platform answers regresses to an error.
func TestInviteCollaboratorConvergence(t *testing.T) {
	fake := &fakeGitHub{inviteStatus: http.StatusCreated}
	client := newTestClient(t, fake, "tok")

	first, err := client.InviteCollaborator(context.Background(), testRepo, "octocat")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvited, first.Kind)

	fake.inviteStatus = http.StatusUnprocessableEntity
	second, err := client.InviteCollaborator(context.Background(), testRepo, "octocat")
	require.NoError(t, err)
	assert.Equal(t, OutcomePending, second.Kind)

	fake.inviteStatus = http.StatusNoContent
	third, err := client.InviteCollaborator(context.Background(), testRepo, "octocat")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyCollaborator, third.Kind)
}
