package github

import (
	"errors"
	"fmt"
)

// OutcomeKind enumerates the success variants of a collaborator invite.
// Failure variants are errors, so callers that receive an Outcome only ever
// see a state in which the invitee has, or is about to have, access.
type OutcomeKind string

const (
	// OutcomeInvited means a fresh invitation was created.
	OutcomeInvited OutcomeKind = "invited"
	// OutcomeAlreadyCollaborator means the handle already has access.
	OutcomeAlreadyCollaborator OutcomeKind = "already_collaborator"
	// OutcomePending means an earlier invitation is still awaiting acceptance.
	OutcomePending OutcomeKind = "pending"
)

// Outcome is the classified result of a successful invite call.
type Outcome struct {
	Kind    OutcomeKind
	Handle  string
	Message string
	RepoURL string
}

// ErrNotConfigured is returned when no API token was provided. This is an
// operator misconfiguration, not a user or transient error.
var ErrNotConfigured = errors.New("github: access token not configured")

// ErrUnavailable covers every unclassified platform response and transport
// failure. The underlying detail is logged, never shown to end users.
var ErrUnavailable = errors.New("github: service unavailable")

// HandleNotFoundError reports that the submitted handle does not exist on
// GitHub, confirmed by a direct user lookup.
type HandleNotFoundError struct {
	Handle string
}

func (e *HandleNotFoundError) Error() string {
	return fmt.Sprintf("github: no user named %q", e.Handle)
}
