package repository

import (
	"database/sql"

	"github.com/blockkit/blockkit-api/internal/models"
)

type TeamInviteRepository interface {
	CreateInvite(invite models.TeamInvite) (models.TeamInvite, error)
	GetInviteByTokenHash(tokenHash string) (models.TeamInvite, error)
	MarkInviteAccepted(inviteID string) (models.TeamInvite, error)
	ListInvitesByInviter(inviterID string) ([]models.TeamInvite, error)
}

type teamInviteRepository struct {
	db *sql.DB
}

func NewTeamInviteRepository(db *sql.DB) TeamInviteRepository {
	return &teamInviteRepository{db: db}
}

const teamInviteColumns = `id, inviter_id, email, token_hash, expires_at, accepted_at, created_at, updated_at`

func (r *teamInviteRepository) CreateInvite(invite models.TeamInvite) (models.TeamInvite, error) {
	const query = `
		INSERT INTO store.team_invites (inviter_id, email, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + teamInviteColumns + `;`

	row := r.db.QueryRow(query, invite.InviterID, invite.Email, invite.TokenHash, invite.ExpiresAt)
	return scanTeamInvite(row)
}

func (r *teamInviteRepository) GetInviteByTokenHash(tokenHash string) (models.TeamInvite, error) {
	const query = `
		SELECT ` + teamInviteColumns + `
		FROM store.team_invites
		WHERE token_hash = $1;`

	return scanTeamInvite(r.db.QueryRow(query, tokenHash))
}

// MarkInviteAccepted stamps accepted_at exactly once; a second call finds no
// matching row and reports sql.ErrNoRows.
func (r *teamInviteRepository) MarkInviteAccepted(inviteID string) (models.TeamInvite, error) {
	const query = `
		UPDATE store.team_invites
		SET accepted_at = now(), updated_at = now()
		WHERE id = $1 AND accepted_at IS NULL
		RETURNING ` + teamInviteColumns + `;`

	return scanTeamInvite(r.db.QueryRow(query, inviteID))
}

func (r *teamInviteRepository) ListInvitesByInviter(inviterID string) ([]models.TeamInvite, error) {
	const query = `
		SELECT ` + teamInviteColumns + `
		FROM store.team_invites
		WHERE inviter_id = $1
		ORDER BY created_at DESC;`

	rows, err := r.db.Query(query, inviterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []models.TeamInvite
	for rows.Next() {
		var invite models.TeamInvite
		if err := rows.Scan(
			&invite.ID,
			&invite.InviterID,
			&invite.Email,
			&invite.TokenHash,
			&invite.ExpiresAt,
			&invite.AcceptedAt,
			&invite.CreatedAt,
			&invite.UpdatedAt,
		); err != nil {
			return nil, err
		}
		invites = append(invites, invite)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return invites, nil
}

func scanTeamInvite(row *sql.Row) (models.TeamInvite, error) {
	var invite models.TeamInvite
	err := row.Scan(
		&invite.ID,
		&invite.InviterID,
		&invite.Email,
		&invite.TokenHash,
		&invite.ExpiresAt,
		&invite.AcceptedAt,
		&invite.CreatedAt,
		&invite.UpdatedAt,
	)
	if err != nil {
		return models.TeamInvite{}, err
	}
	return invite, nil
}
