package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/blockkit/blockkit-api/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	CreateUser(email, password string, tier models.LicenseTier, activeLicense bool) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
	GetUserByEmail(email string) (models.User, error)
	GetUserByID(userID string) (models.User, error)
	SetLicense(userID string, tier models.LicenseTier, active bool) (models.User, error)
	DeactivateUser(userID string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (u *userRepository) CreateUser(email, password string, tier models.LicenseTier, activeLicense bool) (models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return models.User{}, errors.New("email is required")
	}
	tier = models.NormalizeTier(tier)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Email:            email,
		PasswordHash:     string(hash),
		IsActive:         true,
		HasActiveLicense: activeLicense,
		LicenseTier:      tier,
	}

	const query = `
		INSERT INTO store.users (email, password_hash, is_active, has_active_license, license_tier)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err = u.db.QueryRow(query, user.Email, user.PasswordHash, user.IsActive, user.HasActiveLicense, string(user.LicenseTier)).Scan(&user.ID)
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (u *userRepository) AuthenticateUser(email, password string) (models.User, error) {
	user, err := u.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, errors.New("invalid credentials")
		}
		return models.User{}, err
	}

	if !user.IsActive {
		return models.User{}, errors.New("user is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, errors.New("invalid credentials")
	}

	return user, nil
}

func (u *userRepository) GetUserByEmail(email string) (models.User, error) {
	const query = `
		SELECT id, email, password_hash, is_active, has_active_license, license_tier
		FROM store.users
		WHERE email = $1 AND deleted_at IS NULL`

	return u.scanUser(u.db.QueryRow(query, strings.TrimSpace(strings.ToLower(email))))
}

func (u *userRepository) GetUserByID(userID string) (models.User, error) {
	const query = `
		SELECT id, email, password_hash, is_active, has_active_license, license_tier
		FROM store.users
		WHERE id = $1 AND deleted_at IS NULL`

	return u.scanUser(u.db.QueryRow(query, userID))
}

func (u *userRepository) SetLicense(userID string, tier models.LicenseTier, active bool) (models.User, error) {
	if !models.IsValidTier(tier) {
		return models.User{}, errors.New("invalid license tier")
	}

	const query = `
		UPDATE store.users
		SET license_tier = $2, has_active_license = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING id, email, password_hash, is_active, has_active_license, license_tier`

	return u.scanUser(u.db.QueryRow(query, userID, string(tier), active))
}

func (u *userRepository) DeactivateUser(userID string) error {
	const query = `
		UPDATE store.users
		SET is_active = FALSE, deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := u.db.Exec(query, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (u *userRepository) scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	var tier string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.HasActiveLicense,
		&tier,
	)
	if err != nil {
		return models.User{}, err
	}

	user.LicenseTier = models.NormalizeTier(models.LicenseTier(tier))
	return user, nil
}
