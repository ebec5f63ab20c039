package repository

import (
	"database/sql"

	"github.com/blockkit/blockkit-api/internal/models"
)

type PurchaseRepository interface {
	HasPurchase(userID, itemID string) (bool, error)
	RecordPurchase(userID, itemID string) error
	ListPurchasesByUser(userID string) ([]models.Purchase, error)
}

type purchaseRepository struct {
	db *sql.DB
}

func NewPurchaseRepository(db *sql.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) HasPurchase(userID, itemID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM store.purchases
			WHERE user_id = $1 AND item_id = $2
		);
	`

	var exists bool
	if err := r.db.QueryRow(query, userID, itemID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// RecordPurchase inserts a purchase fact. Replays of the same checkout event
// are absorbed by the (user_id, item_id) unique constraint.
func (r *purchaseRepository) RecordPurchase(userID, itemID string) error {
	const query = `
		INSERT INTO store.purchases (user_id, item_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, item_id) DO NOTHING;
	`

	_, err := r.db.Exec(query, userID, itemID)
	return err
}

func (r *purchaseRepository) ListPurchasesByUser(userID string) ([]models.Purchase, error) {
	const query = `
		SELECT id, user_id, item_id, created_at
		FROM store.purchases
		WHERE user_id = $1
		ORDER BY created_at DESC;
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []models.Purchase
	for rows.Next() {
		var p models.Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.ItemID, &p.CreatedAt); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return purchases, nil
}
