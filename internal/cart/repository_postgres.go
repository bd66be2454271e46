package cart

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
)

// PostgresRepository stores the cart as a jsonb product->quantity map on the
// users row, so an account has exactly one cart.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID int) (Items, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT cart FROM users WHERE user_id = $1`, userID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeItems(raw)
}

func (r *PostgresRepository) Add(ctx context.Context, userID, productID, qty int) (Items, error) {
	items, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	items[productID] += qty
	if items[productID] <= 0 {
		delete(items, productID)
	}

	raw, err := encodeItems(items)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET cart = $1 WHERE user_id = $2`, raw, userID); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *PostgresRepository) Clear(ctx context.Context, userID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET cart = '{}' WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// jsonb object keys are strings, so the product ids round-trip through
// strconv.
func decodeItems(raw []byte) (Items, error) {
	byKey := map[string]int{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &byKey); err != nil {
			return nil, err
		}
	}
	items := make(Items, len(byKey))
	for k, qty := range byKey {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		items[id] = qty
	}
	return items, nil
}

func encodeItems(items Items) ([]byte, error) {
	byKey := make(map[string]int, len(items))
	for id, qty := range items {
		byKey[strconv.Itoa(id)] = qty
	}
	return json.Marshal(byKey)
}
