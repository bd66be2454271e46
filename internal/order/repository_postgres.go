package order

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, ord Order) (Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Order{}, err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `INSERT INTO orders (user_id, status, total_cents, currency, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING order_id`,
		ord.UserID, ord.Status, ord.TotalCents, ord.Currency, ord.CreatedAt, ord.UpdatedAt).Scan(&ord.ID)
	if err != nil {
		return Order{}, err
	}

	for i, line := range ord.Lines {
		if _, err := tx.ExecContext(ctx, `INSERT INTO order_line (order_id, line_no, product_id, title_snapshot, unit_price_cents, quantity)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			ord.ID, i+1, line.ProductID, line.TitleSnapshot, line.UnitPriceCents, line.Quantity); err != nil {
			return Order{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Order{}, err
	}
	return ord, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Order, error) {
	var ord Order
	err := r.db.QueryRowContext(ctx, `SELECT order_id, user_id, status, total_cents, currency, created_at, updated_at
		FROM orders WHERE order_id = $1`, id).Scan(
		&ord.ID, &ord.UserID, &ord.Status, &ord.TotalCents, &ord.Currency, &ord.CreatedAt, &ord.UpdatedAt)
	if err == sql.ErrNoRows {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}

	lines, err := r.loadLines(ctx, []int{ord.ID})
	if err != nil {
		return Order{}, err
	}
	ord.Lines = lines[ord.ID]
	return ord, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT order_id, user_id, status, total_cents, currency, created_at, updated_at
		FROM orders WHERE user_id = $1 ORDER BY order_id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]Order, 0)
	ids := make([]int, 0)
	for rows.Next() {
		var ord Order
		if err := rows.Scan(&ord.ID, &ord.UserID, &ord.Status, &ord.TotalCents, &ord.Currency, &ord.CreatedAt, &ord.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, ord)
		ids = append(ids, ord.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, nil
}

func (r *PostgresRepository) CompareAndSwapStatus(ctx context.Context, orderID int, from, to Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = $1, updated_at = $2
		WHERE order_id = $3 AND status = $4`,
		to, time.Now().UTC(), orderID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	// lost the swap or unknown order; distinguish for the caller
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE order_id = $1)`, orderID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (r *PostgresRepository) loadLines(ctx context.Context, orderIDs []int) (map[int][]Line, error) {
	out := make(map[int][]Line, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT order_id, product_id, title_snapshot, unit_price_cents, quantity
		FROM order_line
		WHERE order_id = ANY($1::int[])
		ORDER BY order_id, line_no`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID int
		var line Line
		if err := rows.Scan(&orderID, &line.ProductID, &line.TitleSnapshot, &line.UnitPriceCents, &line.Quantity); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], line)
	}
	return out, rows.Err()
}
