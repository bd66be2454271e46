package product

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const productColumns = `product_id, product_name, product_name_en, category,
	product_desc, product_desc_en, product_pic,
	price_cents, original_price_cents, discount_type, discount_value,
	promo_start_at, promo_end_at, stock, created_at, updated_at`

func (r *PostgresRepository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM product ORDER BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM product WHERE product_id = $1`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *PostgresRepository) ListByIDs(ctx context.Context, ids []int) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+`
		FROM product
		WHERE product_id = ANY($1::int[])
		ORDER BY array_position($1::int[], product_id)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.NameEn, &p.Category,
		&p.Description, &p.DescriptionEn, &p.Pic,
		&p.PriceCents, &p.OriginalPriceCents, &p.DiscountType, &p.DiscountValue,
		&p.PromoStartAt, &p.PromoEndAt, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanProducts(rows *sql.Rows) ([]Product, error) {
	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
