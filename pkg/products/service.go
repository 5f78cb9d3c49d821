package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/storage/postgres"
)

const productColumns = `id, name, user_id, organization_id, created_at, updated_at`

// PostgresService stores products in PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row scanner) (*Product, error) {
	p := &Product{}
	err := row.Scan(&p.ID, &p.Name, &p.UserID, &p.OrganizationID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreateProduct inserts the product and attaches every active module to it
func (s *PostgresService) CreateProduct(ctx context.Context, product *Product) error {
	return postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO products (name, user_id, organization_id)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at
		`, product.Name, product.UserID, product.OrganizationID).
			Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO product_modules (product_id, module_id)
			SELECT $1, id FROM modules WHERE is_active
		`, product.ID)
		if err != nil {
			return fmt.Errorf("failed to attach modules: %w", err)
		}
		return nil
	})
}

// GetProduct retrieves a product by ID
func (s *PostgresService) GetProduct(ctx context.Context, id int64) (*Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("Product not found with id: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// ListOwnedProducts returns the products owned by a user
func (s *PostgresService) ListOwnedProducts(ctx context.Context, userID int64) ([]*Product, error) {
	return s.list(ctx, `SELECT `+productColumns+` FROM products WHERE user_id = $1 ORDER BY id`, userID)
}

// ListProductsByRole returns the products reachable through a role's product modules
func (s *PostgresService) ListProductsByRole(ctx context.Context, roleID int64) ([]*Product, error) {
	query := `
		SELECT DISTINCT p.id, p.name, p.user_id, p.organization_id, p.created_at, p.updated_at
		FROM products p
		JOIN product_modules pm ON pm.product_id = p.id
		JOIN role_product_modules rpm ON rpm.product_module_id = pm.id
		WHERE rpm.role_id = $1
		ORDER BY p.id
	`
	return s.list(ctx, query, roleID)
}

func (s *PostgresService) list(ctx context.Context, query string, args ...interface{}) ([]*Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var list []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// RoleGrantsProduct reports whether any of the role's product modules belongs to the product
func (s *PostgresService) RoleGrantsProduct(ctx context.Context, roleID, productID int64) (bool, error) {
	var granted bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM role_product_modules rpm
			JOIN product_modules pm ON pm.id = rpm.product_module_id
			WHERE rpm.role_id = $1 AND pm.product_id = $2
		)
	`, roleID, productID).Scan(&granted)
	if err != nil {
		return false, fmt.Errorf("failed to check role grant: %w", err)
	}
	return granted, nil
}

// UpdateProduct renames a product
func (s *PostgresService) UpdateProduct(ctx context.Context, product *Product) error {
	err := s.db.QueryRowContext(ctx, `
		UPDATE products SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, product.ID, product.Name).Scan(&product.CreatedAt, &product.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("Product not found with id: %d", product.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// DeleteProduct deletes a product together with its modules, backlog, roadmaps and plans
func (s *PostgresService) DeleteProduct(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("Product not found with id: %d", id)
	}
	return nil
}

// CountProducts returns the number of products
func (s *PostgresService) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}
