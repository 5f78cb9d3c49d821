package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/lib/pq"
	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/observability"
	"github.com/platinummonkey/prodhub/pkg/storage/postgres"
)

const (
	cacheName       = "active_modules"
	activeModuleKey = "active"
)

const moduleColumns = `id, name, description, icon, is_active, display_order, created_at`

const productModuleSelect = `
	SELECT pm.id, pm.is_enabled, pm.completion_percentage, pm.created_at,
		p.id, p.name, p.organization_id, p.created_at,
		m.id, m.name, m.description, m.icon, m.is_active, m.display_order, m.created_at
	FROM product_modules pm
	JOIN products p ON p.id = pm.product_id
	JOIN modules m ON m.id = pm.module_id
`

// Store reads and writes modules and product modules
type Store struct {
	db      *sql.DB
	cache   *lru.LRU[string, []*Module]
	metrics *observability.Metrics
}

// NewStore creates a catalog store. Active modules are cached for ttl; metrics may be nil.
func NewStore(db *sql.DB, ttl time.Duration, metrics *observability.Metrics) *Store {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Store{
		db:      db,
		cache:   lru.NewLRU[string, []*Module](8, nil, ttl),
		metrics: metrics,
	}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanModule(row scanner) (*Module, error) {
	m := &Module{}
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Icon, &m.IsActive, &m.DisplayOrder, &m.CreatedAt)
	return m, err
}

func scanProductModule(row scanner) (*ProductModule, error) {
	pm := &ProductModule{}
	err := row.Scan(
		&pm.ID, &pm.IsEnabled, &pm.CompletionPercentage, &pm.CreatedAt,
		&pm.Product.ID, &pm.Product.ProductName, &pm.OrganizationID, &pm.Product.CreatedAt,
		&pm.Module.ID, &pm.Module.Name, &pm.Module.Description, &pm.Module.Icon,
		&pm.Module.IsActive, &pm.Module.DisplayOrder, &pm.Module.CreatedAt,
	)
	return pm, err
}

// ListActiveModules returns active modules by display order, served from cache when fresh
func (s *Store) ListActiveModules(ctx context.Context) ([]*Module, error) {
	if modules, ok := s.cache.Get(activeModuleKey); ok {
		if s.metrics != nil {
			s.metrics.CacheHitsTotal.WithLabelValues(cacheName).Inc()
		}
		return modules, nil
	}
	if s.metrics != nil {
		s.metrics.CacheMissesTotal.WithLabelValues(cacheName).Inc()
	}

	modules, err := s.listModules(ctx, `SELECT `+moduleColumns+` FROM modules WHERE is_active ORDER BY display_order, id`)
	if err != nil {
		return nil, err
	}
	s.cache.Add(activeModuleKey, modules)
	return modules, nil
}

// ListModules returns the whole catalog, including inactive modules
func (s *Store) ListModules(ctx context.Context) ([]*Module, error) {
	return s.listModules(ctx, `SELECT `+moduleColumns+` FROM modules ORDER BY display_order, id`)
}

func (s *Store) listModules(ctx context.Context, query string) ([]*Module, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	var modules []*Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// UpsertModules creates or updates modules by name and drops the cached active list
func (s *Store) UpsertModules(ctx context.Context, modules []Module) error {
	err := postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, m := range modules {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO modules (name, description, icon, is_active, display_order)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (name) DO UPDATE
				SET description = EXCLUDED.description,
					icon = EXCLUDED.icon,
					is_active = EXCLUDED.is_active,
					display_order = EXCLUDED.display_order,
					updated_at = NOW()
			`, m.Name, m.Description, m.Icon, m.IsActive, m.DisplayOrder)
			if err != nil {
				return fmt.Errorf("failed to upsert module %q: %w", m.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.InvalidateCache()
	return nil
}

// InvalidateCache drops the cached active module list
func (s *Store) InvalidateCache() {
	s.cache.Purge()
}

// ListProductModules returns the modules of one product
func (s *Store) ListProductModules(ctx context.Context, productID int64) ([]*ProductModule, error) {
	return s.listProductModules(ctx,
		productModuleSelect+` WHERE pm.product_id = $1 ORDER BY m.display_order, pm.id`, productID)
}

// ListProductModulesByOrganization returns the product modules of every product in the organization
func (s *Store) ListProductModulesByOrganization(ctx context.Context, orgID int64) ([]*ProductModule, error) {
	return s.listProductModules(ctx,
		productModuleSelect+` WHERE p.organization_id = $1 ORDER BY LOWER(p.name), p.id, m.display_order, pm.id`, orgID)
}

// ListProductModulesForRole returns the product modules granted by a role
func (s *Store) ListProductModulesForRole(ctx context.Context, roleID int64) ([]*ProductModule, error) {
	query := productModuleSelect + `
		JOIN role_product_modules rpm ON rpm.product_module_id = pm.id
		WHERE rpm.role_id = $1
		ORDER BY LOWER(p.name), p.id, m.display_order, pm.id`
	return s.listProductModules(ctx, query, roleID)
}

// GetProductModulesByIDs loads the product modules with the given ids. Unknown ids are skipped.
func (s *Store) GetProductModulesByIDs(ctx context.Context, ids []int64) ([]*ProductModule, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.listProductModules(ctx,
		productModuleSelect+` WHERE pm.id = ANY($1) ORDER BY pm.id`, pq.Array(ids))
}

func (s *Store) listProductModules(ctx context.Context, query string, args ...interface{}) ([]*ProductModule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list product modules: %w", err)
	}
	defer rows.Close()

	var list []*ProductModule
	for rows.Next() {
		pm, err := scanProductModule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product module: %w", err)
		}
		list = append(list, pm)
	}
	return list, rows.Err()
}

// UpdateProductModule sets the enabled flag and completion of a product's module
func (s *Store) UpdateProductModule(ctx context.Context, productID, moduleID int64, isEnabled bool, completion int) (*ProductModule, error) {
	if completion < 0 || completion > 100 {
		return nil, apperrors.Validation("completionPercentage must be between 0 and 100")
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE product_modules
		SET is_enabled = $3, completion_percentage = $4, updated_at = NOW()
		WHERE product_id = $1 AND module_id = $2
		RETURNING id
	`, productID, moduleID, isEnabled, completion).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("Module %d is not attached to product %d", moduleID, productID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product module: %w", err)
	}

	pm, err := scanProductModule(s.db.QueryRowContext(ctx, productModuleSelect+` WHERE pm.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to reload product module: %w", err)
	}
	return pm, nil
}
