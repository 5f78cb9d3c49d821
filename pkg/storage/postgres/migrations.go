package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/prodhub/pkg/observability"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the schema migrations in version order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create organizations, roles and users tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS organizations (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS roles (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					CONSTRAINT roles_name_key UNIQUE (name)
				);

				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					email VARCHAR(255) NOT NULL,
					password_hash VARCHAR(255) NOT NULL,
					organization_id BIGINT REFERENCES organizations(id) ON DELETE CASCADE,
					is_superadmin BOOLEAN NOT NULL DEFAULT FALSE,
					is_global_superadmin BOOLEAN NOT NULL DEFAULT FALSE,
					role_id BIGINT REFERENCES roles(id) ON DELETE SET NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX idx_users_email_lower ON users(LOWER(email));
				CREATE INDEX idx_users_organization_id ON users(organization_id);
				CREATE INDEX idx_users_role_id ON users(role_id);
			`,
		},
		{
			Version:     2,
			Description: "Create modules, products and product_modules tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS modules (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					icon VARCHAR(100) NOT NULL DEFAULT '',
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					display_order INT NOT NULL DEFAULT 0,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					CONSTRAINT modules_name_key UNIQUE (name)
				);

				CREATE TABLE IF NOT EXISTS products (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
					organization_id BIGINT REFERENCES organizations(id) ON DELETE SET NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_products_user_id ON products(user_id);
				CREATE INDEX idx_products_organization_id ON products(organization_id);

				CREATE TABLE IF NOT EXISTS product_modules (
					id BIGSERIAL PRIMARY KEY,
					product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
					module_id BIGINT NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
					is_enabled BOOLEAN NOT NULL DEFAULT TRUE,
					completion_percentage INT NOT NULL DEFAULT 0 CHECK (completion_percentage BETWEEN 0 AND 100),
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					CONSTRAINT product_modules_product_module_key UNIQUE (product_id, module_id)
				);

				CREATE TABLE IF NOT EXISTS role_product_modules (
					role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					product_module_id BIGINT NOT NULL REFERENCES product_modules(id) ON DELETE CASCADE,
					PRIMARY KEY (role_id, product_module_id)
				);

				CREATE INDEX idx_role_product_modules_product_module_id ON role_product_modules(product_module_id);
			`,
		},
		{
			Version:     3,
			Description: "Create backlog and hypothesis tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS product_backlogs (
					id BIGSERIAL PRIMARY KEY,
					product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					CONSTRAINT product_backlogs_product_key UNIQUE (product_id)
				);

				CREATE TABLE IF NOT EXISTS backlog_epics (
					id BIGSERIAL PRIMARY KEY,
					backlog_id BIGINT NOT NULL REFERENCES product_backlogs(id) ON DELETE CASCADE,
					epic_id VARCHAR(255) NOT NULL,
					name VARCHAR(255) NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					priority VARCHAR(50) NOT NULL DEFAULT '',
					status VARCHAR(50) NOT NULL DEFAULT '',
					initiative_name VARCHAR(255),
					theme_name VARCHAR(255),
					theme_color VARCHAR(50),
					position INT NOT NULL DEFAULT 0,
					CONSTRAINT backlog_epics_backlog_epic_key UNIQUE (backlog_id, epic_id)
				);

				CREATE TABLE IF NOT EXISTS product_hypotheses (
					id BIGSERIAL PRIMARY KEY,
					product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
					hypothesis_statement TEXT NOT NULL DEFAULT '',
					success_metrics TEXT NOT NULL DEFAULT '',
					assumptions TEXT NOT NULL DEFAULT '',
					initiatives TEXT NOT NULL DEFAULT '',
					themes TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					CONSTRAINT product_hypotheses_product_key UNIQUE (product_id)
				);
			`,
		},
		{
			Version:     4,
			Description: "Create quarterly roadmap tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS quarterly_roadmaps (
					id BIGSERIAL PRIMARY KEY,
					product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
					year INT NOT NULL,
					quarter INT NOT NULL CHECK (quarter BETWEEN 1 AND 4),
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					CONSTRAINT quarterly_roadmaps_product_quarter_key UNIQUE (product_id, year, quarter)
				);

				CREATE TABLE IF NOT EXISTS roadmap_items (
					id BIGSERIAL PRIMARY KEY,
					roadmap_id BIGINT NOT NULL REFERENCES quarterly_roadmaps(id) ON DELETE CASCADE,
					product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
					epic_id VARCHAR(255) NOT NULL,
					epic_name VARCHAR(255) NOT NULL DEFAULT '',
					epic_description TEXT NOT NULL DEFAULT '',
					priority VARCHAR(50) NOT NULL DEFAULT '',
					status VARCHAR(50) NOT NULL DEFAULT '',
					estimated_effort VARCHAR(100) NOT NULL DEFAULT '',
					assigned_team VARCHAR(255) NOT NULL DEFAULT '',
					reach INT,
					impact INT,
					confidence INT,
					rice_score DOUBLE PRECISION,
					effort_rating INT CHECK (effort_rating BETWEEN 1 AND 5),
					start_date DATE,
					end_date DATE,
					initiative_name VARCHAR(255),
					theme_name VARCHAR(255),
					theme_color VARCHAR(50),
					position INT NOT NULL DEFAULT 0,
					CONSTRAINT roadmap_items_product_epic_key UNIQUE (product_id, epic_id)
				);

				CREATE INDEX idx_roadmap_items_roadmap_id ON roadmap_items(roadmap_id);
			`,
		},
		{
			Version:     5,
			Description: "Create capacity planning tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS teams (
					id BIGSERIAL PRIMARY KEY,
					product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX idx_teams_product_active_name ON teams(product_id, LOWER(name)) WHERE is_active;

				CREATE TABLE IF NOT EXISTS capacity_plans (
					id BIGSERIAL PRIMARY KEY,
					product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
					year INT NOT NULL,
					quarter INT NOT NULL CHECK (quarter BETWEEN 1 AND 4),
					effort_unit VARCHAR(50) NOT NULL DEFAULT 'days',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					CONSTRAINT capacity_plans_product_quarter_key UNIQUE (product_id, year, quarter)
				);

				CREATE TABLE IF NOT EXISTS epic_efforts (
					id BIGSERIAL PRIMARY KEY,
					capacity_plan_id BIGINT NOT NULL REFERENCES capacity_plans(id) ON DELETE CASCADE,
					epic_id VARCHAR(255) NOT NULL,
					epic_name VARCHAR(255) NOT NULL DEFAULT '',
					team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
					effort_days INT NOT NULL DEFAULT 0 CHECK (effort_days >= 0),
					notes TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					CONSTRAINT epic_efforts_plan_epic_team_key UNIQUE (capacity_plan_id, epic_id, team_id)
				);

				CREATE TABLE IF NOT EXISTS effort_rating_configs (
					id BIGSERIAL PRIMARY KEY,
					product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
					unit_type VARCHAR(50) NOT NULL,
					star1_max INT NOT NULL,
					star2_max INT NOT NULL,
					star3_max INT NOT NULL,
					star4_max INT NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					CONSTRAINT effort_rating_configs_product_unit_key UNIQUE (product_id, unit_type),
					CHECK (star1_max <= star2_max AND star2_max <= star3_max AND star3_max <= star4_max)
				);
			`,
		},
		{
			Version:     6,
			Description: "Seed default module catalog",
			SQL: `
				INSERT INTO modules (name, description, icon, is_active, display_order) VALUES
					('Product Hypothesis', 'Problem statement, success metrics and assumptions', 'lightbulb', TRUE, 1),
					('Product Backlog', 'Epics grouped by initiative and theme', 'list', TRUE, 2),
					('Quarterly Roadmap', 'Epics scheduled into quarters with RICE scoring', 'map', TRUE, 3),
					('Capacity Planning', 'Team effort per epic and quarter', 'users', TRUE, 4)
				ON CONFLICT (name) DO NOTHING;
			`,
		},
	}
}

// RunMigrations executes all pending migrations, each in its own transaction
func RunMigrations(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range GetMigrations() {
		if applied[migration.Version] {
			continue
		}

		logger.WithFields(map[string]interface{}{
			"version":     migration.Version,
			"description": migration.Description,
		}).Info("Running migration")

		err := WithTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
				migration.Version, migration.Description,
			); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// PendingMigrations returns the migrations that have not been applied yet
func PendingMigrations(ctx context.Context, db *sql.DB) ([]Migration, error) {
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, migration := range GetMigrations() {
		if !applied[migration.Version] {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}
