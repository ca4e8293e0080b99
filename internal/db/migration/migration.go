// Package migration applies the embedded Postgres schema.
//
// Files are named NNNN_name.up.sql / NNNN_name.down.sql. Only versions missing
// from schema_migrations are applied, each inside its own transaction.
package migration

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

type migration struct {
	version  int
	name     string
	upFile   string
	downFile string
}

var migFileRe = regexp.MustCompile(`^([0-9]{4})_(.+)\.(up|down)\.sql$`)

func loadMigrations() ([]migration, error) {
	list, err := fs.ReadDir(migrationsFS, "sql")
	if err != nil {
		return nil, err
	}

	byVersion := map[int]migration{}
	for _, de := range list {
		if de.IsDir() {
			continue
		}
		m := migFileRe.FindStringSubmatch(de.Name())
		if m == nil {
			continue
		}
		version, _ := strconv.Atoi(m[1])
		item := byVersion[version]
		item.version = version
		item.name = m[2]
		if m[3] == "up" {
			item.upFile = "sql/" + de.Name()
		} else {
			item.downFile = "sql/" + de.Name()
		}
		byVersion[version] = item
	}

	migs := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		migs = append(migs, m)
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].version < migs[j].version })
	return migs, nil
}

func ensureMigrationsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version integer PRIMARY KEY,
		applied_at timestamptz NOT NULL DEFAULT now()
	)`)
	return err
}

func appliedVersions(ctx context.Context, pool *pgxpool.Pool) (map[int]bool, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int32])
	if err != nil {
		return nil, err
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[int(v)] = true
	}
	return applied, nil
}

// Up applies every pending migration in version order.
func Up(ctx context.Context, pool *pgxpool.Pool) error {
	migs, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	if err := ensureMigrationsTable(ctx, pool); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for _, m := range migs {
		if applied[m.version] {
			continue
		}
		if m.upFile == "" {
			return fmt.Errorf("missing up migration for version %04d", m.version)
		}
		text, err := migrationsFS.ReadFile(m.upFile)
		if err != nil {
			return err
		}

		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(text)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.version)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %04d_%s failed: %w", m.version, m.name, err)
		}
		log.Info().Int("version", m.version).Str("name", m.name).Msg("migration applied")
	}

	return nil
}

// RollbackLast reverts the most recently applied migration.
func RollbackLast(ctx context.Context, pool *pgxpool.Pool) error {
	if err := ensureMigrationsTable(ctx, pool); err != nil {
		return err
	}

	var version int32
	err := pool.QueryRow(ctx, `SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version)
	if err == pgx.ErrNoRows {
		return nil
	} else if err != nil {
		return err
	}

	migs, err := loadMigrations()
	if err != nil {
		return err
	}
	for _, m := range migs {
		if m.version != int(version) {
			continue
		}
		if m.downFile == "" {
			return fmt.Errorf("missing down migration for version %04d", m.version)
		}
		text, err := migrationsFS.ReadFile(m.downFile)
		if err != nil {
			return err
		}
		return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(text)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, version)
			return err
		})
	}

	return fmt.Errorf("no migration file for applied version %04d", version)
}
