package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/fixitapp/fixit/internal/version"
)

// Migration files live in store/migration/{driver}/. Fresh installations
// apply LATEST.sql; existing installations apply the numbered version
// directories greater than the recorded schema version, in order. Applied
// versions are recorded in migration_history.

//go:embed migration
var migrationFS embed.FS

// LatestSchemaFileName is the full schema applied to new installations.
const LatestSchemaFileName = "LATEST.sql"

// Migrate brings the database schema up to the current version.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}

	if !initialized {
		if err := s.applyLatestSchema(ctx); err != nil {
			return errors.Wrap(err, "failed to apply latest schema")
		}
		if err := s.recordMigration(ctx, version.GetSchemaVersion(s.profile.Version)); err != nil {
			return errors.Wrap(err, "failed to record schema version")
		}
		slog.Info("database initialized", slog.String("driver", s.profile.Driver))
		return nil
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read migration history")
	}
	current := ""
	for _, v := range applied {
		if current == "" || version.IsVersionGreaterThan(v, current) {
			current = v
		}
	}

	pending, err := s.pendingMigrationDirs(current)
	if err != nil {
		return err
	}
	for _, dir := range pending {
		if err := s.applyMigrationDir(ctx, dir); err != nil {
			return errors.Wrapf(err, "failed to apply migration %s", dir)
		}
		if err := s.recordMigration(ctx, filepath.Base(dir)); err != nil {
			return errors.Wrapf(err, "failed to record migration %s", dir)
		}
		slog.Info("applied migration", slog.String("version", filepath.Base(dir)))
	}
	return nil
}

func (s *Store) migrationDir() string {
	return fmt.Sprintf("migration/%s", s.profile.Driver)
}

func (s *Store) applyLatestSchema(ctx context.Context) error {
	buf, err := migrationFS.ReadFile(fmt.Sprintf("%s/%s", s.migrationDir(), LatestSchemaFileName))
	if err != nil {
		return errors.Wrap(err, "failed to read latest schema file")
	}
	if _, err := s.driver.GetDB().ExecContext(ctx, string(buf)); err != nil {
		return errors.Wrap(err, "failed to execute latest schema")
	}
	return nil
}

// pendingMigrationDirs returns version directories greater than current,
// sorted ascending. An empty current means every directory is pending.
func (s *Store) pendingMigrationDirs(current string) ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, s.migrationDir())
	if err != nil {
		return nil, errors.Wrap(err, "failed to read migration directory")
	}
	dirs := []string{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if current != "" && !version.IsVersionGreaterThan(entry.Name(), current) {
			continue
		}
		dirs = append(dirs, fmt.Sprintf("%s/%s", s.migrationDir(), entry.Name()))
	}
	sort.Slice(dirs, func(i, j int) bool {
		return version.IsVersionGreaterThan(filepath.Base(dirs[j]), filepath.Base(dirs[i]))
	})
	return dirs, nil
}

func (s *Store) applyMigrationDir(ctx context.Context, dir string) error {
	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return err
	}
	names := []string{}
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, name := range names {
		buf, err := migrationFS.ReadFile(fmt.Sprintf("%s/%s", dir, name))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(buf)); err != nil {
			return errors.Wrapf(err, "failed to execute %s", name)
		}
	}
	return tx.Commit()
}

func (s *Store) appliedMigrations(ctx context.Context) ([]string, error) {
	rows, err := s.driver.GetDB().QueryContext(ctx, "SELECT version FROM migration_history")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (s *Store) recordMigration(ctx context.Context, v string) error {
	stmt := "INSERT INTO migration_history (version) VALUES ($1) ON CONFLICT (version) DO NOTHING"
	if s.profile.Driver == "sqlite" {
		stmt = "INSERT INTO migration_history (version) VALUES (?) ON CONFLICT (version) DO NOTHING"
	}
	_, err := s.driver.GetDB().ExecContext(ctx, stmt, v)
	return err
}
