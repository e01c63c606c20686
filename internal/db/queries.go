package db

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/modman/internal/errors"
	"github.com/hpungsan/modman/internal/mod"
)

// Edge is one dependency between two tracked mods: Dependent requires Dependency.
// Both sides are tracked mod names.
type Edge struct {
	Dependency string `json:"dependency"`
	Dependent  string `json:"dependent"`
}

// keyNorm is the identifier form dependencies are matched against.
func keyNorm(name string) string {
	return strings.ToLower(mod.IDFromName(name))
}

// dependencyNorm strips version constraints and case from a dependency entry.
func dependencyNorm(dep string) string {
	return strings.ToLower(mod.DependencyID(dep))
}

// GetTrackedMods returns every tracked mod ordered by normalized name.
func GetTrackedMods(ctx context.Context, db *sql.DB) ([]mod.TrackedRecord, error) {
	query := `
		SELECT id, name, mod_id, path, version, checksum, installed_at
		FROM tracked_mods
		ORDER BY name_norm ASC
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	records := []mod.TrackedRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	deps, err := loadDependencies(ctx, db)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Dependencies = deps[records[i].ID]
		if records[i].Dependencies == nil {
			records[i].Dependencies = []string{}
		}
	}
	return records, nil
}

// AddTrackedMod inserts rec, or replaces the record with the same normalized
// name. rec.ID and rec.InstalledAt are filled in when empty.
func AddTrackedMod(ctx context.Context, db *sql.DB, rec *mod.TrackedRecord) error {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return errors.NewInvalidRequest("tracked mod name is required")
	}
	rec.Name = name
	if rec.InstalledAt == 0 {
		rec.InstalledAt = time.Now().Unix()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	var existingID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM tracked_mods WHERE name_norm = ?`, mod.Normalize(name)).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		if rec.ID == "" {
			rec.ID = ulid.Make().String()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tracked_mods (
				id, name, name_norm, key_norm, mod_id, mod_id_norm,
				path, version, checksum, installed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rec.ID, name, mod.Normalize(name), keyNorm(name), toNullString(optional(rec.ModID)), toNullString(optional(strings.ToLower(rec.ModID))),
			rec.Path, toNullString(rec.Version), toNullString(optional(rec.Checksum)), rec.InstalledAt,
		)
	case err != nil:
		return errors.NewInternal(err)
	default:
		rec.ID = existingID
		_, err = tx.ExecContext(ctx, `
			UPDATE tracked_mods
			SET name = ?, key_norm = ?, mod_id = ?, mod_id_norm = ?,
				path = ?, version = ?, checksum = ?, installed_at = ?
			WHERE id = ?
		`,
			name, keyNorm(name), toNullString(optional(rec.ModID)), toNullString(optional(strings.ToLower(rec.ModID))),
			rec.Path, toNullString(rec.Version), toNullString(optional(rec.Checksum)), rec.InstalledAt,
			rec.ID,
		)
	}
	if err != nil {
		return errors.NewInternal(err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM mod_dependencies WHERE mod_id = ?`, rec.ID); err != nil {
		return errors.NewInternal(err)
	}
	rec.Dependencies = mod.UniqueStrings(rec.Dependencies)
	for _, dep := range rec.Dependencies {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO mod_dependencies (mod_id, dependency, dependency_norm) VALUES (?, ?, ?)`,
			rec.ID, dep, dependencyNorm(dep),
		)
		if err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// RemoveTrackedMod deletes the record for name and its dependency rows.
func RemoveTrackedMod(ctx context.Context, db *sql.DB, name string) error {
	rec, err := GetModDetails(ctx, db, name)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM mod_dependencies WHERE mod_id = ?`, rec.ID); err != nil {
		return errors.NewInternal(err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM tracked_mods WHERE id = ?`, rec.ID)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewTrackedRecordNotFound(name)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetModDetails looks up a tracked mod by name, falling back to its mod id.
// Both comparisons ignore case.
func GetModDetails(ctx context.Context, db *sql.DB, name string) (*mod.TrackedRecord, error) {
	query := `
		SELECT id, name, mod_id, path, version, checksum, installed_at
		FROM tracked_mods
		WHERE name_norm = ? OR mod_id_norm = ?
		ORDER BY (name_norm = ?) DESC
		LIMIT 1
	`
	nameNorm := mod.Normalize(name)
	rows, err := db.QueryContext(ctx, query, nameNorm, strings.ToLower(strings.TrimSpace(name)), nameNorm)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, errors.NewInternal(err)
		}
		return nil, errors.NewTrackedRecordNotFound(name)
	}
	rec, err := scanRecord(rows)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	rows.Close()

	deps, err := dependenciesOf(ctx, db, rec.ID)
	if err != nil {
		return nil, err
	}
	rec.Dependencies = deps
	return rec, nil
}

// GetDependents returns the names of tracked mods that declare a dependency
// on name (or on the mod id recorded for name).
func GetDependents(ctx context.Context, db *sql.DB, name string) ([]string, error) {
	keys := []string{keyNorm(name)}
	selfID := ""
	if rec, err := GetModDetails(ctx, db, name); err == nil {
		selfID = rec.ID
		keys = append(keys, keyNorm(rec.Name))
		if rec.ModID != "" {
			keys = append(keys, strings.ToLower(rec.ModID))
		}
	} else if !errors.Is(err, errors.ErrTrackedRecordNotFound) {
		return nil, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	query := `
		SELECT DISTINCT t.name
		FROM mod_dependencies d
		JOIN tracked_mods t ON t.id = d.mod_id
		WHERE d.dependency_norm IN (` + placeholders + `) AND t.id != ?
		ORDER BY t.name_norm ASC
	`
	args := make([]any, 0, len(keys)+1)
	for _, k := range keys {
		args = append(args, k)
	}
	args = append(args, selfID)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	dependents := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, errors.NewInternal(err)
		}
		dependents = append(dependents, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return dependents, nil
}

// DependencyEdges returns every dependency between two tracked mods, for
// building a graph snapshot. Dependencies on untracked mods are omitted.
func DependencyEdges(ctx context.Context, db *sql.DB) ([]Edge, error) {
	query := `
		SELECT DISTINCT target.name, owner.name
		FROM mod_dependencies d
		JOIN tracked_mods owner ON owner.id = d.mod_id
		JOIN tracked_mods target
		  ON target.key_norm = d.dependency_norm OR target.mod_id_norm = d.dependency_norm
		WHERE target.id != owner.id
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	edges := []Edge{}
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.Dependency, &e.Dependent); err != nil {
			return nil, errors.NewInternal(err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Dependency != edges[j].Dependency {
			return edges[i].Dependency < edges[j].Dependency
		}
		return edges[i].Dependent < edges[j].Dependent
	})
	return edges, nil
}

func loadDependencies(ctx context.Context, db *sql.DB) (map[string][]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT mod_id, dependency FROM mod_dependencies ORDER BY mod_id, rowid`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	deps := make(map[string][]string)
	for rows.Next() {
		var id, dep string
		if err := rows.Scan(&id, &dep); err != nil {
			return nil, errors.NewInternal(err)
		}
		deps[id] = append(deps[id], dep)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return deps, nil
}

func dependenciesOf(ctx context.Context, db *sql.DB, id string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT dependency FROM mod_dependencies WHERE mod_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	deps := []string{}
	for rows.Next() {
		var dep string
		if err := rows.Scan(&dep); err != nil {
			return nil, errors.NewInternal(err)
		}
		deps = append(deps, dep)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return deps, nil
}

// scanRecord scans a tracked_mods row without its dependencies.
func scanRecord(rows *sql.Rows) (*mod.TrackedRecord, error) {
	var (
		r        mod.TrackedRecord
		modID    sql.NullString
		version  sql.NullString
		checksum sql.NullString
	)
	if err := rows.Scan(&r.ID, &r.Name, &modID, &r.Path, &version, &checksum, &r.InstalledAt); err != nil {
		return nil, err
	}
	r.ModID = modID.String
	r.Version = fromNullString(version)
	r.Checksum = checksum.String
	return &r, nil
}

// optional maps an empty string to nil.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
