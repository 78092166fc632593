// Package schema implements the coordination engine's schema guard
// (component C3): an information_schema-driven boot-time alignment pass
// that creates missing tables and columns, widens known integer columns to
// BIGINT, re-asserts the critical unique indexes, and enables row-level
// security on every required table.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cuemby/dmwcoord/pkg/metrics"
)

// criticalIndexDDLs are re-issued on every boot; each is idempotent via
// IF NOT EXISTS so repeated alignment passes are safe.
var criticalIndexDDLs = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ix_raids_guild_display_id_unique ON public.raids (guild_id, display_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ix_raid_attendance_unique_user ON public.raid_attendance (guild_id, raid_display_id, user_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_raid_votes_unique ON public.raid_votes (raid_id, kind, option_label, user_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_raid_options_raid_kind_label ON public.raid_options (raid_id, kind, label)`,
}

var bigintUDTNames = map[string]bool{"int8": true, "bigint": true}

// requiredBigintColumns lists columns that must be widened to BIGINT even if
// they were originally created as a narrower integer type.
var requiredBigintColumns = [][2]string{
	{"user_levels", "xp"},
	{"user_levels", "level"},
}

// ColumnDef describes one column of a required table for alignment purposes.
type ColumnDef struct {
	Name         string
	Type         string // Postgres type, e.g. "BIGINT", "TEXT", "BOOLEAN"
	DefaultSQL   string // literal SQL default expression, empty if none
	NotNull      bool
}

// TableDef describes one required table.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// RequiredTables is the full set of tables the coordination engine expects
// to exist, in the order persistence expects to interact with them.
var RequiredTables = []TableDef{
	{Name: "guild_settings", Columns: []ColumnDef{
		{Name: "guild_id", Type: "BIGINT", NotNull: true},
		{Name: "guild_name", Type: "TEXT", DefaultSQL: "''", NotNull: true},
		{Name: "planner_channel_id", Type: "BIGINT"},
		{Name: "participants_channel_id", Type: "BIGINT"},
		{Name: "raidlist_channel_id", Type: "BIGINT"},
		{Name: "raidlist_message_id", Type: "BIGINT"},
		{Name: "default_min_players", Type: "INTEGER", DefaultSQL: "1", NotNull: true},
		{Name: "templates_enabled", Type: "BOOLEAN", DefaultSQL: "true", NotNull: true},
		{Name: "template_manager_role_id", Type: "BIGINT"},
		{Name: "feature_flags", Type: "BIGINT", DefaultSQL: "0", NotNull: true},
	}},
	{Name: "dungeons", Columns: []ColumnDef{
		{Name: "id", Type: "INTEGER", NotNull: true},
		{Name: "name", Type: "TEXT", NotNull: true},
		{Name: "short_code", Type: "TEXT", DefaultSQL: "''", NotNull: true},
		{Name: "is_active", Type: "BOOLEAN", DefaultSQL: "true", NotNull: true},
		{Name: "sort_order", Type: "INTEGER", DefaultSQL: "0", NotNull: true},
	}},
	{Name: "raids", Columns: []ColumnDef{
		{Name: "id", Type: "BIGINT", NotNull: true},
		{Name: "display_id", Type: "BIGINT", NotNull: true},
		{Name: "guild_id", Type: "BIGINT", NotNull: true},
		{Name: "planner_channel_id", Type: "BIGINT", NotNull: true},
		{Name: "creator_id", Type: "BIGINT", NotNull: true},
		{Name: "dungeon", Type: "TEXT", NotNull: true},
		{Name: "status", Type: "TEXT", DefaultSQL: "'open'", NotNull: true},
		{Name: "created_at", Type: "TIMESTAMPTZ", DefaultSQL: "now()", NotNull: true},
		{Name: "message_id", Type: "BIGINT"},
		{Name: "min_players", Type: "INTEGER", DefaultSQL: "1", NotNull: true},
		{Name: "participants_posted", Type: "BOOLEAN", DefaultSQL: "false", NotNull: true},
		{Name: "temp_role_id", Type: "BIGINT"},
		{Name: "temp_role_created", Type: "BOOLEAN", DefaultSQL: "false", NotNull: true},
	}},
	{Name: "raid_options", Columns: []ColumnDef{
		{Name: "id", Type: "BIGINT", NotNull: true},
		{Name: "raid_id", Type: "BIGINT", NotNull: true},
		{Name: "kind", Type: "TEXT", NotNull: true},
		{Name: "label", Type: "TEXT", NotNull: true},
	}},
	{Name: "raid_votes", Columns: []ColumnDef{
		{Name: "id", Type: "BIGINT", NotNull: true},
		{Name: "raid_id", Type: "BIGINT", NotNull: true},
		{Name: "kind", Type: "TEXT", NotNull: true},
		{Name: "option_label", Type: "TEXT", NotNull: true},
		{Name: "user_id", Type: "BIGINT", NotNull: true},
	}},
	{Name: "raid_posted_slots", Columns: []ColumnDef{
		{Name: "id", Type: "BIGINT", NotNull: true},
		{Name: "raid_id", Type: "BIGINT", NotNull: true},
		{Name: "day_label", Type: "TEXT", NotNull: true},
		{Name: "time_label", Type: "TEXT", NotNull: true},
		{Name: "channel_id", Type: "BIGINT"},
		{Name: "message_id", Type: "BIGINT"},
	}},
	{Name: "raid_templates", Columns: []ColumnDef{
		{Name: "id", Type: "BIGINT", NotNull: true},
		{Name: "guild_id", Type: "BIGINT", NotNull: true},
		{Name: "dungeon_id", Type: "INTEGER", NotNull: true},
		{Name: "template_name", Type: "TEXT", NotNull: true},
		{Name: "template_data", Type: "TEXT", DefaultSQL: "''", NotNull: true},
	}},
	{Name: "raid_attendance", Columns: []ColumnDef{
		{Name: "id", Type: "BIGINT", NotNull: true},
		{Name: "guild_id", Type: "BIGINT", NotNull: true},
		{Name: "raid_display_id", Type: "BIGINT", NotNull: true},
		{Name: "dungeon", Type: "TEXT", NotNull: true},
		{Name: "user_id", Type: "BIGINT", NotNull: true},
		{Name: "status", Type: "TEXT", DefaultSQL: "'present'", NotNull: true},
		{Name: "marked_by_user_id", Type: "BIGINT"},
	}},
	{Name: "user_levels", Columns: []ColumnDef{
		{Name: "guild_id", Type: "BIGINT", NotNull: true},
		{Name: "user_id", Type: "BIGINT", NotNull: true},
		{Name: "xp", Type: "BIGINT", DefaultSQL: "0", NotNull: true},
		{Name: "level", Type: "BIGINT", DefaultSQL: "0", NotNull: true},
		{Name: "username", Type: "TEXT", DefaultSQL: "''", NotNull: true},
	}},
	{Name: "debug_mirror_cache", Columns: []ColumnDef{
		{Name: "cache_key", Type: "TEXT", NotNull: true},
		{Name: "kind", Type: "TEXT", NotNull: true},
		{Name: "guild_id", Type: "BIGINT", NotNull: true},
		{Name: "raid_id", Type: "BIGINT"},
		{Name: "message_id", Type: "BIGINT", NotNull: true},
		{Name: "payload_hash", Type: "TEXT", DefaultSQL: "''", NotNull: true},
	}},
}

// Guard aligns the live schema against RequiredTables.
type Guard struct {
	db *sql.DB
}

// New wraps an existing connection pool for schema alignment.
func New(db *sql.DB) *Guard {
	return &Guard{db: db}
}

func sqlLiteralTable(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (g *Guard) fetchPublicTables(ctx context.Context) (map[string]bool, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

func (g *Guard) fetchPublicColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_schema = 'public' AND table_name = $1`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

func (g *Guard) fetchColumnUDTName(ctx context.Context, table, column string) (string, bool, error) {
	var udt string
	err := g.db.QueryRowContext(ctx,
		`SELECT udt_name FROM information_schema.columns WHERE table_schema = 'public' AND table_name = $1 AND column_name = $2`,
		table, column).Scan(&udt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return udt, true, nil
}

func (g *Guard) fetchPublicRLSEnabledTables(ctx context.Context) (map[string]bool, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT c.relname FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = 'public' AND c.relkind = 'r' AND c.relrowsecurity = true`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

func buildCreateTableSQL(t TableDef) string {
	var cols []string
	for _, c := range t.Columns {
		cols = append(cols, buildColumnSQL(c))
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS public.%s (%s)`, sqlLiteralTable(t.Name), strings.Join(cols, ", "))
}

func buildColumnSQL(c ColumnDef) string {
	parts := []string{fmt.Sprintf(`%q %s`, c.Name, c.Type)}
	if c.DefaultSQL != "" {
		parts = append(parts, "DEFAULT "+c.DefaultSQL)
	}
	if c.NotNull {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " ")
}

func buildAddColumnSQL(table string, c ColumnDef) string {
	sql := fmt.Sprintf(`ALTER TABLE public.%s ADD COLUMN IF NOT EXISTS %q %s`, sqlLiteralTable(table), c.Name, c.Type)
	if c.DefaultSQL != "" {
		sql += " DEFAULT " + c.DefaultSQL
	}
	if c.DefaultSQL != "" && c.NotNull {
		sql += " NOT NULL"
	}
	return sql
}

func buildAlterColumnBigintSQL(table, column string) string {
	return fmt.Sprintf(`ALTER TABLE public.%s ALTER COLUMN %q TYPE BIGINT USING %q::BIGINT`, sqlLiteralTable(table), column, column)
}

// EnsureRequiredSchema creates missing tables/columns, widens known integer
// columns to BIGINT, re-asserts the critical indexes and enables row-level
// security, returning the list of changes applied.
func (g *Guard) EnsureRequiredSchema(ctx context.Context) ([]string, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SchemaAlignDuration)

	var changes []string

	existingTables, err := g.fetchPublicTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("schema: fetch tables: %w", err)
	}

	for _, t := range RequiredTables {
		if existingTables[t.Name] {
			continue
		}
		if _, err := g.db.ExecContext(ctx, buildCreateTableSQL(t)); err != nil {
			return nil, fmt.Errorf("schema: create table %s: %w", t.Name, err)
		}
		changes = append(changes, "create_table:"+t.Name)
	}

	for _, t := range RequiredTables {
		existingCols, err := g.fetchPublicColumns(ctx, t.Name)
		if err != nil {
			return nil, fmt.Errorf("schema: fetch columns %s: %w", t.Name, err)
		}
		for _, c := range t.Columns {
			if existingCols[c.Name] {
				continue
			}
			if _, err := g.db.ExecContext(ctx, buildAddColumnSQL(t.Name, c)); err != nil {
				return nil, fmt.Errorf("schema: add column %s.%s: %w", t.Name, c.Name, err)
			}
			changes = append(changes, fmt.Sprintf("add_column:%s.%s", t.Name, c.Name))
		}
	}

	for _, tc := range requiredBigintColumns {
		table, column := tc[0], tc[1]
		udt, exists, err := g.fetchColumnUDTName(ctx, table, column)
		if err != nil {
			return nil, fmt.Errorf("schema: fetch udt_name %s.%s: %w", table, column, err)
		}
		if !exists || bigintUDTNames[udt] {
			continue
		}
		if _, err := g.db.ExecContext(ctx, buildAlterColumnBigintSQL(table, column)); err != nil {
			return nil, fmt.Errorf("schema: widen %s.%s: %w", table, column, err)
		}
		changes = append(changes, fmt.Sprintf("widen_bigint:%s.%s", table, column))
	}

	for _, ddl := range criticalIndexDDLs {
		if _, err := g.db.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("schema: critical index: %w", err)
		}
	}

	rlsEnabled, err := g.fetchPublicRLSEnabledTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("schema: fetch rls tables: %w", err)
	}
	for _, t := range RequiredTables {
		if rlsEnabled[t.Name] {
			continue
		}
		if _, err := g.db.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE public.%s ENABLE ROW LEVEL SECURITY`, sqlLiteralTable(t.Name))); err != nil {
			return nil, fmt.Errorf("schema: enable rls %s: %w", t.Name, err)
		}
		changes = append(changes, "enable_rls:"+t.Name)
	}

	metrics.SchemaAlignChangesTotal.Add(float64(len(changes)))
	return changes, nil
}

// ValidateRequiredTables checks alignment without mutating anything and
// returns an aggregated error describing every gap found.
func (g *Guard) ValidateRequiredTables(ctx context.Context) error {
	existingTables, err := g.fetchPublicTables(ctx)
	if err != nil {
		return fmt.Errorf("schema: fetch tables: %w", err)
	}

	var missingTables []string
	var columnGaps []string
	var bigintViolations []string

	for _, t := range RequiredTables {
		if !existingTables[t.Name] {
			missingTables = append(missingTables, t.Name)
			continue
		}
		existingCols, err := g.fetchPublicColumns(ctx, t.Name)
		if err != nil {
			return fmt.Errorf("schema: fetch columns %s: %w", t.Name, err)
		}
		var missingCols []string
		for _, c := range t.Columns {
			if !existingCols[c.Name] {
				missingCols = append(missingCols, c.Name)
			}
		}
		if len(missingCols) > 0 {
			columnGaps = append(columnGaps, fmt.Sprintf("%s(%s)", t.Name, strings.Join(missingCols, ", ")))
		}
	}

	for _, tc := range requiredBigintColumns {
		table, column := tc[0], tc[1]
		udt, exists, err := g.fetchColumnUDTName(ctx, table, column)
		if err != nil {
			return fmt.Errorf("schema: fetch udt_name %s.%s: %w", table, column, err)
		}
		if exists && !bigintUDTNames[udt] {
			bigintViolations = append(bigintViolations, fmt.Sprintf("%s.%s (%s)", table, column, udt))
		}
	}

	if len(missingTables) == 0 && len(columnGaps) == 0 && len(bigintViolations) == 0 {
		return nil
	}

	var msg strings.Builder
	msg.WriteString("schema validation failed:")
	if len(missingTables) > 0 {
		fmt.Fprintf(&msg, " missing tables: %s;", strings.Join(missingTables, ", "))
	}
	if len(columnGaps) > 0 {
		fmt.Fprintf(&msg, " missing columns: %s;", strings.Join(columnGaps, ", "))
	}
	if len(bigintViolations) > 0 {
		fmt.Fprintf(&msg, " non-bigint columns: %s;", strings.Join(bigintViolations, ", "))
	}
	return fmt.Errorf(msg.String())
}
