package persistence

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/dmwcoord/pkg/store"
)

// backupTableOrder fixes an FK-safe dump order: dungeons and guild_settings
// before anything that references them, raids before their children,
// attendance, user_levels and debug_mirror_cache last. It differs from
// Flush's insertOrder only in putting dungeons before guild_settings.
var backupTableOrder = []string{
	"dungeons", "guild_settings", "raids", "raid_options", "raid_votes",
	"raid_posted_slots", "raid_templates", "raid_attendance", "user_levels",
	"debug_mirror_cache",
}

func backupRows(table string, s *store.Store) []map[string]any {
	switch table {
	case "dungeons":
		return dungeonRows(s)
	case "guild_settings":
		return guildSettingsRows(s)
	case "raids":
		return raidRows(s)
	case "raid_options":
		return raidOptionRows(s)
	case "raid_votes":
		return raidVoteRows(s)
	case "raid_posted_slots":
		return postedSlotRows(s)
	case "raid_templates":
		return templateRows(s)
	case "raid_attendance":
		return attendanceRows(s)
	case "user_levels":
		return userLevelRows(s)
	case "debug_mirror_cache":
		return debugCacheRows(s)
	}
	return nil
}

// backupBerlin is time.Now with the location swapped in at call time so
// tests can't observe a real wall-clock timestamp sneaking into a dump.
var backupBerlin = func() time.Time {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		return time.Now().UTC()
	}
	return time.Now().In(loc)
}

// Backup writes a self-contained, ASCII-only SQL snapshot of every table to
// w: a header comment, a single BEGIN/COMMIT transaction wrapping a
// DELETE FROM followed by one INSERT per row, in FK-safe table order. It
// takes no lock of its own; the caller (the backup worker) is expected to
// hold the orchestrator's state lock for the duration so the snapshot is
// consistent with a single point in time.
func (e *Engine) Backup(w io.Writer, s *store.Store) error {
	if _, err := fmt.Fprintln(w, "-- DMW Rewrite SQL Backup"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "-- generated_at_berlin: %s\n", backupBerlin().Format(time.RFC3339)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "BEGIN;"); err != nil {
		return err
	}

	for _, table := range backupTableOrder {
		if _, err := fmt.Fprintf(w, "DELETE FROM %q;\n", table); err != nil {
			return err
		}
		rows := backupRows(table, s)
		for _, row := range sortedRows(rows) {
			stmt, err := insertStatement(table, row)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, stmt); err != nil {
				return err
			}
		}
	}

	if _, err := fmt.Fprintln(w, "COMMIT;"); err != nil {
		return err
	}
	return nil
}

// sortedRows orders rows by their "id" column (or "guild_id", then
// "cache_key", for tables without one), breaking ties on "user_id", so the
// dump is byte-for-byte stable across runs with identical data, which makes
// backups diffable.
func sortedRows(rows []map[string]any) []map[string]any {
	out := append([]map[string]any(nil), rows...)
	sort.Slice(out, func(i, j int) bool {
		ki, kj := fmt.Sprint(sortKey(out[i])), fmt.Sprint(sortKey(out[j]))
		if ki != kj {
			return ki < kj
		}
		return fmt.Sprint(out[i]["user_id"]) < fmt.Sprint(out[j]["user_id"])
	})
	return out
}

func sortKey(row map[string]any) any {
	for _, k := range []string{"id", "guild_id", "cache_key"} {
		if v, ok := row[k]; ok {
			return v
		}
	}
	return ""
}

func insertStatement(table string, row map[string]any) (string, error) {
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	vals := make([]string, 0, len(cols))
	for _, col := range cols {
		vals = append(vals, sqlLiteral(row[col]))
	}
	return fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s);", table, strings.Join(cols, ", "), strings.Join(vals, ", ")), nil
}

// sqlLiteral renders a value as an ASCII-only SQL literal. Strings are
// single-quoted with embedded quotes and backslashes doubled; everything
// non-ASCII is escaped to \uXXXX so the dump file stays plain ASCII.
func sqlLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case string:
		return quoteSQLString(val)
	case *uint64:
		if val == nil {
			return "NULL"
		}
		return strconv.FormatUint(*val, 10)
	case *string:
		if val == nil {
			return "NULL"
		}
		return quoteSQLString(*val)
	case time.Time:
		return quoteSQLString(val.UTC().Format(time.RFC3339Nano))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(val)
	case fmt.Stringer:
		return quoteSQLString(val.String())
	default:
		return quoteSQLString(fmt.Sprint(val))
	}
}

func quoteSQLString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch {
		case r == '\'':
			b.WriteString("''")
		case r == '\\':
			b.WriteString(`\\`)
		case r > 126 || r < 32:
			b.WriteString(fmt.Sprintf(`\u%04x`, r))
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
