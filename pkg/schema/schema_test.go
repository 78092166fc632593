package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildAddColumnSQLIncludesDefaultAndNotNull(t *testing.T) {
	col := ColumnDef{Name: "templates_enabled", Type: "BOOLEAN", DefaultSQL: "true", NotNull: true}
	sql := buildAddColumnSQL("guild_settings", col)

	assert.Contains(t, sql, `ALTER TABLE public."guild_settings" ADD COLUMN IF NOT EXISTS "templates_enabled" BOOLEAN`)
	assert.Contains(t, sql, "DEFAULT true")
	assert.Contains(t, sql, "NOT NULL")
}

func TestBuildAddColumnSQLOmitsNotNullWithoutDefault(t *testing.T) {
	col := ColumnDef{Name: "message_id", Type: "BIGINT", NotNull: true}
	sql := buildAddColumnSQL("raids", col)

	assert.NotContains(t, sql, "NOT NULL", "a NOT NULL column with no default would break on existing rows")
}

func TestBuildAlterColumnBigintSQL(t *testing.T) {
	sql := buildAlterColumnBigintSQL("user_levels", "xp")
	assert.Equal(t, `ALTER TABLE public."user_levels" ALTER COLUMN "xp" TYPE BIGINT USING "xp"::BIGINT`, sql)
}

func TestCriticalIndexDDLsCoverAllFourUniqueConstraints(t *testing.T) {
	assert.Len(t, criticalIndexDDLs, 4)
	for _, ddl := range criticalIndexDDLs {
		assert.Contains(t, ddl, "CREATE UNIQUE INDEX IF NOT EXISTS")
	}
}

func TestRequiredTablesIncludeAllTenEntities(t *testing.T) {
	names := make(map[string]bool)
	for _, t := range RequiredTables {
		names[t.Name] = true
	}
	for _, want := range []string{
		"guild_settings", "dungeons", "raids", "raid_options", "raid_votes",
		"raid_posted_slots", "raid_templates", "raid_attendance", "user_levels", "debug_mirror_cache",
	} {
		assert.True(t, names[want], "missing required table %s", want)
	}
}
