package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cuemby/dmwcoord/pkg/store"
)

// insertTable re-inserts every row of one table from the in-memory store,
// inside the caller's transaction.
func (e *Engine) insertTable(ctx context.Context, tx *sql.Tx, table string, s *store.Store) error {
	switch table {
	case "guild_settings":
		for _, g := range s.Settings {
			if _, err := tx.ExecContext(ctx, `INSERT INTO guild_settings
				(guild_id, guild_name, planner_channel_id, participants_channel_id, raidlist_channel_id,
				 raidlist_message_id, default_min_players, templates_enabled, template_manager_role_id, feature_flags)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				g.GuildID, g.GuildName, g.PlannerChannelID, g.ParticipantsChannelID, g.RaidlistChannelID,
				g.RaidlistMessageID, g.DefaultMinPlayers, g.TemplatesEnabled, g.TemplateManagerRoleID, g.FeatureFlags); err != nil {
				return fmt.Errorf("persistence: insert guild_settings: %w", err)
			}
		}
	case "dungeons":
		for _, d := range s.Dungeons {
			if _, err := tx.ExecContext(ctx, `INSERT INTO dungeons (id, name, short_code, is_active, sort_order)
				VALUES ($1,$2,$3,$4,$5)`, d.ID, d.Name, d.ShortCode, d.IsActive, d.SortOrder); err != nil {
				return fmt.Errorf("persistence: insert dungeons: %w", err)
			}
		}
	case "raids":
		for _, r := range s.Raids {
			if _, err := tx.ExecContext(ctx, `INSERT INTO raids
				(id, display_id, guild_id, planner_channel_id, creator_id, dungeon, status, created_at,
				 message_id, min_players, participants_posted, temp_role_id, temp_role_created)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
				r.ID, r.DisplayID, r.GuildID, r.PlannerChannelID, r.CreatorID, r.Dungeon, string(r.Status),
				r.CreatedAt, r.MessageID, r.MinPlayers, r.ParticipantsPosted, r.TempRoleID, r.TempRoleCreated); err != nil {
				return fmt.Errorf("persistence: insert raids: %w", err)
			}
		}
	case "raid_options":
		for _, o := range s.RaidOptions {
			if _, err := tx.ExecContext(ctx, `INSERT INTO raid_options (id, raid_id, kind, label)
				VALUES ($1,$2,$3,$4)`, o.ID, o.RaidID, string(o.Kind), o.Label); err != nil {
				return fmt.Errorf("persistence: insert raid_options: %w", err)
			}
		}
	case "raid_votes":
		for _, v := range s.RaidVotes {
			if _, err := tx.ExecContext(ctx, `INSERT INTO raid_votes (id, raid_id, kind, option_label, user_id)
				VALUES ($1,$2,$3,$4,$5)`, v.ID, v.RaidID, string(v.Kind), v.OptionLabel, v.UserID); err != nil {
				return fmt.Errorf("persistence: insert raid_votes: %w", err)
			}
		}
	case "raid_posted_slots":
		for _, p := range s.RaidPostedSlots {
			if _, err := tx.ExecContext(ctx, `INSERT INTO raid_posted_slots (id, raid_id, day_label, time_label, channel_id, message_id)
				VALUES ($1,$2,$3,$4,$5,$6)`, p.ID, p.RaidID, p.DayLabel, p.TimeLabel, p.ChannelID, p.MessageID); err != nil {
				return fmt.Errorf("persistence: insert raid_posted_slots: %w", err)
			}
		}
	case "raid_templates":
		for _, t := range s.RaidTemplates {
			if _, err := tx.ExecContext(ctx, `INSERT INTO raid_templates (id, guild_id, dungeon_id, template_name, template_data)
				VALUES ($1,$2,$3,$4,$5)`, t.ID, t.GuildID, t.DungeonID, t.TemplateName, t.TemplateData); err != nil {
				return fmt.Errorf("persistence: insert raid_templates: %w", err)
			}
		}
	case "raid_attendance":
		for _, a := range s.RaidAttendance {
			if _, err := tx.ExecContext(ctx, `INSERT INTO raid_attendance
				(id, guild_id, raid_display_id, dungeon, user_id, status, marked_by_user_id)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				a.ID, a.GuildID, a.RaidDisplayID, a.Dungeon, a.UserID, string(a.Status), a.MarkedByUserID); err != nil {
				return fmt.Errorf("persistence: insert raid_attendance: %w", err)
			}
		}
	case "user_levels":
		for _, u := range s.UserLevels {
			if _, err := tx.ExecContext(ctx, `INSERT INTO user_levels (guild_id, user_id, xp, level, username)
				VALUES ($1,$2,$3,$4,$5)`, u.GuildID, u.UserID, u.XP, u.Level, u.Username); err != nil {
				return fmt.Errorf("persistence: insert user_levels: %w", err)
			}
		}
	case "debug_mirror_cache":
		for _, c := range s.DebugCache {
			if _, err := tx.ExecContext(ctx, `INSERT INTO debug_mirror_cache
				(cache_key, kind, guild_id, raid_id, message_id, payload_hash)
				VALUES ($1,$2,$3,$4,$5,$6)`, c.CacheKey, c.Kind, c.GuildID, c.RaidID, c.MessageID, c.PayloadHash); err != nil {
				return fmt.Errorf("persistence: insert debug_mirror_cache: %w", err)
			}
		}
	default:
		return fmt.Errorf("persistence: unknown table %q", table)
	}
	return nil
}
