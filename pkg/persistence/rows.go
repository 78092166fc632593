package persistence

import (
	"database/sql"

	"github.com/cuemby/dmwcoord/pkg/store"
)

func dungeonRows(s *store.Store) []map[string]any {
	out := make([]map[string]any, 0, len(s.Dungeons))
	for _, d := range s.Dungeons {
		out = append(out, map[string]any{
			"id": d.ID, "name": d.Name, "short_code": d.ShortCode,
			"is_active": d.IsActive, "sort_order": d.SortOrder,
		})
	}
	return out
}

func guildSettingsRows(s *store.Store) []map[string]any {
	out := make([]map[string]any, 0, len(s.Settings))
	for _, g := range s.Settings {
		out = append(out, map[string]any{
			"guild_id": g.GuildID, "guild_name": g.GuildName,
			"planner_channel_id": g.PlannerChannelID, "participants_channel_id": g.ParticipantsChannelID,
			"raidlist_channel_id": g.RaidlistChannelID, "raidlist_message_id": g.RaidlistMessageID,
			"default_min_players": g.DefaultMinPlayers, "templates_enabled": g.TemplatesEnabled,
			"template_manager_role_id": g.TemplateManagerRoleID, "feature_flags": g.FeatureFlags,
		})
	}
	return out
}

func raidRows(s *store.Store) []map[string]any {
	out := make([]map[string]any, 0, len(s.Raids))
	for _, r := range s.Raids {
		out = append(out, map[string]any{
			"id": r.ID, "display_id": r.DisplayID, "guild_id": r.GuildID,
			"planner_channel_id": r.PlannerChannelID, "creator_id": r.CreatorID,
			"dungeon": r.Dungeon, "status": string(r.Status), "created_at": r.CreatedAt,
			"message_id": r.MessageID, "min_players": r.MinPlayers,
			"participants_posted": r.ParticipantsPosted, "temp_role_id": r.TempRoleID,
			"temp_role_created": r.TempRoleCreated,
		})
	}
	return out
}

func raidOptionRows(s *store.Store) []map[string]any {
	out := make([]map[string]any, 0, len(s.RaidOptions))
	for _, o := range s.RaidOptions {
		out = append(out, map[string]any{
			"id": o.ID, "raid_id": o.RaidID, "kind": string(o.Kind), "label": o.Label,
		})
	}
	return out
}

func raidVoteRows(s *store.Store) []map[string]any {
	out := make([]map[string]any, 0, len(s.RaidVotes))
	for _, v := range s.RaidVotes {
		out = append(out, map[string]any{
			"id": v.ID, "raid_id": v.RaidID, "kind": string(v.Kind),
			"option_label": v.OptionLabel, "user_id": v.UserID,
		})
	}
	return out
}

func postedSlotRows(s *store.Store) []map[string]any {
	out := make([]map[string]any, 0, len(s.RaidPostedSlots))
	for _, p := range s.RaidPostedSlots {
		out = append(out, map[string]any{
			"id": p.ID, "raid_id": p.RaidID, "day_label": p.DayLabel, "time_label": p.TimeLabel,
			"channel_id": p.ChannelID, "message_id": p.MessageID,
		})
	}
	return out
}

func templateRows(s *store.Store) []map[string]any {
	out := make([]map[string]any, 0, len(s.RaidTemplates))
	for _, t := range s.RaidTemplates {
		out = append(out, map[string]any{
			"id": t.ID, "guild_id": t.GuildID, "dungeon_id": t.DungeonID,
			"template_name": t.TemplateName, "template_data": t.TemplateData,
		})
	}
	return out
}

func attendanceRows(s *store.Store) []map[string]any {
	out := make([]map[string]any, 0, len(s.RaidAttendance))
	for _, a := range s.RaidAttendance {
		out = append(out, map[string]any{
			"id": a.ID, "guild_id": a.GuildID, "raid_display_id": a.RaidDisplayID,
			"dungeon": a.Dungeon, "user_id": a.UserID, "status": string(a.Status),
			"marked_by_user_id": a.MarkedByUserID,
		})
	}
	return out
}

func userLevelRows(s *store.Store) []map[string]any {
	out := make([]map[string]any, 0, len(s.UserLevels))
	for _, u := range s.UserLevels {
		out = append(out, map[string]any{
			"guild_id": u.GuildID, "user_id": u.UserID, "xp": u.XP,
			"level": u.Level, "username": u.Username,
		})
	}
	return out
}

func debugCacheRows(s *store.Store) []map[string]any {
	out := make([]map[string]any, 0, len(s.DebugCache))
	for _, c := range s.DebugCache {
		out = append(out, map[string]any{
			"cache_key": c.CacheKey, "kind": c.Kind, "guild_id": c.GuildID,
			"raid_id": c.RaidID, "message_id": c.MessageID, "payload_hash": c.PayloadHash,
		})
	}
	return out
}

func nullableUint64(v sql.NullInt64) *uint64 {
	if !v.Valid || v.Int64 == 0 {
		return nil
	}
	u := uint64(v.Int64)
	return &u
}
