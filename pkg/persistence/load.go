package persistence

import (
	"context"
	"database/sql"

	"github.com/cuemby/dmwcoord/pkg/store"
)

func (e *Engine) loadDungeons(ctx context.Context, s *store.Store) error {
	rows, err := e.db.QueryContext(ctx, `SELECT id, name, short_code, is_active, sort_order FROM dungeons`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, sortOrder int
		var name, shortCode string
		var isActive bool
		if err := rows.Scan(&id, &name, &shortCode, &isActive, &sortOrder); err != nil {
			return err
		}
		s.Dungeons[id] = &store.Dungeon{ID: id, Name: name, ShortCode: shortCode, IsActive: isActive, SortOrder: sortOrder}
	}
	return rows.Err()
}

func (e *Engine) loadGuildSettings(ctx context.Context, s *store.Store) error {
	rows, err := e.db.QueryContext(ctx, `SELECT guild_id, guild_name, planner_channel_id, participants_channel_id,
		raidlist_channel_id, raidlist_message_id, default_min_players, templates_enabled,
		template_manager_role_id, feature_flags FROM guild_settings`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var guildID uint64
		var guildName string
		var planner, participants, raidlist, raidlistMsg, templateRole sql.NullInt64
		var defaultMinPlayers int
		var templatesEnabled bool
		var featureFlags int64
		if err := rows.Scan(&guildID, &guildName, &planner, &participants, &raidlist, &raidlistMsg,
			&defaultMinPlayers, &templatesEnabled, &templateRole, &featureFlags); err != nil {
			return err
		}
		s.Settings[guildID] = &store.GuildSettings{
			GuildID: guildID, GuildName: guildName,
			PlannerChannelID: nullableUint64(planner), ParticipantsChannelID: nullableUint64(participants),
			RaidlistChannelID: nullableUint64(raidlist), RaidlistMessageID: nullableUint64(raidlistMsg),
			DefaultMinPlayers: defaultMinPlayers, TemplatesEnabled: templatesEnabled,
			TemplateManagerRoleID: nullableUint64(templateRole), FeatureFlags: featureFlags,
		}
	}
	return rows.Err()
}

func (e *Engine) loadRaids(ctx context.Context, s *store.Store) error {
	rows, err := e.db.QueryContext(ctx, `SELECT id, display_id, guild_id, planner_channel_id, creator_id, dungeon,
		status, created_at, message_id, min_players, participants_posted, temp_role_id, temp_role_created FROM raids`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r store.Raid
		var status string
		var messageID, tempRoleID sql.NullInt64
		if err := rows.Scan(&r.ID, &r.DisplayID, &r.GuildID, &r.PlannerChannelID, &r.CreatorID, &r.Dungeon,
			&status, &r.CreatedAt, &messageID, &r.MinPlayers, &r.ParticipantsPosted, &tempRoleID, &r.TempRoleCreated); err != nil {
			return err
		}
		r.Status = store.RaidStatus(status)
		r.MessageID = nullableUint64(messageID)
		r.TempRoleID = nullableUint64(tempRoleID)
		row := r
		s.Raids[row.ID] = &row
	}
	return rows.Err()
}

func (e *Engine) loadRaidOptions(ctx context.Context, s *store.Store) error {
	rows, err := e.db.QueryContext(ctx, `SELECT id, raid_id, kind, label FROM raid_options`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var o store.RaidOption
		var kind string
		if err := rows.Scan(&o.ID, &o.RaidID, &kind, &o.Label); err != nil {
			return err
		}
		o.Kind = store.OptionKind(kind)
		row := o
		s.RaidOptions[row.ID] = &row
	}
	return rows.Err()
}

func (e *Engine) loadRaidVotes(ctx context.Context, s *store.Store) error {
	rows, err := e.db.QueryContext(ctx, `SELECT id, raid_id, kind, option_label, user_id FROM raid_votes`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var v store.RaidVote
		var kind string
		if err := rows.Scan(&v.ID, &v.RaidID, &kind, &v.OptionLabel, &v.UserID); err != nil {
			return err
		}
		v.Kind = store.OptionKind(kind)
		row := v
		s.RaidVotes[row.ID] = &row
	}
	return rows.Err()
}

func (e *Engine) loadPostedSlots(ctx context.Context, s *store.Store) error {
	rows, err := e.db.QueryContext(ctx, `SELECT id, raid_id, day_label, time_label, channel_id, message_id FROM raid_posted_slots`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p store.RaidPostedSlot
		var channelID, messageID sql.NullInt64
		if err := rows.Scan(&p.ID, &p.RaidID, &p.DayLabel, &p.TimeLabel, &channelID, &messageID); err != nil {
			return err
		}
		p.ChannelID = nullableUint64(channelID)
		p.MessageID = nullableUint64(messageID)
		row := p
		s.RaidPostedSlots[row.ID] = &row
	}
	return rows.Err()
}

func (e *Engine) loadTemplates(ctx context.Context, s *store.Store) error {
	rows, err := e.db.QueryContext(ctx, `SELECT id, guild_id, dungeon_id, template_name, template_data FROM raid_templates`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var t store.RaidTemplate
		if err := rows.Scan(&t.ID, &t.GuildID, &t.DungeonID, &t.TemplateName, &t.TemplateData); err != nil {
			return err
		}
		row := t
		s.RaidTemplates[row.ID] = &row
	}
	return rows.Err()
}

func (e *Engine) loadAttendance(ctx context.Context, s *store.Store) error {
	rows, err := e.db.QueryContext(ctx, `SELECT id, guild_id, raid_display_id, dungeon, user_id, status,
		marked_by_user_id FROM raid_attendance`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a store.RaidAttendance
		var status string
		var markedBy sql.NullInt64
		if err := rows.Scan(&a.ID, &a.GuildID, &a.RaidDisplayID, &a.Dungeon, &a.UserID, &status, &markedBy); err != nil {
			return err
		}
		a.Status = store.AttendanceStatus(status)
		a.MarkedByUserID = nullableUint64(markedBy)
		row := a
		s.RaidAttendance[row.ID] = &row
	}
	return rows.Err()
}

func (e *Engine) loadUserLevels(ctx context.Context, s *store.Store) error {
	rows, err := e.db.QueryContext(ctx, `SELECT guild_id, user_id, xp, level, username FROM user_levels`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var u store.UserLevel
		if err := rows.Scan(&u.GuildID, &u.UserID, &u.XP, &u.Level, &u.Username); err != nil {
			return err
		}
		row := u
		s.UserLevels[store.UserLevelKey{GuildID: row.GuildID, UserID: row.UserID}] = &row
	}
	return rows.Err()
}

func (e *Engine) loadDebugCache(ctx context.Context, s *store.Store) error {
	rows, err := e.db.QueryContext(ctx, `SELECT cache_key, kind, guild_id, raid_id, message_id, payload_hash FROM debug_mirror_cache`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var c store.DebugMirrorCache
		var raidID sql.NullInt64
		if err := rows.Scan(&c.CacheKey, &c.Kind, &c.GuildID, &raidID, &c.MessageID, &c.PayloadHash); err != nil {
			return err
		}
		c.RaidID = nullableUint64(raidID)
		row := c
		s.DebugCache[row.CacheKey] = &row
	}
	return rows.Err()
}
