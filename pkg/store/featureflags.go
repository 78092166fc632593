package store

// FeatureSettings is the typed view over GuildSettings.FeatureFlags. The
// packed encoding is a stable on-disk contract: bits 0..7 are a boolean flag
// byte (bit 0 = templates enabled, bit 1 = raid-calendar enabled), bits
// 8..23 hold message_xp_interval_seconds (0 = use the env default), bits
// 24..39 hold levelup_message_cooldown_seconds (0 = use the env default).
// TemplatesEnabled mirrors the dedicated GuildSettings.TemplatesEnabled
// column rather than living only in the packed bits, matching the original
// schema's redundant-but-authoritative column; SetFeatureSettings keeps both
// in sync.
type FeatureSettings struct {
	TemplatesEnabled    bool
	RaidCalendarEnabled bool
	MessageXPInterval   int
	LevelupCooldown     int
}

const (
	flagTemplatesEnabled    int64 = 1 << 0
	flagRaidCalendarEnabled int64 = 1 << 1

	messageXPIntervalShift = 8
	messageXPIntervalMask  = int64(0xFFFF)
	levelupCooldownShift   = 24
	levelupCooldownMask    = int64(0xFFFF)
)

// FeatureSettings unpacks GuildSettings.FeatureFlags into its typed view.
func (g *GuildSettings) FeatureSettings() FeatureSettings {
	return FeatureSettings{
		TemplatesEnabled:    g.TemplatesEnabled,
		RaidCalendarEnabled: g.FeatureFlags&flagRaidCalendarEnabled != 0,
		MessageXPInterval:   int((g.FeatureFlags >> messageXPIntervalShift) & messageXPIntervalMask),
		LevelupCooldown:     int((g.FeatureFlags >> levelupCooldownShift) & levelupCooldownMask),
	}
}

// SetFeatureSettings repacks the typed view back into FeatureFlags and the
// mirrored TemplatesEnabled column.
func (g *GuildSettings) SetFeatureSettings(fs FeatureSettings) {
	var packed int64
	if fs.TemplatesEnabled {
		packed |= flagTemplatesEnabled
	}
	if fs.RaidCalendarEnabled {
		packed |= flagRaidCalendarEnabled
	}
	packed |= (int64(fs.MessageXPInterval) & messageXPIntervalMask) << messageXPIntervalShift
	packed |= (int64(fs.LevelupCooldown) & levelupCooldownMask) << levelupCooldownShift
	g.FeatureFlags = packed
	g.TemplatesEnabled = fs.TemplatesEnabled
}
