// Package store implements the in-memory domain store (coordination engine
// component C1): typed tables keyed by surrogate or composite ids, secondary
// indexes, deterministic id allocation and single-pass cascade deletes.
//
// The store holds no lock of its own. Per the ownership rule in the data
// model, the Orchestrator is the sole caller and serialises every access
// under its own state mutex; Store methods are not safe for concurrent use
// on their own.
package store

import "time"

// OptionKind distinguishes a raid option/vote as a day choice or a time choice.
type OptionKind string

const (
	KindDay  OptionKind = "day"
	KindTime OptionKind = "time"
)

// RaidStatus is the lifecycle state of a Raid.
type RaidStatus string

const (
	RaidOpen      RaidStatus = "open"
	RaidFinalized RaidStatus = "finalized"
	RaidCanceled  RaidStatus = "canceled"
)

// AttendanceStatus is the mutable attendance marking for a RaidAttendance row.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendancePending AttendanceStatus = "pending"
)

// Dungeon is a lookup row seeded at bootstrap.
type Dungeon struct {
	ID        int
	Name      string
	ShortCode string
	IsActive  bool
	SortOrder int
}

// GuildSettings is per-tenant configuration, keyed by GuildID.
type GuildSettings struct {
	GuildID                uint64
	GuildName              string
	PlannerChannelID       *uint64
	ParticipantsChannelID  *uint64
	RaidlistChannelID      *uint64
	RaidlistMessageID      *uint64
	DefaultMinPlayers      int
	TemplatesEnabled       bool
	TemplateManagerRoleID  *uint64
	// FeatureFlags is the packed on-disk encoding described in SPEC_FULL.md
	// §4.6: bits 0..7 boolean flags, bits 8..23 message-xp interval seconds,
	// bits 24..39 levelup-cooldown seconds. Access it only via FeatureSettings.
	FeatureFlags int64
}

// Raid is a planning poll.
type Raid struct {
	ID                 uint64
	DisplayID          uint64
	GuildID            uint64
	PlannerChannelID   uint64
	CreatorID          uint64
	Dungeon            string
	Status             RaidStatus
	CreatedAt          time.Time
	MessageID          *uint64
	MinPlayers         int
	ParticipantsPosted bool
	TempRoleID         *uint64
	TempRoleCreated    bool
}

// RaidOption is one (raid, kind, label) day/time option.
type RaidOption struct {
	ID     uint64
	RaidID uint64
	Kind   OptionKind
	Label  string
}

// RaidVote is one (raid, kind, label, user) toggled vote.
type RaidVote struct {
	ID          uint64
	RaidID      uint64
	Kind        OptionKind
	OptionLabel string
	UserID      uint64
}

// RaidPostedSlot is the artefact record for a qualified (day,time) pair.
type RaidPostedSlot struct {
	ID        uint64
	RaidID    uint64
	DayLabel  string
	TimeLabel string
	ChannelID *uint64
	MessageID *uint64
}

// RaidTemplate is a saved raid-plan preset for the template_config command.
type RaidTemplate struct {
	ID           uint64
	GuildID      uint64
	DungeonID    int
	TemplateName string
	TemplateData string
}

// RaidAttendance is a snapshot row captured when a raid is finalised.
type RaidAttendance struct {
	ID             uint64
	GuildID        uint64
	RaidDisplayID  uint64
	Dungeon        string
	UserID         uint64
	Status         AttendanceStatus
	MarkedByUserID *uint64
}

// UserLevel tracks a user's XP and derived level within one guild.
type UserLevel struct {
	GuildID  uint64
	UserID   uint64
	XP       uint64
	Level    uint16
	Username string
}

// UserLevelKey is the composite key for the UserLevel table.
type UserLevelKey struct {
	GuildID uint64
	UserID  uint64
}

// DebugMirrorCache is the artefact-cache row used to implement C6's
// no-op-suppression and live-message-location semantics.
type DebugMirrorCache struct {
	CacheKey    string
	Kind        string
	GuildID     uint64
	RaidID      *uint64
	MessageID   uint64
	PayloadHash string
}

// ResolvedTarget is the outcome of resolving a remote-admin guild reference.
type ResolvedTarget struct {
	GuildID uint64
	Reason  ResolveFailure
}

// ResolveFailure classifies why ResolveRemoteTarget could not return a single guild id.
type ResolveFailure string

const (
	ResolveOK        ResolveFailure = ""
	ResolveMissing   ResolveFailure = "missing"
	ResolveAmbiguous ResolveFailure = "ambiguous"
	ResolveNotFound  ResolveFailure = "not_found"
)
