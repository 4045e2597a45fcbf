package model

import "time"

// ServiceLevel mirrors the remote service's account tiers; account limits
// are keyed off it.
type ServiceLevel string

const (
	ServiceLevelBasic    ServiceLevel = "basic"
	ServiceLevelPlus     ServiceLevel = "plus"
	ServiceLevelPremium  ServiceLevel = "premium"
	ServiceLevelBusiness ServiceLevel = "business"
)

// User is the authenticated account owning the session. Fetched once per
// session (spec.md §3) and persisted via LocalStoreGateway when the sync is
// client-driven.
type User struct {
	ID           int32
	Username     string
	Email        string
	ServiceLevel ServiceLevel
	Created      time.Time
	Updated      time.Time
}

// AccountLimits holds per-service-level quotas. Cached in the configuration
// store for 30 days, keyed by user id, and refetched once stale.
type AccountLimits struct {
	UserID                 int32
	UploadLimit            int64
	NoteSizeMax            int64
	ResourceSizeMax        int64
	NoteTagCountMax        int32
	NotebookCountMax       int32
	TagCountMax            int32
	SavedSearchCountMax    int32
	NoteResourceCountMax   int32
	CachedAt               time.Time
}

// AccountLimitsTTL is how long a cached AccountLimits remains valid before
// it must be refetched (spec.md §3, §8: "strictly older than 30 days
// triggers refetch; strictly within 30 days uses cached copy").
const AccountLimitsTTL = 30 * 24 * time.Hour

// Stale reports whether the cached limits are old enough to need a refetch,
// evaluated against now.
func (a AccountLimits) Stale(now time.Time) bool {
	return now.Sub(a.CachedAt) > AccountLimitsTTL
}
