package models

// DriverProfile describes a driver's public profile. Business key: Email.
type DriverProfile struct {
	Email          string
	Certifications []string
	Online         bool
	CreatedAt      int64
	SyncStatus
}
