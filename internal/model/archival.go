package model

import "time"

// ArchivalStatus values mirror the archiver collaborator's status
// vocabulary. Only the ones the scorer branches on are named here.
type ArchivalStatus string

const (
	ArchivalStatusChoseNotToDownload ArchivalStatus = "Chose not to download"
	ArchivalStatusDownloadFailure    ArchivalStatus = "Download failure"
	ArchivalStatusSystemError        ArchivalStatus = "System error during archival"
)

// Archival holds link-health and download-history facts for a
// resource, produced by the external archiver. Read-only to this
// module.
type Archival struct {
	ResourceID string `json:"resource_id"`
	// IsBroken is nil when the archiver has not yet determined link
	// health (e.g. a system error before any verdict).
	IsBroken      *bool          `json:"is_broken"`
	CacheFilepath string         `json:"cache_filepath,omitempty"`
	CacheURL      string         `json:"cache_url,omitempty"`
	Status        ArchivalStatus `json:"status,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Updated       *time.Time     `json:"updated,omitempty"`
	LastSuccess   *time.Time     `json:"last_success,omitempty"`
	FirstFailure  *time.Time     `json:"first_failure,omitempty"`
	FailureCount  int            `json:"failure_count"`
}

// Broken reports whether the archiver has positively marked the link
// as broken.
func (a *Archival) Broken() bool {
	return a != nil && a.IsBroken != nil && *a.IsBroken
}
