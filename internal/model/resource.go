package model

// Resource is a snapshot of a published data resource at scoring time.
// It carries only the fields the openness scorer reads; the catalog
// owns the full record.
type Resource struct {
	ID        string `json:"id"`
	DatasetID string `json:"dataset_id"`
	URL       string `json:"url"`
	// Format is the publisher's self-declared format string, e.g.
	// "CSV", ".xls", "Excel". Often wrong, which is why it is the
	// lowest-priority scoring signal.
	Format string `json:"format,omitempty"`
	// LicenseOpen reports whether the containing dataset's license is
	// an open license.
	LicenseOpen bool `json:"license_open"`
}

// Dataset groups resources under one license, mirroring the catalog's
// package concept.
type Dataset struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	LicenseOpen bool       `json:"license_open"`
	Resources   []Resource `json:"resources"`
}
