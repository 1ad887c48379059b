package indexstore

import "time"

// Batch is one indexed results artifact.
type Batch struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	StorageKey string `gorm:"not null;uniqueIndex" json:"storage_key"`
	Timestamp  string `gorm:"index" json:"timestamp"`
	ConfigFile string `json:"config_file,omitempty"`

	// Denormalized host fields.
	Hostname string `json:"hostname,omitempty"`
	Platform string `json:"platform,omitempty"`
	Arch     string `json:"arch,omitempty"`

	// Denormalized summary counts.
	TotalBenchmarks int     `json:"total_benchmarks"`
	Successful      int     `json:"successful"`
	Failed          int     `json:"failed"`
	Skipped         int     `json:"skipped"`
	Timeout         int     `json:"timeout"`
	SuccessRate     float64 `json:"success_rate"`

	IndexedAt time.Time `json:"indexed_at"`
}
