package indexstore

import "encoding/json"

// Run is one (benchmark, language) result inside an indexed batch.
type Run struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	BatchID       uint    `gorm:"index;not null" json:"batch_id"`
	BenchmarkID   string  `gorm:"index;not null" json:"benchmark_id"`
	BenchmarkName string  `json:"benchmark_name,omitempty"`
	Language      string  `gorm:"index;not null" json:"language"`
	ProgramType   string  `json:"program_type,omitempty"`
	DataMechanism string  `json:"data_mechanism,omitempty"`
	Duration      float64 `json:"duration"`
	Timestamp     string  `json:"timestamp,omitempty"`
	Status        string  `gorm:"index" json:"status"`

	// Metrics serialized as JSON.
	MetricsJSON string `gorm:"type:text" json:"-"`

	Errors   string `json:"errors,omitempty"`
	Warnings string `json:"warnings,omitempty"`
}

// MetricsMap decodes the stored metrics JSON. Invalid or empty text
// yields an empty map.
func (r *Run) MetricsMap() map[string]float64 {
	m := make(map[string]float64)

	if r.MetricsJSON != "" {
		_ = json.Unmarshal([]byte(r.MetricsJSON), &m)
	}

	return m
}

// MarshalJSON inlines the decoded metrics so API responses carry them
// as an object rather than as an encoded string.
func (r *Run) MarshalJSON() ([]byte, error) {
	type alias Run

	return json.Marshal(struct {
		*alias
		Metrics map[string]float64 `json:"metrics"`
	}{
		alias:   (*alias)(r),
		Metrics: r.MetricsMap(),
	})
}
