package dto

// StatsResponse reports per-action event counts for one window.
// Counts always carries both actions, zero-valued when idle.
type StatsResponse struct {
	Window string           `json:"window"`
	From   string           `json:"from,omitempty"`
	To     string           `json:"to,omitempty"`
	Counts map[string]int64 `json:"counts"`
}
