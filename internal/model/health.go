package model

// Health is returned by the backend's /health probe.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
