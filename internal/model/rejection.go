package model

// Rejection records a request that did not commit.
type Rejection struct {
	Line   uint64    `json:"line"`
	Op     Operation `json:"op"`
	Caller string    `json:"caller"`
	Seed   uint64    `json:"seed"`
	Code   uint32    `json:"code,omitempty"`
	Error  string    `json:"error"`
}
