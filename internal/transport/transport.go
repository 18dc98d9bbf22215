// SPDX-License-Identifier: MIT
/*
Package transport delivers progress events from long-running jobs
(batch conversion, long synthesis) to interested listeners: the
structured log, connected WebSocket clients, or a UDP endpoint.
*/
package transport

// Event is one progress update from a long-running job.
type Event struct {
	Job      string  `json:"job"`
	Stage    string  `json:"stage"`
	File     string  `json:"file,omitempty"`
	Index    int     `json:"index"`
	Total    int     `json:"total"`
	Fraction float64 `json:"fraction"`
	Error    string  `json:"error,omitempty"`
}

// Transport defines a generic interface for sending progress events.
// Implementations must be safe for concurrent use. Send must never
// block a processing pipeline; slow or absent listeners lose events.
type Transport interface {
	Send(data any) error
	Close() error
}
