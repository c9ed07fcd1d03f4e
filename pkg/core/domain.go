// Package core holds the feedback domain: decisions, records, the storage
// and transport contracts, and the Coordinator that ties them together.
package core

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// Decision is the user's binary judgement on a subject.
type Decision string

const (
	Accepted Decision = "accept"
	Rejected Decision = "reject"
)

// Valid reports whether d is one of the known decisions.
func (d Decision) Valid() bool {
	return d == Accepted || d == Rejected
}

// String implements fmt.Stringer.
func (d Decision) String() string {
	return string(d)
}

// ParseDecision accepts the wire values ("accept", "reject") and their
// past-tense forms, case-insensitively.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept", "accepted":
		return Accepted, nil
	case "reject", "rejected":
		return Rejected, nil
	}
	return "", fmt.Errorf("%w: unknown decision %q", ErrInvalidArgument, s)
}

// Metadata is the open bag of contextual data attached to a submission.
type Metadata map[string]any

// Merge returns a new Metadata with the keys of base overlaid by the keys of
// each overlay in order. Later keys win.
func Merge(base Metadata, overlays ...Metadata) Metadata {
	out := make(Metadata, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, o := range overlays {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

// Record is a single piece of feedback about a subject.
type Record struct {
	SubjectID   string    `json:"suggestion_id"`
	Decision    Decision  `json:"feedback_type"`
	SubjectKind string    `json:"suggestion_type"`
	Metadata    Metadata  `json:"metadata,omitempty"`
	SubmittedAt time.Time `json:"timestamp"`
}

// Origin tells whether an acknowledgment came from the remote service or was
// synthesized locally after a transport failure.
type Origin string

const (
	OriginRemote Origin = "remote"
	OriginLocal  Origin = "local"
)

// Ack is the acknowledgment returned for a submission.
type Ack struct {
	Success   bool     `json:"success"`
	SubjectID string   `json:"suggestion_id"`
	Decision  Decision `json:"feedback_type"`
	Message   string   `json:"message,omitempty"`
	Origin    Origin   `json:"-"`
	// Replayed is set when the ack was served from the submission cache
	// without a network call.
	Replayed bool `json:"-"`
}

// Degraded reports whether the ack was produced by the local fallback.
func (a Ack) Degraded() bool {
	return a.Origin == OriginLocal
}

// Stats summarizes the decisions held by a Coordinator.
type Stats struct {
	Total          int     `json:"total"`
	Accepted       int     `json:"accepted"`
	Rejected       int     `json:"rejected"`
	AcceptanceRate float64 `json:"acceptanceRate"`
}

// RemoteStats is the aggregate reported by the feedback service.
type RemoteStats struct {
	TotalFeedback  int     `json:"total_feedback"`
	Accepted       int     `json:"accepted"`
	Rejected       int     `json:"rejected"`
	AcceptanceRate float64 `json:"acceptance_rate"`
}

// AcceptanceRate returns accepted/total as a percentage rounded to one
// decimal place, or 0 when total is 0.
func AcceptanceRate(accepted, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(accepted)/float64(total)*1000) / 10
}

// EventType represents the type of change observed in a store.
type EventType string

const (
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change to a stored key made outside this process.
type Event struct {
	Type      EventType
	Key       string
	Timestamp int64 // Unix timestamp
}

// String implements fmt.Stringer.
func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Type, e.Key)
}

// StorageKeyPrefix prefixes every namespace key in a Store.
const StorageKeyPrefix = "ai_feedback_"

var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateNamespace rejects empty names and names that cannot be used as a
// storage key on every adapter.
func ValidateNamespace(namespace string) error {
	if namespace == "" {
		return fmt.Errorf("%w: namespace cannot be empty", ErrInvalidArgument)
	}
	if !namespacePattern.MatchString(namespace) || namespace == "." || namespace == ".." {
		return fmt.Errorf("%w: invalid namespace %q", ErrInvalidArgument, namespace)
	}
	return nil
}

// StorageKey maps a namespace to its key in a Store.
func StorageKey(namespace string) string {
	return StorageKeyPrefix + namespace
}

// NamespaceFromKey is the inverse of StorageKey.
func NamespaceFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, StorageKeyPrefix) || len(key) == len(StorageKeyPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, StorageKeyPrefix), true
}
