package models

import (
	"strings"
	"time"
)

// RawFragment is one discrete unit of rendered review markup, discovered during a
// single loading round. ID carries the source's review identifier when the markup
// exposes one; Index is the position in discovery order, assigned by the loader.
type RawFragment struct {
	ID    string `json:"id,omitempty"`
	HTML  string `json:"html"`
	Index int    `json:"index"`
}

// TagSet holds the structured tags a review carries, grouped by the label block
// they appeared under.
type TagSet struct {
	Services []string `json:"services,omitempty"`
	Positive []string `json:"positive,omitempty"`
	Negative []string `json:"negative,omitempty"`
	Price    []string `json:"price,omitempty"`
}

// Empty reports whether no tags were extracted at all.
func (t TagSet) Empty() bool {
	return len(t.Services) == 0 && len(t.Positive) == 0 && len(t.Negative) == 0 && len(t.Price) == 0
}

// Joined flattens all tag groups into a single comma-separated string for
// tabular export, preserving group order.
func (t TagSet) Joined() string {
	all := make([]string, 0, len(t.Services)+len(t.Positive)+len(t.Negative)+len(t.Price))
	all = append(all, t.Services...)
	all = append(all, t.Positive...)
	all = append(all, t.Negative...)
	all = append(all, t.Price...)
	return strings.Join(all, ", ")
}

// CandidateRecord is a review under construction: as many fields as were directly
// extractable from the fragment, before fallback recovery. A zero rating means the
// rating is absent; a zero Time means the timestamp could not be parsed.
//
// The originating fragment is retained so recovery strategies can re-inspect the
// markup without any external state.
type CandidateRecord struct {
	Fragment RawFragment `json:"-"`

	Reviewer       string    `json:"reviewer,omitempty"`
	Rating         int       `json:"rating,omitempty"`
	Text           string    `json:"text,omitempty"`
	TimeRaw        string    `json:"time_raw,omitempty"`
	Time           time.Time `json:"time,omitzero"`
	Images         []string  `json:"images,omitempty"`
	Tags           TagSet    `json:"tags,omitempty"`
	LikeCount      int       `json:"like_count,omitempty"`
	OwnerResponded bool      `json:"owner_responded,omitempty"`
}

// Provenance strategy names. "direct" marks a field that needed no recovery;
// the rest name the strategy that supplied the final value.
const (
	ProvenanceDirect        = "direct"
	ProvenanceSecondary     = "secondary-location"
	ProvenanceStructural    = "structural"
	ProvenanceNarrow        = "narrow-container"
	ProvenanceAlternate     = "alternate-encoding"
	ProvenanceUnrecoverable = "unrecoverable"
)

// Mandatory field names as they appear in provenance maps and trace entries.
const (
	FieldText   = "text"
	FieldRating = "rating"
)

// FinalizedRecord is a review after recovery and validity determination, ready
// for export. It is created once per candidate and never mutated afterwards.
type FinalizedRecord struct {
	CandidateRecord

	// Provenance maps each mandatory field to the strategy that supplied its
	// value, or "direct" when no recovery was needed.
	Provenance map[string]string `json:"provenance"`

	// DedupKey identifies the same review appearing twice within one run. It is
	// derived from reviewer, timestamp and a normalized text prefix, so the key
	// stays stable across runs for future cross-run deduplication.
	DedupKey string `json:"dedup_key"`

	// Valid is false only when both text and rating were unrecoverable.
	Valid bool `json:"valid"`
}

// Trace outcomes.
const (
	OutcomeDirect        = "direct"
	OutcomeRecovered     = "recovered"
	OutcomeUnrecoverable = "unrecoverable"
	OutcomeInvalid       = "invalid"
	OutcomeDuplicate     = "duplicate"
	OutcomeSkipped       = "skipped"
	OutcomePartialLoad   = "partial-load"
)

// ImageOutcome is the result of retrieving one image reference. Outcomes keep
// the input order so files map deterministically back to their record and
// position.
type ImageOutcome struct {
	URL      string `json:"url"`
	File     string `json:"file,omitempty"`
	Skipped  bool   `json:"skipped,omitempty"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// TraceEntry records one decision the engine made while processing a fragment.
type TraceEntry struct {
	FragmentIndex int    `json:"fragmentIndex"`
	Field         string `json:"fieldName,omitempty"`
	Outcome       string `json:"outcome"`
	Strategy      string `json:"strategy,omitempty"`
}

// RunTrace is the append-only ordered log of decisions for one run. It is
// written for debugging and never read back by the engine.
type RunTrace []TraceEntry
