// internal/engine/ledger.go
package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"

	"github.com/echo-works/reviewcrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// IngestResult reports what the ledger did with a record.
type IngestResult string

const (
	IngestAccepted         IngestResult = "accepted"
	IngestDuplicateDropped IngestResult = "duplicate-dropped"
)

// dedupPrefixRunes bounds the normalized text prefix that feeds the dedup key.
const dedupPrefixRunes = 64

// NewFinalizedRecord seals a resolved candidate: it derives the stable dedup
// key and the validity flag from the provenance map. The result is never
// mutated afterwards.
func NewFinalizedRecord(cand models.CandidateRecord, prov map[string]string) models.FinalizedRecord {
	valid := prov[models.FieldText] != models.ProvenanceUnrecoverable ||
		prov[models.FieldRating] != models.ProvenanceUnrecoverable
	return models.FinalizedRecord{
		CandidateRecord: cand,
		Provenance:      prov,
		DedupKey:        DedupKey(cand),
		Valid:           valid,
	}
}

// DedupKey derives the stable per-review identifier from reviewer, timestamp
// and a normalized text prefix. The derivation is versioned by construction:
// the same review yields the same key across runs, which is the extension
// point for persisting keys externally later.
func DedupKey(cand models.CandidateRecord) string {
	prefix := []rune(normalizeText(cand.Text))
	if len(prefix) > dedupPrefixRunes {
		prefix = prefix[:dedupPrefixRunes]
	}
	h := sha256.New()
	h.Write([]byte(normalizeText(cand.Reviewer)))
	h.Write([]byte{0})
	h.Write([]byte(normalizeText(cand.TimeRaw)))
	h.Write([]byte{0})
	h.Write([]byte(string(prefix)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Ledger accumulates finalized records for one run, enforces per-run
// dedup-key uniqueness, and owns the run trace. Ingest is the sole mutation
// point and is safe for concurrent use.
type Ledger struct {
	mu        sync.Mutex
	seen      map[string]bool
	records   []models.FinalizedRecord
	trace     models.RunTrace
	finalized bool

	// finalize snapshot, so repeated calls observe the same result
	finalRecords []models.FinalizedRecord
	finalTrace   models.RunTrace
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]bool)}
}

// Ingest adds a finalized record to the run. A record whose dedup key was
// already seen is dropped (first occurrence wins) and the drop is traced.
// Ingest after Finalize is ignored.
func (l *Ledger) Ingest(rec models.FinalizedRecord) IngestResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.finalized {
		return IngestDuplicateDropped
	}
	if l.seen[rec.DedupKey] {
		l.trace = append(l.trace, models.TraceEntry{
			FragmentIndex: rec.Fragment.Index,
			Outcome:       models.OutcomeDuplicate,
		})
		log.Debug().Str("dedup_key", rec.DedupKey).Int("index", rec.Fragment.Index).Msg("Duplicate record dropped")
		return IngestDuplicateDropped
	}
	l.seen[rec.DedupKey] = true
	l.records = append(l.records, rec)
	return IngestAccepted
}

// Trace appends a decision entry to the run trace.
func (l *Ledger) Trace(e models.TraceEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.finalized {
		return
	}
	l.trace = append(l.trace, e)
}

// Finalize applies ordering and validity filtering and returns the exported
// dataset plus the full trace. The first call seals the ledger; subsequent
// calls return the same snapshot, so finalize after cancellation is always
// safe.
func (l *Ledger) Finalize() ([]models.FinalizedRecord, models.RunTrace) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.finalized {
		return l.finalRecords, l.finalTrace
	}
	l.finalized = true

	sort.SliceStable(l.records, func(i, j int) bool {
		return l.records[i].Fragment.Index < l.records[j].Fragment.Index
	})

	valid := make([]models.FinalizedRecord, 0, len(l.records))
	for _, rec := range l.records {
		if rec.Valid {
			valid = append(valid, rec)
		}
	}

	l.finalRecords = valid
	l.finalTrace = append(models.RunTrace(nil), l.trace...)

	log.Debug().
		Int("ingested", len(l.records)).
		Int("valid", len(valid)).
		Int("trace_entries", len(l.finalTrace)).
		Msg("Ledger finalized")

	return l.finalRecords, l.finalTrace
}
