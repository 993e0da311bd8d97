// Package audit orchestrates the operator-triggered consistency sweep: load
// the corpus, run every check, apply the mechanical repairs, write the
// results back in batches and report what was found.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"notarium/internal/check"
	"notarium/internal/gateway"
	"notarium/internal/meta"
	"notarium/internal/note"
	"notarium/internal/repair"
	"notarium/internal/search"
	"notarium/internal/versions"

	"github.com/rs/zerolog"
)

// Service runs audit sweeps over one gateway.
type Service struct {
	gw        gateway.Gateway
	engine    *meta.Engine
	checker   *check.Checker
	wire      *check.WireValidator
	index     *search.Index
	archive   *versions.Archive
	user      string
	batchSize int
	log       zerolog.Logger
}

// New wires an audit service. index and archive may be nil; without an
// archive the sweep skips version retention entirely rather than pruning
// unarchived history.
func New(gw gateway.Gateway, engine *meta.Engine, checker *check.Checker, wire *check.WireValidator, index *search.Index, archive *versions.Archive, user string, batchSize int, log zerolog.Logger) *Service {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Service{
		gw:        gw,
		engine:    engine,
		checker:   checker,
		wire:      wire,
		index:     index,
		archive:   archive,
		user:      user,
		batchSize: batchSize,
		log:       log,
	}
}

// Report summarizes one sweep.
type Report struct {
	Scanned      int
	Findings     []check.Finding
	Repaired     int
	Pruned       int
	Unrepairable int
	WriteErrors  int
}

// Clean reports whether the corpus is consistent after the sweep: nothing
// left that a receipt could not fix and every write-back landed.
func (r *Report) Clean() bool {
	return r.Unrepairable == 0 && r.WriteErrors == 0
}

// Sweep audits the whole corpus, soft-deleted documents included, repairs
// what carries a receipt and persists the repairs in batches.
func (s *Service) Sweep(ctx context.Context) (*Report, error) {
	report := &Report{}

	stubs, err := s.listAll(ctx)
	if err != nil {
		return nil, err
	}

	// Every finding funnels through collect: a finding with a receipt
	// queues the repair, a receipt-less Error counts as unrepairable.
	perDoc := make(map[string][]repair.Receipt)
	collect := func(findings []check.Finding) {
		for _, f := range findings {
			report.Findings = append(report.Findings, f)
			if f.Receipt != nil {
				perDoc[f.SubjectID] = append(perDoc[f.SubjectID], *f.Receipt)
			} else if f.Severity == check.Error {
				report.Unrepairable++
			}
		}
	}

	// Load phase: raw schema validation first, typed decode second. A row
	// the schema rejects may still decode; one the decoder rejects is
	// reported and skipped.
	corpus := make(map[string]*note.Document, len(stubs))
	for _, stub := range stubs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Scanned++

		raw, err := s.gw.GetRaw(ctx, stub.ID)
		if err != nil {
			collect([]check.Finding{{Severity: check.Error, SubjectID: stub.ID, Message: fmt.Sprintf("fetch raw: %v", err)}})
			continue
		}
		collect(s.wire.Validate(stub.ID, raw))

		d, err := s.gw.Get(ctx, stub.ID, gateway.GetOptions{IncludeConflicts: true})
		if err != nil {
			collect([]check.Finding{{Severity: check.Error, SubjectID: stub.ID, Message: fmt.Sprintf("decode: %v", err)}})
			continue
		}
		d.Stub = false
		corpus[d.ID] = d

		if len(d.Conflicts) > 0 {
			collect([]check.Finding{{Severity: check.Warning, SubjectID: d.ID,
				Message: fmt.Sprintf("%d unresolved revision conflicts", len(d.Conflicts))}})
		}
	}

	// Check phase.
	for _, d := range corpus {
		collect(s.checker.Structural(d))
		findings, err := s.checker.Metadata(d)
		if err != nil {
			return nil, fmt.Errorf("metadata check %s: %w", d.ID, err)
		}
		collect(findings)
	}
	collect(check.TreeRoots(corpus))
	collect(check.References(corpus))

	// Repair phase.
	var dirty []*note.Document
	dirtySet := make(map[string]bool)
	for id, receipts := range perDoc {
		d, ok := corpus[id]
		if !ok {
			continue
		}
		if err := s.repairOne(d, receipts); err != nil {
			return nil, fmt.Errorf("repair %s: %w", id, err)
		}
		dirty = append(dirty, d)
		dirtySet[id] = true
	}

	// Retention phase: decay version history, archiving every pruned
	// snapshot first. Skipped entirely when no archive is configured.
	if s.archive != nil {
		now := note.Now()
		for _, d := range corpus {
			removed, err := versions.Prune(d, now, s.archive, s.user)
			if err != nil {
				s.log.Warn().Str("doc", d.ID).Err(err).Msg("version prune failed, history kept")
				continue
			}
			if len(removed) == 0 {
				continue
			}
			report.Pruned += len(removed)
			if !dirtySet[d.ID] {
				dirty = append(dirty, d)
				dirtySet[d.ID] = true
			}
		}
	}

	s.writeBack(ctx, dirty, report)

	s.log.Info().
		Int("scanned", report.Scanned).
		Int("findings", len(report.Findings)).
		Int("repaired", report.Repaired).
		Int("pruned", report.Pruned).
		Int("unrepairable", report.Unrepairable).
		Int("write_errors", report.WriteErrors).
		Msg("audit sweep complete")
	return report, nil
}

// repairOne applies the receipts, records the repair in the change log and
// re-derives metadata, in that order: repairing structure changes what the
// metadata should be, and the appended event changes the log size.
func (s *Service) repairOne(d *note.Document, receipts []repair.Receipt) error {
	if err := repair.Apply(d, receipts); err != nil {
		return err
	}
	applied := make([]string, len(receipts))
	for i, r := range receipts {
		applied[i] = r.String()
	}
	data, err := json.Marshal(map[string]any{"receipts": applied})
	if err != nil {
		return err
	}
	if err := note.AppendChange(d, s.user, note.ChangeRepaired, data); err != nil {
		return err
	}
	return s.engine.Recompute(d)
}

func (s *Service) writeBack(ctx context.Context, dirty []*note.Document, report *Report) {
	for start := 0; start < len(dirty); start += s.batchSize {
		end := min(start+s.batchSize, len(dirty))
		batch := dirty[start:end]
		for _, res := range s.gw.BulkPut(ctx, batch) {
			if res.Err != nil {
				report.WriteErrors++
				event := s.log.Warn().Str("doc", res.ID).Err(res.Err)
				if errors.Is(res.Err, note.ErrConflict) {
					event.Msg("repair write-back lost to a concurrent write, will be re-audited")
				} else {
					event.Msg("repair write-back failed")
				}
				continue
			}
			report.Repaired++
		}
	}
	for _, d := range dirty {
		s.index.IndexNote(d)
	}
}

func (s *Service) listAll(ctx context.Context) ([]*note.Document, error) {
	live, err := s.gw.QueryView(ctx, gateway.ViewTOC, gateway.ViewOptions{})
	if err != nil {
		return nil, fmt.Errorf("list live documents: %w", err)
	}
	trash, err := s.gw.QueryView(ctx, gateway.ViewDeleted, gateway.ViewOptions{})
	if err != nil {
		return nil, fmt.Errorf("list deleted documents: %w", err)
	}
	return append(live, trash...), nil
}
