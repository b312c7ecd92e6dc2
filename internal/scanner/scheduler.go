// Package scanner schedules detection scans over an HTML tree: one scan at
// startup when detection is enabled, and debounced rescans whenever the tree
// mutates, so bursts of churn collapse into a single classifier pass.
package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/evanlambb/biaslens/internal/domscan"
	"github.com/evanlambb/biaslens/internal/logger"
)

// DefaultDebounce is the quiescence window applied to mutation bursts.
const DefaultDebounce = 500 * time.Millisecond

// Classifier produces flagged clauses for a unit of text. Implemented by the
// mlclient package; faked in tests.
type Classifier interface {
	DetectClauses(ctx context.Context, text string, threshold float64) ([]domscan.Clause, error)
}

// Options configures a Scheduler.
type Options struct {
	// Enabled controls whether scans run at all.
	Enabled bool
	// Threshold is the minimum confidence for a clause to be acted on.
	Threshold float64
	// AutoRemove switches from highlight mode to destructive removal.
	AutoRemove bool
	// Debounce is the quiescence window for mutation-triggered rescans.
	Debounce time.Duration
	// OnScanComplete, if set, is invoked after each completed scan with
	// the number of matches applied.
	OnScanComplete func(matches int)
}

// Scheduler coordinates scans of one document tree. All state transitions
// happen under a single mutex; scan work itself runs outside it so a slow
// classifier never blocks enable/disable toggles.
type Scheduler struct {
	logger     logger.Interface
	locator    *domscan.Locator
	classifier Classifier

	mu         sync.Mutex
	doc        *goquery.Document
	enabled    bool
	threshold  float64
	autoRemove bool
	debounce   time.Duration
	generation int
	timer      *time.Timer
	scanning   bool
	pending    bool
	ctx        context.Context

	onScanComplete func(matches int)
}

// NewScheduler creates a new Scheduler.
func NewScheduler(log logger.Interface, locator *domscan.Locator, classifier Classifier, opts Options) *Scheduler {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Scheduler{
		logger:     log,
		locator:    locator,
		classifier: classifier,
		enabled:    opts.Enabled,
		threshold:  opts.Threshold,
		autoRemove: opts.AutoRemove,
		debounce:   opts.Debounce,
		ctx:        context.Background(),

		onScanComplete: opts.OnScanComplete,
	}
}

// Start attaches the scheduler to a document and runs the initial scan if
// detection is enabled.
func (s *Scheduler) Start(ctx context.Context, doc *goquery.Document) {
	s.mu.Lock()
	s.ctx = ctx
	s.doc = doc
	enabled := s.enabled
	s.mu.Unlock()

	if enabled {
		s.Scan(ctx)
	}
}

// NotifyMutation records that the tree changed. Rescans are debounced: each
// notification resets the quiescence timer, and only the final one in a
// burst triggers a scan.
func (s *Scheduler) NotifyMutation() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.doc == nil {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.Scan(s.currentContext())
	})
}

// Scan runs one full candidate pass over the attached document. If a scan is
// already in flight the request is coalesced into a single follow-up scan.
// Per-element classifier failures are logged and skipped; they never stop
// the remaining candidates.
func (s *Scheduler) Scan(ctx context.Context) {
	s.mu.Lock()
	if !s.enabled || s.doc == nil {
		s.mu.Unlock()
		return
	}
	if s.scanning {
		s.pending = true
		s.mu.Unlock()
		return
	}
	s.scanning = true
	doc := s.doc
	generation := s.generation
	threshold := s.threshold
	mode := domscan.ModeHighlight
	if s.autoRemove {
		mode = domscan.ModeRemove
	}
	s.mu.Unlock()

	s.runScan(ctx, doc, generation, threshold, mode)

	s.mu.Lock()
	s.scanning = false
	rerun := s.pending
	s.pending = false
	s.mu.Unlock()

	if rerun {
		s.Scan(ctx)
	}
}

// runScan performs the candidate walk and per-element classification.
func (s *Scheduler) runScan(ctx context.Context, doc *goquery.Document, generation int, threshold float64, mode domscan.Mode) {
	candidates := s.locator.Candidates(doc)
	s.logger.Debug("Starting scan", "candidates", len(candidates), "mode", string(mode))

	total := 0
	for _, candidate := range candidates {
		if s.stale(generation) {
			s.logger.Debug("Discarding scan results, detection toggled off mid-scan")
			return
		}

		clauses, err := s.classifier.DetectClauses(ctx, candidate.Text, threshold)
		if err != nil {
			s.logger.Warn("Classifier request failed for element, continuing",
				"tag", candidate.Node.Data,
				"error", err)
			continue
		}

		// A response that arrives after detection was disabled is stale
		// and must not decorate the tree.
		if s.stale(generation) {
			s.logger.Debug("Discarding stale classifier response")
			return
		}

		actionable := clauses[:0]
		for _, clause := range clauses {
			if clause.Confidence >= threshold {
				actionable = append(actionable, clause)
			}
		}
		if len(actionable) == 0 {
			continue
		}

		matches := s.locator.Apply(candidate.Node, actionable, mode)
		total += len(matches)
	}

	s.logger.Info("Scan complete", "matches", total)
	if s.onScanComplete != nil {
		s.onScanComplete(total)
	}
}

// SetEnabled toggles detection. Disabling reverses every highlight
// decoration and scanned marker so a later re-enable starts from a cleanly
// re-scannable tree; text already deleted in removal mode stays deleted.
// In-flight scans are not cancelled, but their results are discarded via the
// generation check.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	if s.enabled == enabled {
		s.mu.Unlock()
		return
	}
	s.enabled = enabled
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	doc := s.doc
	ctx := s.ctx
	s.mu.Unlock()

	if !enabled {
		if doc != nil {
			s.locator.Unhighlight(doc)
		}
		s.logger.Info("Detection disabled, highlights cleared")
		return
	}

	s.logger.Info("Detection enabled")
	if doc != nil {
		s.Scan(ctx)
	}
}

// SetThreshold updates the confidence threshold used by future scans.
func (s *Scheduler) SetThreshold(threshold float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = threshold
}

// Enabled reports whether detection is currently on.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetDocument swaps the tree under management, for callers whose backing
// source was rewritten wholesale. The caller should follow with
// NotifyMutation to schedule a scan of the new tree.
func (s *Scheduler) SetDocument(doc *goquery.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
}

// Close stops any pending debounce timer.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// stale reports whether the generation the scan started under has been
// superseded by an enable/disable toggle.
func (s *Scheduler) stale(generation int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.enabled || s.generation != generation
}

// currentContext returns the context the scheduler was started with.
func (s *Scheduler) currentContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}
