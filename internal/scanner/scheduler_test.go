package scanner_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanlambb/biaslens/internal/domscan"
	"github.com/evanlambb/biaslens/internal/logger"
	"github.com/evanlambb/biaslens/internal/scanner"
)

// fakeClassifier scripts DetectClauses responses and counts calls.
type fakeClassifier struct {
	mu     sync.Mutex
	calls  int
	detect func(text string) ([]domscan.Clause, error)
}

func (f *fakeClassifier) DetectClauses(_ context.Context, text string, _ float64) ([]domscan.Clause, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.detect == nil {
		return nil, nil
	}
	return f.detect(text)
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func parseHTML(t *testing.T, raw string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	require.NoError(t, err)
	return doc
}

func markCount(doc *goquery.Document) int {
	return doc.Find("mark." + domscan.MarkClass).Length()
}

func newScheduler(classifier scanner.Classifier, opts scanner.Options) *scanner.Scheduler {
	locator := domscan.NewLocator(logger.NewNoOp(), 5)
	return scanner.NewScheduler(logger.NewNoOp(), locator, classifier, opts)
}

func TestStartRunsInitialScanWhenEnabled(t *testing.T) {
	t.Parallel()

	doc := parseHTML(t, `<p>they are all so dumb about this</p>`)
	classifier := &fakeClassifier{
		detect: func(string) ([]domscan.Clause, error) {
			return []domscan.Clause{{Text: "dumb", Confidence: 0.9}}, nil
		},
	}

	var completed int
	sched := newScheduler(classifier, scanner.Options{
		Enabled:        true,
		Threshold:      0.5,
		OnScanComplete: func(matches int) { completed = matches },
	})
	defer sched.Close()

	sched.Start(context.Background(), doc)

	assert.Equal(t, 1, markCount(doc))
	assert.Equal(t, 1, completed)
}

func TestStartSkipsScanWhenDisabled(t *testing.T) {
	t.Parallel()

	doc := parseHTML(t, `<p>they are all so dumb about this</p>`)
	classifier := &fakeClassifier{}

	sched := newScheduler(classifier, scanner.Options{Enabled: false, Threshold: 0.5})
	defer sched.Close()

	sched.Start(context.Background(), doc)

	assert.Zero(t, classifier.callCount())
	assert.Zero(t, markCount(doc))
}

func TestNotifyMutationDebouncesBursts(t *testing.T) {
	t.Parallel()

	doc := parseHTML(t, `<p>a perfectly neutral sentence here</p>`)
	classifier := &fakeClassifier{}

	var mu sync.Mutex
	scans := 0

	sched := newScheduler(classifier, scanner.Options{
		Enabled:   true,
		Threshold: 0.5,
		Debounce:  50 * time.Millisecond,
		OnScanComplete: func(int) {
			mu.Lock()
			scans++
			mu.Unlock()
		},
	})
	defer sched.Close()

	sched.Start(context.Background(), doc)

	for range 5 {
		sched.NotifyMutation()
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, scans, "initial scan plus one debounced rescan")
}

func TestThresholdFiltersWeakClauses(t *testing.T) {
	t.Parallel()

	doc := parseHTML(t, `<p>half of this is dumb and half is fine</p>`)
	classifier := &fakeClassifier{
		detect: func(string) ([]domscan.Clause, error) {
			return []domscan.Clause{
				{Text: "dumb", Confidence: 0.4},
				{Text: "fine", Confidence: 0.9},
			}, nil
		},
	}

	sched := newScheduler(classifier, scanner.Options{Enabled: true, Threshold: 0.7})
	defer sched.Close()

	sched.Start(context.Background(), doc)

	require.Equal(t, 1, markCount(doc))
	assert.Equal(t, "fine", doc.Find("mark."+domscan.MarkClass).Text())
}

func TestClassifierFailureSkipsElementOnly(t *testing.T) {
	t.Parallel()

	doc := parseHTML(t, `
		<p>the first paragraph is dumb enough</p>
		<p>the second paragraph is dumb enough</p>`)

	classifier := &fakeClassifier{}
	classifier.detect = func(text string) ([]domscan.Clause, error) {
		if strings.Contains(text, "first") {
			return nil, errors.New("model overloaded")
		}
		return []domscan.Clause{{Text: "dumb", Confidence: 0.9}}, nil
	}

	sched := newScheduler(classifier, scanner.Options{Enabled: true, Threshold: 0.5})
	defer sched.Close()

	sched.Start(context.Background(), doc)

	assert.Equal(t, 2, classifier.callCount())
	assert.Equal(t, 1, markCount(doc))
}

func TestDisableClearsHighlights(t *testing.T) {
	t.Parallel()

	doc := parseHTML(t, `<p>they are all so dumb about this</p>`)
	classifier := &fakeClassifier{
		detect: func(string) ([]domscan.Clause, error) {
			return []domscan.Clause{{Text: "dumb", Confidence: 0.9}}, nil
		},
	}

	sched := newScheduler(classifier, scanner.Options{Enabled: true, Threshold: 0.5})
	defer sched.Close()

	sched.Start(context.Background(), doc)
	require.Equal(t, 1, markCount(doc))

	sched.SetEnabled(false)

	assert.False(t, sched.Enabled())
	assert.Zero(t, markCount(doc))
	assert.Zero(t, doc.Find("["+domscan.AttrScanned+"]").Length())
}

func TestReenableRescans(t *testing.T) {
	t.Parallel()

	doc := parseHTML(t, `<p>they are all so dumb about this</p>`)
	classifier := &fakeClassifier{
		detect: func(string) ([]domscan.Clause, error) {
			return []domscan.Clause{{Text: "dumb", Confidence: 0.9}}, nil
		},
	}

	sched := newScheduler(classifier, scanner.Options{Enabled: true, Threshold: 0.5})
	defer sched.Close()

	sched.Start(context.Background(), doc)
	sched.SetEnabled(false)
	require.Zero(t, markCount(doc))

	sched.SetEnabled(true)
	assert.True(t, sched.Enabled())
	assert.Equal(t, 1, markCount(doc))
}

func TestStaleResponseDiscardedAfterDisable(t *testing.T) {
	t.Parallel()

	doc := parseHTML(t, `<p>they are all so dumb about this</p>`)

	inFlight := make(chan struct{})
	release := make(chan struct{})

	classifier := &fakeClassifier{
		detect: func(string) ([]domscan.Clause, error) {
			close(inFlight)
			<-release
			return []domscan.Clause{{Text: "dumb", Confidence: 0.9}}, nil
		},
	}

	sched := newScheduler(classifier, scanner.Options{Enabled: true, Threshold: 0.5})
	defer sched.Close()

	done := make(chan struct{})
	go func() {
		sched.Start(context.Background(), doc)
		close(done)
	}()

	// Disable while the classifier call is in flight; the response that
	// eventually arrives must not decorate the tree.
	<-inFlight
	sched.SetEnabled(false)
	close(release)
	<-done

	assert.Zero(t, markCount(doc))
}

func TestSetDocumentSwapsTree(t *testing.T) {
	t.Parallel()

	first := parseHTML(t, `<p>the first version is dumb enough</p>`)
	second := parseHTML(t, `<p>the second version is dumb enough</p>`)

	classifier := &fakeClassifier{
		detect: func(string) ([]domscan.Clause, error) {
			return []domscan.Clause{{Text: "dumb", Confidence: 0.9}}, nil
		},
	}

	sched := newScheduler(classifier, scanner.Options{Enabled: true, Threshold: 0.5})
	defer sched.Close()

	sched.Start(context.Background(), first)
	require.Equal(t, 1, markCount(first))

	sched.SetDocument(second)
	sched.Scan(context.Background())

	assert.Equal(t, 1, markCount(second))
}
