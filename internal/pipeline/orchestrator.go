package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/bookdigest/internal/book"
	"github.com/dgallion1/bookdigest/internal/cache"
	"github.com/dgallion1/bookdigest/internal/llm"
	"github.com/dgallion1/bookdigest/internal/prompt"
)

// Mode selects what a run produces.
type Mode string

const (
	ModeSummary         Mode = "summary"
	ModeMindMap         Mode = "mindmap"
	ModeCombinedMindMap Mode = "combined-mindmap"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeSummary, ModeMindMap, ModeCombinedMindMap:
		return m, nil
	case "":
		return ModeSummary, nil
	}
	return "", fmt.Errorf("unknown processing mode %q", s)
}

// Progress checkpoints. Per-group stages share the span between
// progressGrouped and progressGroupsDone.
const (
	progressGrouped       = 20
	progressGroupsDone    = 80
	progressConnections   = 85
	progressCharacters    = 90
	progressOverall       = 95
	progressMerged        = 90
	progressCombinedBuilt = 90
)

// ProviderFactory builds the backend for one run's settings.
type ProviderFactory func(ctx context.Context, s llm.Settings) (llm.Provider, error)

// Options is the configuration snapshot taken when a run starts.
type Options struct {
	Mode           Mode
	ChapterIDs     []string
	Tags           map[string]string
	LLM            llm.Settings
	Prompt         prompt.Options
	CharacterGraph bool

	// OnUpdate receives a snapshot after every state change.
	OnUpdate func(Snapshot)
}

// Deps are the collaborators injected into an Orchestrator.
type Deps struct {
	Cache       cache.Store
	NewProvider ProviderFactory
	RunTTL      time.Duration
	DocumentTTL time.Duration
	Log         *slog.Logger
}

// Orchestrator runs the book-processing pipeline. At most one run per
// document is active; starting another cancels it first.
type Orchestrator struct {
	cache       cache.Store
	newProvider ProviderFactory
	runs        *RunStore
	docs        *DocumentStore
	log         *slog.Logger

	mu     sync.Mutex
	active map[string]*Run

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator creates the pipeline.
func NewOrchestrator(d Deps) *Orchestrator {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cache:       d.Cache,
		newProvider: d.NewProvider,
		runs:        NewRunStore(d.RunTTL),
		docs:        NewDocumentStore(d.DocumentTTL),
		log:         log,
		active:      make(map[string]*Run),
		baseCtx:     ctx,
		cancel:      cancel,
	}
}

// Start launches the registry cleanup loop.
func (o *Orchestrator) Start(ctx context.Context) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-o.baseCtx.Done():
				return
			case <-ticker.C:
				runs := o.runs.Cleanup()
				docs := o.docs.Cleanup()
				if runs+docs > 0 {
					o.log.Info("evicted expired state", "runs", runs, "documents", docs)
				}
			}
		}
	}()
}

// Stop cancels every active run and waits for teardown.
func (o *Orchestrator) Stop() {
	o.cancel()
	o.wg.Wait()
}

// Documents returns the document registry.
func (o *Orchestrator) Documents() *DocumentStore { return o.docs }

// GetRun returns a run by ID.
func (o *Orchestrator) GetRun(id string) *Run { return o.runs.Get(id) }

// CancelRun cancels a run by ID. It reports whether the run exists.
func (o *Orchestrator) CancelRun(id string) bool {
	r := o.runs.Get(id)
	if r == nil {
		return false
	}
	r.Cancel()
	return true
}

// Invalidate removes cached stage outputs of a document.
func (o *Orchestrator) Invalidate(ctx context.Context, docID string, kind cache.Kind) (int, error) {
	n, err := o.cache.Invalidate(ctx, docID, kind)
	if err == nil {
		o.log.Info("cache invalidated", "doc_id", docID, "kind", kind, "removed", n)
	}
	return n, err
}

// InvalidateGroup removes one group's cached output.
func (o *Orchestrator) InvalidateGroup(ctx context.Context, docID string, kind cache.Kind, groupID string) (bool, error) {
	ok, err := o.cache.InvalidateGroup(ctx, docID, kind, groupID)
	if err == nil {
		o.log.Info("cache entry invalidated", "doc_id", docID, "kind", kind, "group_id", groupID, "removed", ok)
	}
	return ok, err
}

// Submit validates opts, cancels any active run on the same document, waits
// for its teardown and starts a new run in the background. Configuration
// errors, including a missing credential, are returned before any network
// call is made.
func (o *Orchestrator) Submit(ctx context.Context, doc *book.Document, opts Options) (*Run, error) {
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	opts.Mode = mode
	chapters, err := doc.Select(opts.ChapterIDs)
	if err != nil {
		return nil, err
	}
	if len(chapters) == 0 {
		return nil, errors.New("no chapters to process")
	}
	opts.LLM = opts.LLM.WithDefaults()
	if err := opts.LLM.Validate(); err != nil {
		return nil, err
	}
	if opts.Prompt.BookType == "" {
		opts.Prompt.BookType = prompt.NonFiction
	}
	if opts.Prompt.Language == "" {
		opts.Prompt.Language = "en"
	}
	opts.Tags = cloneTags(opts.Tags)

	for {
		o.mu.Lock()
		prev := o.active[doc.ID]
		if prev == nil {
			break
		}
		o.mu.Unlock()
		o.log.Info("cancelling active run", "doc_id", doc.ID, "run_id", prev.ID)
		prev.Cancel()
		select {
		case <-prev.Done():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	run := newRun(newRunID(), doc.ID, opts.Mode, opts.OnUpdate)
	runCtx, cancel := context.WithCancel(o.baseCtx)
	run.cancel = cancel
	o.active[doc.ID] = run
	o.runs.Put(run)
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer close(run.done)
		defer cancel()
		defer func() {
			o.mu.Lock()
			if o.active[doc.ID] == run {
				delete(o.active, doc.ID)
			}
			o.mu.Unlock()
		}()
		o.execute(runCtx, run, doc, chapters, opts)
	}()
	return run, nil
}

// Process runs the pipeline synchronously and returns the final snapshot.
func (o *Orchestrator) Process(ctx context.Context, doc *book.Document, opts Options) (Snapshot, error) {
	run, err := o.Submit(ctx, doc, opts)
	if err != nil {
		return Snapshot{}, err
	}
	stop := context.AfterFunc(ctx, run.Cancel)
	defer stop()
	<-run.Done()
	return run.Wait(context.Background())
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, doc *book.Document, chapters []book.Chapter, opts Options) {
	log := o.log.With("run_id", run.ID, "doc_id", doc.ID, "mode", opts.Mode)
	start := time.Now()

	err := o.process(ctx, log, run, doc, chapters, opts)
	switch {
	case err == nil:
		log.Info("run completed", "duration_ms", time.Since(start).Milliseconds())
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		log.Info("run cancelled", "step", run.Snapshot().Step)
		run.markCancelled()
	default:
		log.Error("run failed", "error", err)
		run.fail(err)
	}
}

func (o *Orchestrator) process(ctx context.Context, log *slog.Logger, run *Run, doc *book.Document, chapters []book.Chapter, opts Options) error {
	provider, err := o.newProvider(ctx, opts.LLM)
	if err != nil {
		return fmt.Errorf("create provider: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s := &stageRunner{
		ctx:      ctx,
		log:      log,
		run:      run,
		doc:      doc,
		opts:     opts,
		provider: provider,
		cache:    o.cache,
		byID:     make(map[string]book.Chapter, len(chapters)),
	}
	for _, ch := range chapters {
		s.byID[ch.ID] = ch
		s.members = append(s.members, ch.ID)
	}

	run.setStage(StatusGrouping, "grouping chapters", 0)
	groups := GroupChapters(chapters, opts.Tags)
	if err := ctx.Err(); err != nil {
		return err
	}
	run.setGroups(groups)
	run.setStage(StatusProcessing, "grouped", progressGrouped)
	log.Info("chapters grouped", "chapters", len(chapters), "groups", len(groups))

	res := &Result{}
	switch opts.Mode {
	case ModeSummary:
		if err := s.perGroup(groups, cache.KindSummary); err != nil {
			return err
		}
		if err := s.summaryAggregation(res); err != nil {
			return err
		}
	case ModeMindMap:
		if err := s.perGroup(groups, cache.KindMindMap); err != nil {
			return err
		}
		if err := s.mergeMindMaps(res); err != nil {
			return err
		}
	case ModeCombinedMindMap:
		if err := s.combinedMindMap(chapters, res); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	run.complete(res)
	return nil
}

func cloneTags(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
