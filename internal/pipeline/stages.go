package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/bookdigest/internal/artifact"
	"github.com/dgallion1/bookdigest/internal/book"
	"github.com/dgallion1/bookdigest/internal/cache"
	"github.com/dgallion1/bookdigest/internal/llm"
	"github.com/dgallion1/bookdigest/internal/prompt"
)

// stageRunner executes the stages of one run. Every stage reads the cache,
// calls the backend on a miss and writes the result back; ctx is checked
// after each suspension point so nothing is written once the run is
// cancelled.
type stageRunner struct {
	ctx      context.Context
	log      *slog.Logger
	run      *Run
	doc      *book.Document
	opts     Options
	provider llm.Provider
	cache    cache.Store
	byID     map[string]book.Chapter
	// members are the selected chapter ids; whole-book entries record them.
	members []string
	// regenerated is set once any per-group output was produced in this
	// run, which makes cached aggregates built from older outputs stale.
	regenerated bool
}

func (s *stageRunner) request(p string) llm.Request {
	return llm.Request{
		Messages:    prompt.Messages(p, s.opts.Prompt.Language),
		Temperature: s.opts.LLM.Temperature,
	}
}

// lookup returns a usable cache entry. Read errors and stale entries count
// as misses.
func (s *stageRunner) lookup(key cache.Key, members []string) (cache.Entry, bool, error) {
	e, ok, err := s.cache.Get(s.ctx, key)
	if cerr := s.ctx.Err(); cerr != nil {
		return cache.Entry{}, false, cerr
	}
	if err != nil {
		s.log.Warn("cache read failed", "key", key.String(), "error", err)
		return cache.Entry{}, false, nil
	}
	if !ok {
		s.log.Info("cache miss", "key", key.String())
		return cache.Entry{}, false, nil
	}
	if !e.Matches(members) {
		s.log.Warn("stale cache entry", "key", key.String(), "cached_members", e.Members, "members", members)
		return cache.Entry{}, false, nil
	}
	s.log.Info("cache hit", "key", key.String())
	return e, true, nil
}

// lookupAggregate is lookup for stages derived from per-group outputs.
func (s *stageRunner) lookupAggregate(key cache.Key) (cache.Entry, bool, error) {
	e, hit, err := s.lookup(key, s.members)
	if hit && s.regenerated {
		s.log.Info("cached aggregate predates regenerated groups", "key", key.String())
		return cache.Entry{}, false, nil
	}
	return e, hit, err
}

// store writes e unless the run was cancelled. Write failures are logged;
// the computed result is still used. A cancellation observed after the write
// is returned so no further state is published.
func (s *stageRunner) store(key cache.Key, e cache.Entry) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	if err := s.cache.Set(s.ctx, key, e); err != nil {
		if cerr := s.ctx.Err(); cerr != nil {
			return cerr
		}
		s.log.Warn("cache write failed", "key", key.String(), "error", err)
	}
	return s.ctx.Err()
}

// complete calls the backend and checks ctx afterwards.
func (s *stageRunner) complete(req llm.Request, contract string) (string, error) {
	var (
		raw string
		err error
	)
	if contract != "" {
		raw, err = llm.CompleteJSON(s.ctx, s.provider, req, contract)
	} else {
		raw, err = s.provider.Complete(s.ctx, req)
	}
	if cerr := s.ctx.Err(); cerr != nil {
		return "", cerr
	}
	return raw, err
}

func (s *stageRunner) key(kind cache.Kind, groupID string) cache.Key {
	return cache.Key{DocID: s.doc.ID, Kind: kind, GroupID: groupID}
}

// perGroup generates one summary or mind map per group, strictly in order.
func (s *stageRunner) perGroup(groups []Group, kind cache.Kind) error {
	n := len(groups)
	for i, g := range groups {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		progress := progressGrouped + (i+1)*(progressGroupsDone-progressGrouped)/n
		s.run.setStage(StatusProcessing, fmt.Sprintf("processing group %d/%d: %s", i+1, n, g.Title()), 0)

		key := s.key(kind, g.ID)
		e, hit, err := s.lookup(key, g.ChapterIDs)
		if err != nil {
			return err
		}
		if hit && (e.Text != "" || e.MindMap != nil) {
			s.run.setGroupResult(i, e.Text, e.MindMap, true, progress)
			continue
		}

		s.run.setGroupLoading(i)
		label := fmt.Sprintf("%s for %q", kind, g.Title())
		content := groupContent(g, s.byID)

		var entry cache.Entry
		switch kind {
		case cache.KindSummary:
			raw, err := s.complete(s.request(prompt.ChapterSummary(g.Title(), content, s.opts.Prompt)), "")
			if err != nil {
				return fmt.Errorf("summarize %q: %w", g.Title(), err)
			}
			text, err := artifact.Text(raw, label)
			if err != nil {
				return err
			}
			entry = cache.Entry{Text: text}
		case cache.KindMindMap:
			raw, err := s.complete(s.request(prompt.ChapterMindMap(content, s.opts.Prompt)), prompt.MindMapContract)
			if err != nil {
				return fmt.Errorf("mind map %q: %w", g.Title(), err)
			}
			mm, err := s.parseMindMap(raw, label)
			if err != nil {
				return err
			}
			entry = cache.Entry{MindMap: mm}
		}
		entry.Members = g.ChapterIDs
		s.regenerated = true

		if err := s.store(key, entry); err != nil {
			return err
		}
		s.run.setGroupResult(i, entry.Text, entry.MindMap, false, progress)
	}
	return nil
}

func (s *stageRunner) parseMindMap(raw, label string) (*artifact.MindMap, error) {
	mm, err := artifact.ParseMindMap(raw, label)
	if err != nil {
		return nil, err
	}
	if dups := artifact.DuplicateIDs(mm); len(dups) > 0 {
		s.log.Warn("mind map has duplicate node ids", "label", label, "ids", dups)
	}
	return mm, nil
}

// wholeBookText runs one cached text stage keyed by document and kind.
func (s *stageRunner) wholeBookText(kind cache.Kind, step string, progress int, build func() string, post func(string) string) (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	s.run.setStage(StatusAggregating, step, 0)

	key := s.key(kind, "")
	e, hit, err := s.lookupAggregate(key)
	if err != nil {
		return "", err
	}
	if hit && e.Text != "" {
		s.run.setProgress(progress)
		return e.Text, nil
	}

	raw, err := s.complete(s.request(build()), "")
	if err != nil {
		return "", fmt.Errorf("%s: %w", kind, err)
	}
	text, err := artifact.Text(raw, string(kind))
	if err != nil {
		return "", err
	}
	if post != nil {
		text = post(text)
	}
	if err := s.store(key, cache.Entry{Text: text, Members: s.members}); err != nil {
		return "", err
	}
	s.run.setProgress(progress)
	return text, nil
}

func (s *stageRunner) sections() []prompt.Section {
	snap := s.run.Snapshot()
	out := make([]prompt.Section, 0, len(snap.Groups))
	for _, g := range snap.Groups {
		out = append(out, prompt.Section{Title: g.Title(), Text: g.Summary})
	}
	return out
}

func (s *stageRunner) summaryAggregation(res *Result) error {
	sections := s.sections()

	conn, err := s.wholeBookText(cache.KindConnections, "analyzing chapter connections", progressConnections,
		func() string { return prompt.Connections(sections, s.opts.Prompt) }, nil)
	if err != nil {
		return err
	}
	res.Connections = conn

	if s.opts.CharacterGraph {
		graph, err := s.wholeBookText(cache.KindCharacterRelationship, "mapping character relationships", progressCharacters,
			func() string { return prompt.CharacterRelationship(sections, s.opts.Prompt) },
			func(text string) string {
				if m := artifact.ExtractFenced(text, "mermaid"); m != "" {
					return m
				}
				return text
			})
		if err != nil {
			return err
		}
		res.CharacterRelationship = graph
	}

	overall, err := s.wholeBookText(cache.KindOverallSummary, "writing overall summary", progressOverall,
		func() string { return prompt.OverallSummary(s.doc.Metadata.Title, sections, s.opts.Prompt) }, nil)
	if err != nil {
		return err
	}
	res.OverallSummary = overall
	return nil
}

func (s *stageRunner) mergeMindMaps(res *Result) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	s.run.setStage(StatusAggregating, "merging mind maps", 0)

	key := s.key(cache.KindMergedMindMap, "")
	e, hit, err := s.lookupAggregate(key)
	if err != nil {
		return err
	}
	if hit && e.MindMap != nil {
		res.CombinedMindMap = e.MindMap
		s.run.setProgress(progressMerged)
		return nil
	}

	snap := s.run.Snapshot()
	parts := make([]artifact.Part, 0, len(snap.Groups))
	for _, g := range snap.Groups {
		parts = append(parts, artifact.Part{Topic: g.Title(), Map: g.MindMap})
	}
	merged := artifact.Merge(s.doc.Metadata.Title, parts)
	if err := s.store(key, cache.Entry{MindMap: merged, Members: s.members}); err != nil {
		return err
	}
	res.CombinedMindMap = merged
	s.run.setProgress(progressMerged)
	return nil
}

func (s *stageRunner) combinedMindMap(chapters []book.Chapter, res *Result) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	s.run.setStage(StatusAggregating, "generating whole-book mind map", 0)

	key := s.key(cache.KindCombinedMindMap, "")
	e, hit, err := s.lookup(key, s.members)
	if err != nil {
		return err
	}
	if hit && e.MindMap != nil {
		res.CombinedMindMap = e.MindMap
		s.run.setProgress(progressCombinedBuilt)
		return nil
	}

	contents := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		if strings.TrimSpace(ch.Content) != "" {
			contents = append(contents, ch.Content)
		}
	}
	raw, err := s.complete(s.request(prompt.BookMindMap(s.doc.Metadata.Title, contents, s.opts.Prompt)), prompt.MindMapContract)
	if err != nil {
		return fmt.Errorf("whole-book mind map: %w", err)
	}
	mm, err := s.parseMindMap(raw, "whole-book mind map")
	if err != nil {
		return err
	}
	if err := s.store(key, cache.Entry{MindMap: mm, Members: s.members}); err != nil {
		return err
	}
	res.CombinedMindMap = mm
	s.run.setProgress(progressCombinedBuilt)
	return nil
}
