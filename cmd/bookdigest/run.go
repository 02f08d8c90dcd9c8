package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dgallion1/bookdigest/internal/pipeline"
	"github.com/dgallion1/bookdigest/internal/prompt"
)

func runCmd(a *app) *cobra.Command {
	var (
		lf             loadFlags
		mode           string
		tags           []string
		chapterIDs     []string
		bookType       string
		language       string
		customPrompt   string
		customOnly     bool
		characterGraph bool
	)

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run the pipeline on a book and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			m, err := pipeline.ParseMode(mode)
			if err != nil {
				return err
			}
			tagMap, err := parseTags(tags)
			if err != nil {
				return err
			}
			if bookType == "" {
				bookType = a.cfg.BookType
			}
			bt, err := prompt.ParseBookType(bookType)
			if err != nil {
				return err
			}
			if language == "" {
				language = a.cfg.OutputLanguage
			}
			if !prompt.SupportedLanguage(language) {
				return fmt.Errorf("unsupported language %q", language)
			}
			if !cmd.Flags().Changed("custom-prompt") {
				customPrompt = a.cfg.CustomPrompt
			}

			doc, err := lf.load(cmd, a, args[0])
			if err != nil {
				return err
			}

			store, err := a.openCache(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			orch := pipeline.NewOrchestrator(pipeline.Deps{
				Cache:       store,
				NewProvider: a.newProvider,
				Log:         a.log,
			})
			defer orch.Stop()

			snap, err := orch.Process(ctx, doc, pipeline.Options{
				Mode:       m,
				ChapterIDs: chapterIDs,
				Tags:       tagMap,
				LLM:        a.cfg.LLMSettings(),
				Prompt: prompt.Options{
					BookType:   bt,
					Language:   language,
					Custom:     customPrompt,
					CustomOnly: customOnly && strings.TrimSpace(customPrompt) != "",
				},
				CharacterGraph: characterGraph,
				OnUpdate:       progressPrinter(cmd.ErrOrStderr()),
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap.Result)
		},
	}
	lf.register(cmd)
	cmd.Flags().StringVar(&mode, "mode", "summary", "summary|mindmap|combined-mindmap")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "assign a chapter to a tag group, as chapter_id=label (repeatable)")
	cmd.Flags().StringSliceVar(&chapterIDs, "chapters", nil, "comma-separated chapter ids to process (default all)")
	cmd.Flags().StringVar(&bookType, "book-type", "", "fiction|non-fiction (default from config)")
	cmd.Flags().StringVar(&language, "language", "", "output language code (default from config)")
	cmd.Flags().StringVar(&customPrompt, "custom-prompt", "", "extra requirements appended to the summary prompts")
	cmd.Flags().BoolVar(&customOnly, "custom-only", false, "use the custom prompt instead of the chapter summary template")
	cmd.Flags().BoolVar(&characterGraph, "character-graph", false, "also build a character relationship graph")
	return cmd
}

// parseTags turns chapter_id=label pairs into a tag map.
func parseTags(pairs []string) (map[string]string, error) {
	tags := make(map[string]string, len(pairs))
	for _, p := range pairs {
		id, label, ok := strings.Cut(p, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid tag %q, want chapter_id=label", p)
		}
		tags[id] = strings.TrimSpace(label)
	}
	return tags, nil
}

// progressPrinter writes one line per step or progress change.
func progressPrinter(w io.Writer) func(pipeline.Snapshot) {
	var (
		mu       sync.Mutex
		lastStep string
		lastPct  = -1
	)
	return func(s pipeline.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if s.Step == lastStep && s.Progress == lastPct {
			return
		}
		lastStep, lastPct = s.Step, s.Progress
		fmt.Fprintf(w, "[%3d%%] %s\n", s.Progress, s.Step)
	}
}
