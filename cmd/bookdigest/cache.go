package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/bookdigest/internal/book"
	"github.com/dgallion1/bookdigest/internal/cache"
)

func cacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached stage outputs",
	}
	cmd.AddCommand(cacheClearCmd(a))
	return cmd
}

func cacheClearCmd(a *app) *cobra.Command {
	var kind string
	var group string

	cmd := &cobra.Command{
		Use:   "clear <file>",
		Short: "Remove cached outputs of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, err := cache.ParseKind(kind)
			if err != nil {
				return err
			}
			// The document id only depends on file content.
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			docID := book.DocumentID(data)

			store, err := a.openCache(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if group != "" {
				if k == cache.KindAll {
					return fmt.Errorf("--group requires a specific --kind")
				}
				ok, err := store.InvalidateGroup(ctx, docID, k, group)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %t: %s/%s/%s\n", ok, docID, k, group)
				return nil
			}

			n, err := store.Invalidate(ctx, docID, k)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d %s entries for doc %s\n", n, k, docID)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(cache.KindAll), "cache kind to clear, or all")
	cmd.Flags().StringVar(&group, "group", "", "clear only this group's entry")
	return cmd
}
