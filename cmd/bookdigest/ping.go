package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/bookdigest/internal/llm"
)

func pingCmd(a *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Test the connection to the configured LLM backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			p, err := a.newProvider(ctx, a.cfg.LLMSettings())
			if err != nil {
				return err
			}
			start := time.Now()
			reply, err := llm.Ping(ctx, p)
			if err != nil {
				return fmt.Errorf("%s: %w", p.Name(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s replied %q in %s\n", p.Name(), reply, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "give up after this long")
	return cmd
}
