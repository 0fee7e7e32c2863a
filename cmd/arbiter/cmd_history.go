// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ArbiterAI/ArbiterCore/pkg/ux"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/core"
)

func runHistoryList(cmd *cobra.Command, args []string) {
	runOrDie(func(ctx context.Context, c *core.Core) error {
		analyses, err := c.LoadAnalyses(ctx)
		if err != nil {
			return err
		}
		if showJSON {
			return printJSON(analyses)
		}
		if len(analyses) == 0 {
			ux.Muted("No analyses yet. Run `arbiter analyze` to create one.")
			return nil
		}
		ux.Title(fmt.Sprintf("History (%d)", len(analyses)))
		for i := range analyses {
			a := &analyses[i]
			fmt.Printf("  %s  %s  %s  %s\n",
				ux.Styles.Muted.Render(formatWhen(a.CreatedAt)),
				ux.Styles.Bold.Render(a.DisplayTitle()),
				verdictLine(a),
				ux.Styles.Muted.Render(a.ID))
		}
		return nil
	})
}

func runHistoryShow(cmd *cobra.Command, args []string) {
	runOrDie(func(ctx context.Context, c *core.Core) error {
		a, err := c.GetAnalysis(ctx, args[0])
		if err != nil {
			return err
		}
		if showJSON {
			return printJSON(a)
		}
		renderResult(a)
		if a.Takeaway != nil {
			fmt.Println()
			ux.Title("Your takeaway")
			ux.Info(*a.Takeaway)
		}
		return nil
	})
}

func runHistoryDelete(cmd *cobra.Command, args []string) {
	runOrDie(func(ctx context.Context, c *core.Core) error {
		if err := c.DeleteAnalysis(ctx, args[0]); err != nil {
			return err
		}
		ux.Success("Deleted " + args[0])
		return nil
	})
}

func runHistoryRename(cmd *cobra.Command, args []string) {
	runOrDie(func(ctx context.Context, c *core.Core) error {
		if err := c.RenameAnalysis(ctx, args[0], args[1]); err != nil {
			return err
		}
		ux.Success(fmt.Sprintf("Renamed %s to %q", args[0], args[1]))
		return nil
	})
}

func runHistoryDuplicate(cmd *cobra.Command, args []string) {
	runOrDie(func(ctx context.Context, c *core.Core) error {
		copied, err := c.DuplicateAnalysis(ctx, args[0])
		if err != nil {
			return err
		}
		ux.Success(fmt.Sprintf("Duplicated as %s (%s)", copied.ID, copied.DisplayTitle()))
		return nil
	})
}

func runHistoryTakeaway(cmd *cobra.Command, args []string) {
	runOrDie(func(ctx context.Context, c *core.Core) error {
		takeaway := ""
		if len(args) > 1 {
			takeaway = args[1]
		}
		if err := c.SetTakeaway(ctx, args[0], takeaway); err != nil {
			return err
		}
		if takeaway == "" {
			ux.Success("Cleared the takeaway on " + args[0])
		} else {
			ux.Success("Saved the takeaway on " + args[0])
		}
		return nil
	})
}

// runOrDie wraps withCore with CLI error reporting.
func runOrDie(fn func(ctx context.Context, c *core.Core) error) {
	if err := withCore(fn); err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
}
