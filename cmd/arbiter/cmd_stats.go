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

	"github.com/spf13/cobra"

	"github.com/ArbiterAI/ArbiterCore/pkg/ux"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/core"
)

func runStats(cmd *cobra.Command, args []string) {
	runOrDie(func(ctx context.Context, c *core.Core) error {
		snap, err := c.Insights(ctx)
		if err != nil {
			return err
		}
		if showJSON {
			return printJSON(snap)
		}

		ux.Title("Insights")
		if snap.TotalAnalyses == 0 {
			ux.Muted("No analyses yet.")
			return nil
		}
		ux.KeyValue("analyses", fmt.Sprintf("%d", snap.TotalAnalyses))
		ux.KeyValue("clear verdicts", fmt.Sprintf("%.0f%%", snap.ClearVerdictRate*100))
		ux.KeyValue("avg confidence", fmt.Sprintf("%.1f", snap.AverageConfidence))

		if len(snap.TopTags) > 0 {
			fmt.Println()
			ux.Title("Top tags")
			for _, tc := range snap.TopTags {
				fmt.Printf("  %s %s (%d)\n", ux.IconBullet, tc.Tag, tc.Count)
			}
		}
		if len(snap.PatternCounts) > 0 {
			fmt.Println()
			ux.Title("Patterns detected")
			for name, count := range snap.PatternCounts {
				fmt.Printf("  %s %s (%d)\n", ux.IconBullet, name, count)
			}
		}
		return nil
	})
}

func runQuota(cmd *cobra.Command, args []string) {
	runOrDie(func(ctx context.Context, c *core.Core) error {
		settings, err := c.LoadSettings(ctx)
		if err != nil {
			return err
		}

		tracker := c.Quota()
		if showJSON {
			return printJSON(map[string]any{
				"pro":       settings.Pro,
				"cap":       tracker.Cap(),
				"used":      settings.AnalysesThisWeek,
				"remaining": tracker.Remaining(settings),
			})
		}

		ux.Title("Weekly quota")
		if settings.Pro {
			ux.Success("Pro: unlimited analyses")
			return nil
		}
		ux.KeyValue("used", fmt.Sprintf("%d of %d", settings.AnalysesThisWeek, tracker.Cap()))
		ux.KeyValue("remaining", fmt.Sprintf("%d", tracker.Remaining(settings)))
		ux.Muted("The window resets Monday 00:00 local time.")
		return nil
	})
}
