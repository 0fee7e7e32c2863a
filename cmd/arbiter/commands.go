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
	"log"

	"github.com/spf13/cobra"

	"github.com/ArbiterAI/ArbiterCore/cmd/arbiter/config"
	"github.com/ArbiterAI/ArbiterCore/pkg/ux"
)

// --- Global Command Variables ---
var (
	analyzeStyle    string // commentator style override
	analyzeEvidence string // evidence mode: light/strict
	analyzeContext  string // optional dispute context
	analyzeTemplate string // start from a template id
	exportPath      string
	importMode      string // merge/replace
	importWatch     bool   // watch the inbox directory instead of a one-shot
	showJSON        bool   // machine output
	noColor         bool

	rootCmd = &cobra.Command{
		Use:   "arbiter",
		Short: "A cli for the Arbiter dispute verdict engine",
		Long: `Arbiter analyzes two-sided disputes and renders a verdict:
				per-side scores, a winner or a tie, and a path to reconciliation.
				All data stays in a local store under your home directory.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				ux.SetPlain(true)
			}
			if err := config.Load(); err != nil {
				log.Fatalf("Error loading config: %v", err)
			}
		},
	}

	// --- Analyze ---
	analyzeCmd = &cobra.Command{
		Use:   "analyze [side-one] [side-two]",
		Short: "Analyze a dispute between two sides and render a verdict",
		Args:  cobra.RangeArgs(0, 2),
		Run:   runAnalyze, // Defined in cmd_analyze.go
	}

	// --- History ---
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Inspect and manage the analysis history",
	}
	historyListCmd = &cobra.Command{
		Use:   "list",
		Short: "List saved analyses, newest first",
		Run:   runHistoryList, // Defined in cmd_history.go
	}
	historyShowCmd = &cobra.Command{
		Use:   "show [id]",
		Short: "Show one analysis in full",
		Args:  cobra.ExactArgs(1),
		Run:   runHistoryShow,
	}
	historyDeleteCmd = &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete one analysis",
		Args:  cobra.ExactArgs(1),
		Run:   runHistoryDelete,
	}
	historyRenameCmd = &cobra.Command{
		Use:   "rename [id] [title]",
		Short: "Rename an analysis",
		Args:  cobra.ExactArgs(2),
		Run:   runHistoryRename,
	}
	historyDuplicateCmd = &cobra.Command{
		Use:   "duplicate [id]",
		Short: "Copy an analysis under a fresh id",
		Args:  cobra.ExactArgs(1),
		Run:   runHistoryDuplicate,
	}
	historyTakeawayCmd = &cobra.Command{
		Use:   "takeaway [id] [text]",
		Short: "Record your personal takeaway for an analysis (empty text clears it)",
		Args:  cobra.RangeArgs(1, 2),
		Run:   runHistoryTakeaway,
	}

	// --- Porting ---
	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export the full history to a portable JSON document",
		Run:   runExport, // Defined in cmd_porting.go
	}
	importCmd = &cobra.Command{
		Use:   "import [file]",
		Short: "Import a previously exported document",
		Args:  cobra.RangeArgs(0, 1),
		Run:   runImport,
	}

	// --- Insights / Quota ---
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate insights over the history",
		Run:   runStats, // Defined in cmd_stats.go
	}
	quotaCmd = &cobra.Command{
		Use:   "quota",
		Short: "Show this week's analysis allowance",
		Run:   runQuota,
	}

	// --- Templates ---
	templateCmd = &cobra.Command{
		Use:   "template",
		Short: "Manage reusable analysis templates",
	}
	templateListCmd = &cobra.Command{
		Use:   "list",
		Short: "List saved templates",
		Run:   runTemplateList, // Defined in cmd_template.go
	}
	templateDeleteCmd = &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a template",
		Args:  cobra.ExactArgs(1),
		Run:   runTemplateDelete,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable styled output")
	rootCmd.PersistentFlags().BoolVar(&showJSON, "json", false, "Emit raw JSON instead of styled output")

	analyzeCmd.Flags().StringVar(&analyzeStyle, "style", "", "Commentator style (neutral, judge, mediator, coach, empathetic, humorous, brutal)")
	analyzeCmd.Flags().StringVar(&analyzeEvidence, "evidence", "", "Evidence mode (light, strict)")
	analyzeCmd.Flags().StringVar(&analyzeContext, "context", "", "Optional dispute context shown to the engine")
	analyzeCmd.Flags().StringVar(&analyzeTemplate, "template", "", "Start from a saved template id")

	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "Write the export to a file instead of stdout")
	importCmd.Flags().StringVar(&importMode, "mode", "", "Import mode: merge or replace (default from config)")
	importCmd.Flags().BoolVar(&importWatch, "watch", false, "Watch the inbox directory for dropped export files")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd,
		historyRenameCmd, historyDuplicateCmd, historyTakeawayCmd)
	templateCmd.AddCommand(templateListCmd, templateDeleteCmd)

	rootCmd.AddCommand(analyzeCmd, historyCmd, exportCmd, importCmd,
		statsCmd, quotaCmd, templateCmd)
}
