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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ArbiterAI/ArbiterCore/pkg/ux"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/core"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
)

func runAnalyze(cmd *cobra.Command, args []string) {
	err := withCore(func(ctx context.Context, c *core.Core) error {
		input, err := buildAnalyzeInput(ctx, c, args)
		if err != nil {
			return err
		}

		result, err := c.Analyze(ctx, *input)
		if err != nil {
			if errors.Is(err, core.ErrQuotaExceeded) {
				return errors.New("weekly quota exhausted; it resets Monday, or set pro in settings")
			}
			return err
		}

		if showJSON {
			return printJSON(result)
		}
		renderResult(result)
		return nil
	})
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
}

// buildAnalyzeInput assembles the input from positional args, flags, a
// template, and the persisted defaults, in that precedence order.
func buildAnalyzeInput(ctx context.Context, c *core.Core, args []string) (*datatypes.AnalysisInput, error) {
	settings, err := c.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}

	input := datatypes.AnalysisInput{
		CommentatorStyle: settings.DefaultCommentatorStyle,
		EvidenceMode:     settings.DefaultEvidenceMode,
		Context:          analyzeContext,
	}

	if analyzeTemplate != "" {
		tmpl, err := c.UseTemplate(ctx, analyzeTemplate)
		if err != nil {
			return nil, err
		}
		skeleton := tmpl.Skeleton()
		input.Sides = skeleton.Sides
		input.CommentatorStyle = skeleton.CommentatorStyle
		input.EvidenceMode = skeleton.EvidenceMode
		if skeleton.Context != "" && input.Context == "" {
			input.Context = skeleton.Context
		}
	}

	if analyzeStyle != "" {
		input.CommentatorStyle = datatypes.CommentatorStyle(analyzeStyle)
	}
	if analyzeEvidence != "" {
		input.EvidenceMode = datatypes.EvidenceMode(analyzeEvidence)
	}

	// Positional args fill side contents; without a template they also
	// mint the sides.
	switch {
	case len(input.Sides) >= 2 && len(args) == 2:
		input.Sides[0].Content = args[0]
		input.Sides[1].Content = args[1]
	case len(input.Sides) == 0 && len(args) == 2:
		input.Sides = []datatypes.Side{
			{Label: "Side A", Content: args[0]},
			{Label: "Side B", Content: args[1]},
		}
	case len(args) == 0 && len(input.Sides) == 0:
		return nil, errors.New("provide both sides' statements as arguments, or --template")
	case len(args) == 0:
		return nil, errors.New("a template supplies labels only; provide both sides' statements as arguments")
	default:
		return nil, errors.New("exactly two side statements are required")
	}

	return &input, nil
}

func renderResult(a *datatypes.AnalysisResult) {
	ux.Title(a.DisplayTitle())
	ux.Muted(fmt.Sprintf("%s  ·  %s  ·  %s", a.ID, formatWhen(a.CreatedAt), strings.Join(a.Tags, ", ")))
	fmt.Println()

	ux.Box(a.VerdictHeadline, a.VerdictExplanation)

	if a.WinAnalysis != nil {
		fmt.Println()
		if a.WinAnalysis.Clear() {
			ux.Success(fmt.Sprintf("Verdict: %s (%d%% confidence, margin %.1f)",
				*a.WinAnalysis.WinnerLabel, a.WinAnalysis.Confidence, a.WinAnalysis.Margin))
		} else {
			ux.Warning(fmt.Sprintf("No clear winner (%d%% confidence, margin %.1f)",
				a.WinAnalysis.Confidence, a.WinAnalysis.Margin))
		}
		ux.Info(a.WinAnalysis.Reasoning)
		for _, factor := range a.WinAnalysis.KeyFactors {
			ux.Muted("  " + string(ux.IconBullet) + " " + factor)
		}
	}

	fmt.Println()
	for _, side := range a.SideAnalyses {
		ux.Title(side.Label)
		ux.Info(side.Summary)
		s := side.Scores
		ux.KeyValue("clarity", fmt.Sprintf("%.1f", s.Clarity))
		ux.KeyValue("evidence", fmt.Sprintf("%.1f", s.EvidenceQuality))
		ux.KeyValue("logic", fmt.Sprintf("%.1f", s.LogicalConsistency))
		ux.KeyValue("escalation", fmt.Sprintf("%.1f", s.EmotionalEscalation))
		ux.KeyValue("fairness", fmt.Sprintf("%.1f", s.Fairness))
		ux.KeyValue("composite", fmt.Sprintf("%.1f", s.Composite()))
		for _, flagged := range side.FlaggedAssumptions {
			ux.Warning("assumption: " + flagged)
		}
		fmt.Println()
	}

	if a.PeaceAnalysis != nil {
		ux.Title("Path to peace")
		if a.PeaceAnalysis.Compromise != "" {
			ux.Info(a.PeaceAnalysis.Compromise)
		}
		for _, step := range a.PeaceAnalysis.StepsForward {
			ux.Muted("  " + string(ux.IconArrow) + " " + step)
		}
	}
}
