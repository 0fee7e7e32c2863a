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
	"strings"

	"github.com/spf13/cobra"

	"github.com/ArbiterAI/ArbiterCore/pkg/ux"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/core"
)

func runTemplateList(cmd *cobra.Command, args []string) {
	runOrDie(func(ctx context.Context, c *core.Core) error {
		templates, err := c.LoadTemplates(ctx)
		if err != nil {
			return err
		}
		if showJSON {
			return printJSON(templates)
		}
		if len(templates) == 0 {
			ux.Muted("No templates saved.")
			return nil
		}
		ux.Title(fmt.Sprintf("Templates (%d)", len(templates)))
		for _, tmpl := range templates {
			fmt.Printf("  %s  %s  %s  used %d×  %s\n",
				ux.Styles.Muted.Render(formatWhen(tmpl.CreatedAt)),
				ux.Styles.Bold.Render(tmpl.Name),
				strings.Join(tmpl.SideLabels, " vs "),
				tmpl.UseCount,
				ux.Styles.Muted.Render(tmpl.ID))
		}
		return nil
	})
}

func runTemplateDelete(cmd *cobra.Command, args []string) {
	runOrDie(func(ctx context.Context, c *core.Core) error {
		if err := c.DeleteTemplate(ctx, args[0]); err != nil {
			return err
		}
		ux.Success("Deleted " + args[0])
		return nil
	})
}
