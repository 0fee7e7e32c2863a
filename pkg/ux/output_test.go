// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderRespectsPlainMode(t *testing.T) {
	orig := plain
	t.Cleanup(func() { plain = orig })

	SetPlain(true)
	assert.Equal(t, "verdict", render(Styles.Title, "verdict"))
	assert.Equal(t, "✓", IconSuccess.Render())

	SetPlain(false)
	// Styled output still carries the original text.
	assert.Contains(t, render(Styles.Error, "failed"), "failed")
}

func TestUnstyledIconsPassThrough(t *testing.T) {
	orig := plain
	t.Cleanup(func() { plain = orig })
	SetPlain(false)

	assert.Equal(t, string(IconScale), IconScale.Render())
	assert.Equal(t, string(IconArrow), IconArrow.Render())
}
