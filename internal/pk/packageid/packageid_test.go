// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package packageid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	id, err := Parse("gnome-power-manager;0.0.1;i386;fedora")
	require.NoError(t, err)
	assert.Equal(t, ID{Name: "gnome-power-manager", Version: "0.0.1", Arch: "i386", Data: "fedora"}, id)
	assert.Equal(t, "gnome-power-manager;0.0.1;i386;fedora", id.String())
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"not-a-valid-id",
		"foo;1.0;x86",
		"foo;1.0;x86;repo;extra",
		";1.0;x86;repo",
		"foo;;x86;repo",
		"foo;1.0;x86;",
		"foo;1.0;x86;repo|bar;2.0;x86;repo",
	} {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrInvalid, "input %q", raw)
		assert.False(t, Check(raw))
	}
}

func TestCheckAll(t *testing.T) {
	require.NoError(t, CheckAll([]string{"foo;1.0;x86;repo", "bar;2;noarch;local"}))
	assert.ErrorIs(t, CheckAll(nil), ErrInvalid)
	assert.ErrorIs(t, CheckAll([]string{"foo;1.0;x86;repo", "broken"}), ErrInvalid)
}
