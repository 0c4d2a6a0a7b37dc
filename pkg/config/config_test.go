package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "wren.toml"))
	require.NoError(t, err)
	require.Equal(t, EmptyBranchDelete, cfg.Rebase.EmptyBranch)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wren.toml")
	want := &Config{
		User:   User{Name: "Ada Lovelace", Email: "ada@example.com"},
		Rebase: Rebase{EmptyBranch: EmptyBranchPreserve},
	}
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, want.User, got.User)
	require.Equal(t, want.Rebase.EmptyBranch, got.Rebase.EmptyBranch)
}

func TestUserOverwrite(t *testing.T) {
	u := &User{Name: "A", Email: "a@example.com"}
	u.Overwrite(&User{Name: "B"})
	require.Equal(t, "B", u.Name)
	require.Equal(t, "a@example.com", u.Email)
	require.False(t, u.Empty())
	require.True(t, (&User{}).Empty())
}
