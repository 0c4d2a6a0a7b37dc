// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the rebaser's repository-level configuration:
// a user identity and the policy flags the core exposes for its Open
// Questions (spec.md §9).
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ErrBadConfigKey reports an unrecognized config key.
type ErrBadConfigKey struct {
	key string
}

func (err *ErrBadConfigKey) Error() string {
	return fmt.Sprintf("bad wren config key '%s'", err.key)
}

func IsErrBadConfigKey(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*ErrBadConfigKey)
	return ok
}

var ErrInvalidArgument = errors.New("invalid argument")

// User is a name/email identity. The rebaser does not read it:
// rewritten commits keep the author and committer of the original.
type User struct {
	Name  string `toml:"name,omitempty"`
	Email string `toml:"email,omitempty"`
}

func (u *User) Empty() bool {
	return u == nil || len(u.Email) == 0 || len(u.Name) == 0
}

func overwrite(a, b string) string {
	if len(b) != 0 {
		return b
	}
	return a
}

func (u *User) Overwrite(o *User) {
	u.Name = overwrite(u.Name, o.Name)
	u.Email = overwrite(u.Email, o.Email)
}

// EmptyBranchPolicy controls the behavior left open by spec.md §9's
// TODO: what happens when a concurrent operation deletes a branch
// (leaving Conflict{adds: []}) while another rewrite hides the
// remaining add.
type EmptyBranchPolicy string

const (
	// EmptyBranchDelete silently deletes a local branch whose conflict
	// algebra resolves to an empty adds set. This is the default,
	// matching a plain two-way "someone deleted it" outcome.
	EmptyBranchDelete EmptyBranchPolicy = "delete"
	// EmptyBranchPreserve keeps the branch as an empty Conflict{adds: []}
	// instead of deleting it, so a concurrent delete is visible as a
	// conflict rather than silently winning.
	EmptyBranchPreserve EmptyBranchPolicy = "preserve-empty-conflict"
)

// Rebase holds the rebaser's own policy knobs.
type Rebase struct {
	EmptyBranch EmptyBranchPolicy `toml:"empty-branch,omitempty"`
}

func (r *Rebase) normalize() {
	if r.EmptyBranch == "" {
		r.EmptyBranch = EmptyBranchDelete
	}
}

// Config is the decoded form of a wren.toml file.
type Config struct {
	User   User   `toml:"user,omitempty"`
	Rebase Rebase `toml:"rebase,omitempty"`
}

// Load decodes path into a Config, applying defaults for any unset
// policy fields. A missing file yields a zero-value, defaulted Config
// rather than an error.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			cfg.Rebase.normalize()
			return &cfg, nil
		}
		return nil, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	cfg.Rebase.normalize()
	return &cfg, nil
}

// Save encodes cfg to path as TOML.
func Save(path string, cfg *Config) error {
	fd, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fd.Close() // nolint
	enc := toml.NewEncoder(fd)
	return enc.Encode(cfg)
}
