package plumbing

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ReferencePrefix = "refs/"
	refHeadPrefix   = ReferencePrefix + "heads/"
	refTagPrefix    = ReferencePrefix + "tags/"
	refRemotePrefix = ReferencePrefix + "remotes/"
)

var (
	ErrReferenceNotFound = errors.New("reference does not exist")
)

// ReferenceName is the full path of a reference, e.g. "refs/heads/main".
type ReferenceName string

// NewBranchReferenceName returns the reference name of a local branch.
func NewBranchReferenceName(name string) ReferenceName {
	return ReferenceName(refHeadPrefix + name)
}

// NewRemoteReferenceName returns the reference name of a remote-tracking
// branch.
func NewRemoteReferenceName(remote, name string) ReferenceName {
	return ReferenceName(refRemotePrefix + fmt.Sprintf("%s/%s", remote, name))
}

// NewTagReferenceName returns the reference name of a tag.
func NewTagReferenceName(name string) ReferenceName {
	return ReferenceName(refTagPrefix + name)
}

// IsBranch reports whether r names a local branch.
func (r ReferenceName) IsBranch() bool {
	return strings.HasPrefix(string(r), refHeadPrefix)
}

func (r ReferenceName) BranchName() string {
	return strings.TrimPrefix(string(r), refHeadPrefix)
}

// IsRemote reports whether r names a remote-tracking branch.
func (r ReferenceName) IsRemote() bool {
	return strings.HasPrefix(string(r), refRemotePrefix)
}

// IsTag reports whether r names a tag.
func (r ReferenceName) IsTag() bool {
	return strings.HasPrefix(string(r), refTagPrefix)
}

func (r ReferenceName) TagName() string {
	return strings.TrimPrefix(string(r), refTagPrefix)
}

func (r ReferenceName) String() string {
	return string(r)
}

const (
	HEAD ReferenceName = "HEAD"
)

// RefTargetKind distinguishes a resolved reference from one left in a
// conflicted state by divergent rewrites or racing operations (§3).
type RefTargetKind int8

const (
	// RefNormal is a single, resolved target.
	RefNormal RefTargetKind = iota
	// RefConflict is an unresolved target recording the minimal
	// difference between contending values.
	RefConflict
)

// RefTarget is a reference's value: either Normal(x) or a Conflict of
// removed/added CommitIds. The invariants from §3 hold for every
// conflict returned by pkg/rebase's simplifyConflict when its input
// already satisfies the count invariant:
//
//   - removes and adds share no element (kept disjoint by
//     simplifyConflict's cancellation step)
//   - len(adds) - len(removes) == 1
//
// The empty Conflict{} that pkg/rebase writes under the
// preserve-empty-conflict branch policy does not satisfy the second.
//
// Normal(x) is the canonical form of Conflict{adds: [x]}; NewNormal
// always returns the Kind-tagged canonical form rather than a
// single-add conflict so callers can compare Kind directly.
type RefTarget struct {
	Kind    RefTargetKind
	Normal  Hash
	Removes []Hash
	Adds    []Hash
}

// NewNormal builds a resolved RefTarget pointing at x.
func NewNormal(x Hash) RefTarget {
	return RefTarget{Kind: RefNormal, Normal: x}
}

// NewConflict builds a conflicted RefTarget. It does not itself enforce
// the disjointness/count invariant; pkg/rebase runs removes/adds through
// simplifyConflict once all substitutions have been applied, and that
// collapses back to Normal when possible.
func NewConflict(removes, adds []Hash) RefTarget {
	return RefTarget{Kind: RefConflict, Removes: removes, Adds: adds}
}

// IsConflict reports whether t is in an unresolved state.
func (t RefTarget) IsConflict() bool {
	return t.Kind == RefConflict
}

// AsConflict returns t normalized to Conflict form, so algebra that
// operates uniformly on removes/adds doesn't need a Normal special case.
func (t RefTarget) AsConflict() (removes, adds []Hash) {
	if t.Kind == RefNormal {
		return nil, []Hash{t.Normal}
	}
	return t.Removes, t.Adds
}

func (t RefTarget) String() string {
	if t.Kind == RefNormal {
		return t.Normal.Prefix()
	}
	var b strings.Builder
	for _, r := range t.Removes {
		b.WriteString("-")
		b.WriteString(r.Prefix())
		b.WriteString(" ")
	}
	for i, a := range t.Adds {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString("+")
		b.WriteString(a.Prefix())
	}
	return b.String()
}

// Reference pairs a ReferenceName with its RefTarget. It covers local
// branches, remote-tracking branches, and tags uniformly; which kind a
// Reference is follows from its Name (IsBranch/IsRemote/IsTag).
type Reference struct {
	Name   ReferenceName
	Target RefTarget
}

func NewReference(name ReferenceName, target RefTarget) *Reference {
	return &Reference{Name: name, Target: target}
}

type ReferenceSlice []*Reference

func (p ReferenceSlice) Len() int           { return len(p) }
func (p ReferenceSlice) Less(i, j int) bool { return p[i].Name < p[j].Name }
func (p ReferenceSlice) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
