// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"encoding/json"

	"github.com/klauspost/compress/zstd"
	pkgerrors "github.com/pkg/errors"
	"github.com/wren-vcs/wren/modules/object"
	"github.com/wren-vcs/wren/modules/plumbing"
	"github.com/wren-vcs/wren/pkg/merge"
)

// rootCommit is the canonical, well-known synthetic root every repository
// starts from: zero parents, an empty tree, no author. Content addressing
// makes its id deterministic.
var rootCommit = &object.Commit{Tree: rootTreeID}

// rootTreeID is the id WriteTree assigns to the empty tree.
var rootTreeID = plumbing.SumBytes(mustEncode(object.NewTree(nil)))

// RootCommitID is the well-known id of the synthetic root commit
// (spec.md §3: "the root commit has a distinguished id and empty
// tree"). It is installed into every MemoryStore at construction time.
var RootCommitID = plumbing.SumBytes(mustEncode(rootCommit))

func mustEncode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// MemoryStore is an in-memory CommitStore. Encoded commit/tree bytes are
// zstd-compressed before being kept, mirroring the on-disk object
// format's compression choice even though nothing here touches disk;
// this is also where a real store's read-through I/O would occur, so
// every accessor returns a StoreIoError on (de)serialization failure
// instead of panicking.
type MemoryStore struct {
	commits map[plumbing.Hash][]byte
	trees   map[plumbing.Hash][]byte
	blobs   map[plumbing.Hash][]byte
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	merger  merge.TextMerger
}

// NewMemoryStore builds an empty store seeded with the synthetic root
// commit and an empty root tree, using merger for file-content conflicts
// during MergeTrees (spec.md Non-goal: the core composes an external
// 3-way merger per file rather than implementing one itself).
func NewMemoryStore(merger merge.TextMerger) (*MemoryStore, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "new zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "new zstd decoder")
	}
	s := &MemoryStore{
		commits: make(map[plumbing.Hash][]byte),
		trees:   make(map[plumbing.Hash][]byte),
		blobs:   make(map[plumbing.Hash][]byte),
		enc:     enc,
		dec:     dec,
		merger:  merger,
	}
	emptyTreeID, err := s.WriteTree(context.Background(), object.NewTree(nil))
	if err != nil {
		return nil, err
	}
	if emptyTreeID != rootCommit.Tree {
		panic("wren: root tree id mismatch")
	}
	if _, err := s.WriteCommit(context.Background(), rootCommit); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MemoryStore) GetCommit(_ context.Context, id plumbing.Hash) (*object.Commit, error) {
	raw, ok := s.commits[id]
	if !ok {
		return nil, plumbing.NoSuchObject(id)
	}
	b, err := s.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, NewStoreIoError("decode commit", err)
	}
	var c object.Commit
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, NewStoreIoError("unmarshal commit", err)
	}
	c.Hash = id
	return &c, nil
}

func (s *MemoryStore) WriteCommit(_ context.Context, c *object.Commit) (plumbing.Hash, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return plumbing.ZeroHash, NewStoreIoError("marshal commit", err)
	}
	id := plumbing.SumBytes(b)
	if _, exists := s.commits[id]; !exists {
		s.commits[id] = s.enc.EncodeAll(b, nil)
	}
	return id, nil
}

func (s *MemoryStore) GetTree(_ context.Context, id plumbing.Hash) (*object.Tree, error) {
	raw, ok := s.trees[id]
	if !ok {
		return nil, plumbing.NoSuchObject(id)
	}
	b, err := s.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, NewStoreIoError("decode tree", err)
	}
	var t object.Tree
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, NewStoreIoError("unmarshal tree", err)
	}
	return &t, nil
}

func (s *MemoryStore) WriteTree(_ context.Context, t *object.Tree) (plumbing.Hash, error) {
	t.Sort()
	b, err := json.Marshal(t)
	if err != nil {
		return plumbing.ZeroHash, NewStoreIoError("marshal tree", err)
	}
	id := plumbing.SumBytes(b)
	if _, exists := s.trees[id]; !exists {
		s.trees[id] = s.enc.EncodeAll(b, nil)
	}
	return id, nil
}

// WriteBlob stores file content addressed by its blake3 hash, the FileId
// a TreeEntry.Hash refers to (spec.md §3).
func (s *MemoryStore) WriteBlob(_ context.Context, content []byte) (plumbing.Hash, error) {
	id := plumbing.SumBytes(content)
	if _, exists := s.blobs[id]; !exists {
		s.blobs[id] = s.enc.EncodeAll(content, nil)
	}
	return id, nil
}

func (s *MemoryStore) GetBlob(_ context.Context, id plumbing.Hash) ([]byte, error) {
	raw, ok := s.blobs[id]
	if !ok {
		return nil, plumbing.NoSuchObject(id)
	}
	b, err := s.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, NewStoreIoError("decode blob", err)
	}
	return b, nil
}

func (s *MemoryStore) MergeTrees(ctx context.Context, base, left, right plumbing.Hash) (plumbing.Hash, error) {
	baseTree, err := s.GetTree(ctx, base)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	leftTree, err := s.GetTree(ctx, left)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	rightTree, err := s.GetTree(ctx, right)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	merged, err := merge.MergeTrees(ctx, s.merger, baseTree, leftTree, rightTree,
		func(id plumbing.Hash) ([]byte, error) { return s.GetBlob(ctx, id) },
		func(content []byte) (plumbing.Hash, error) { return s.WriteBlob(ctx, content) },
	)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return s.WriteTree(ctx, merged)
}
