package pathstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/store"
)

// maxListChunks bounds a single prefix scan when listing a document.
const maxListChunks = 10000

// ChunkStore stores chunks as pathstore nodes under
// {prefix}/documents/{docID}/chunks/{position}.
type ChunkStore struct {
	client *Client
	prefix string
}

var _ store.ChunkStore = (*ChunkStore)(nil)

// NewChunkStore wraps client. prefix defaults to "docchunk".
func NewChunkStore(client *Client, prefix string) *ChunkStore {
	if prefix == "" {
		prefix = "docchunk"
	}
	return &ChunkStore{client: client, prefix: prefix}
}

func (s *ChunkStore) docPath(docID string) string {
	return fmt.Sprintf("%s/documents/%s", s.prefix, docID)
}

func (s *ChunkStore) PutChunk(ctx context.Context, docID string, c doctree.Chunk) (string, error) {
	if docID == "" {
		return "", fmt.Errorf("put chunk: empty doc id")
	}
	sc := store.StoredChunk{ID: store.NewULID(), DocID: docID, CreatedAt: time.Now().UTC(), Chunk: c}
	path := fmt.Sprintf("%s/chunks/%06d", s.docPath(docID), c.Position)
	err := s.client.PutNode(ctx, path, NodeRequest{
		Value:      sc,
		MemoryType: "semantic",
		Salience:   0.5,
		Source:     "docchunk:" + docID,
	})
	if err != nil {
		return "", err
	}
	return sc.ID, nil
}

func (s *ChunkStore) ListChunks(ctx context.Context, docID string) ([]store.StoredChunk, error) {
	nodes, err := s.client.ListChildren(ctx, s.docPath(docID)+"/chunks", maxListChunks)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, store.ErrNotFound
	}

	chunks := make([]store.StoredChunk, 0, len(nodes))
	for _, n := range nodes {
		// Values come back as generic JSON; round-trip into the typed form.
		raw, err := json.Marshal(n.Value)
		if err != nil {
			return nil, fmt.Errorf("encode node %s: %w", n.Key, err)
		}
		var sc store.StoredChunk
		if err := json.Unmarshal(raw, &sc); err != nil {
			return nil, fmt.Errorf("decode node %s: %w", n.Key, err)
		}
		chunks = append(chunks, sc)
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Position < chunks[j].Position })
	return chunks, nil
}

func (s *ChunkStore) DeleteDocument(ctx context.Context, docID string) error {
	err := s.client.DeleteNode(ctx, s.docPath(docID), true)
	if errors.Is(err, store.ErrNotFound) {
		return store.ErrNotFound
	}
	return err
}

func (s *ChunkStore) Close() error {
	s.client.Close()
	return nil
}
