package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/dgallion1/docchunk/internal/doctree"
)

var documentsBucket = []byte("documents")

// BoltStore keeps chunks in a bbolt file: one nested bucket per document,
// keyed by big-endian position so cursor order is document order.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens (creating if needed) the database at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(documentsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init bolt: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func positionKey(pos int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(pos))
	return k
}

func (s *BoltStore) PutChunk(ctx context.Context, docID string, c doctree.Chunk) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if docID == "" {
		return "", fmt.Errorf("put chunk: empty doc id")
	}
	sc := StoredChunk{ID: NewULID(), DocID: docID, CreatedAt: time.Now().UTC(), Chunk: c}
	data, err := json.Marshal(sc)
	if err != nil {
		return "", fmt.Errorf("marshal chunk: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		doc, err := tx.Bucket(documentsBucket).CreateBucketIfNotExists([]byte(docID))
		if err != nil {
			return err
		}
		return doc.Put(positionKey(c.Position), data)
	})
	if err != nil {
		return "", fmt.Errorf("put chunk %s/%d: %w", docID, c.Position, err)
	}
	return sc.ID, nil
}

func (s *BoltStore) ListChunks(ctx context.Context, docID string) ([]StoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var chunks []StoredChunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		doc := tx.Bucket(documentsBucket).Bucket([]byte(docID))
		if doc == nil {
			return ErrNotFound
		}
		return doc.ForEach(func(_, v []byte) error {
			var sc StoredChunk
			if err := json.Unmarshal(v, &sc); err != nil {
				return fmt.Errorf("decode chunk: %w", err)
			}
			chunks = append(chunks, sc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func (s *BoltStore) DeleteDocument(ctx context.Context, docID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.Bucket(documentsBucket).DeleteBucket([]byte(docID))
		if errors.Is(err, bbolt.ErrBucketNotFound) {
			return ErrNotFound
		}
		return err
	})
}

// Documents returns the IDs of all stored documents.
func (s *BoltStore) Documents(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(documentsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if v == nil { // nested bucket
				ids = append(ids, string(k))
			}
		}
		return nil
	})
	return ids, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
