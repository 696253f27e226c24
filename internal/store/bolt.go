package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/rcliao/firerecord/internal/metrics"
)

var rootsBucket = []byte("roots")

// BoltStore is a local Client backed by a bbolt file. Like SQLiteStore it
// keeps one JSON document per top-level path segment; queries are evaluated
// in Go over the addressed node.
type BoltStore struct {
	db      *bolt.DB
	keys    *keySource
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// BoltOption configures a BoltStore.
type BoltOption func(*BoltStore)

func WithBoltLogger(l zerolog.Logger) BoltOption {
	return func(s *BoltStore) { s.logger = l }
}

func WithBoltMetrics(m *metrics.Collector) BoltOption {
	return func(s *BoltStore) { s.metrics = m }
}

// NewBoltStore opens or creates a bbolt database at path.
func NewBoltStore(path string, opts ...BoltOption) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	s := &BoltStore{db: db, keys: newKeySource(), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Request implements Client. The context is only checked before the
// transaction starts; bbolt transactions are not cancellable.
func (s *BoltStore) Request(ctx context.Context, verb Verb, path string, q *Query, body any) (any, error) {
	started := time.Now()
	resp, err := s.request(ctx, verb, path, q, body)
	s.metrics.Observe(string(verb), outcome(resp, err), started)
	s.logger.Debug().Str("verb", string(verb)).Str("path", path).Err(err).Msg("store request")
	return resp, err
}

func (s *BoltStore) request(ctx context.Context, verb Verb, path string, q *Query, body any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	segs, rejected := checkPath(path)
	if rejected != nil {
		return rejected, nil
	}
	if verb == Get {
		return s.get(segs, q)
	}
	return s.write(verb, segs, body)
}

func (s *BoltStore) get(segs []string, q *Query) (any, error) {
	var resp any
	err := s.db.View(func(tx *bolt.Tx) error {
		doc, err := loadRoot(tx, segs[0])
		if err != nil {
			return err
		}
		node := descend(doc, segs[1:])
		if q == nil {
			resp = node
			return nil
		}
		matched, rejected := matchChildren(node, q)
		if rejected != nil {
			resp = rejected
			return nil
		}
		resp = matched
		return nil
	})
	return resp, err
}

func (s *BoltStore) write(verb Verb, segs []string, body any) (any, error) {
	value, err := normalizeJSON(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	root, rest := segs[0], segs[1:]

	var resp any
	err = s.db.Update(func(tx *bolt.Tx) error {
		doc, err := loadRoot(tx, root)
		if err != nil {
			return err
		}
		doc, out, rejected := applyWrite(doc, verb, rest, value, s.keys.next)
		if rejected != nil {
			resp = rejected
			return nil
		}
		resp = out

		b := tx.Bucket(rootsBucket)
		if doc == nil {
			return b.Delete([]byte(root))
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return b.Put([]byte(root), raw)
	})
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", root, err)
	}
	return resp, nil
}

func loadRoot(tx *bolt.Tx, root string) (any, error) {
	raw := tx.Bucket(rootsBucket).Get([]byte(root))
	if raw == nil {
		return nil, nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", root, err)
	}
	return doc, nil
}
