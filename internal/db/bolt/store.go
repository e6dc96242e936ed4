package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"github.com/kailas-cloud/semsearch/internal/db"
)

// Compile-time check: Store implements db.Cache.
var _ db.Cache = (*Store)(nil)

var bucketKV = []byte("kv")

// Values are stored as an 8-byte big-endian expiry (unix nanos, 0 = none) followed by the payload.
const expiryLen = 8

// Store implements db.Cache on a local bbolt file. Expired keys are evicted lazily on read.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// NewStore opens (or creates) the bolt file at path.
func NewStore(path string) (*Store, error) {
	bdb, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = bdb.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketKV); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketKV, err)
		}
		return nil
	})
	if err != nil {
		_ = bdb.Close()
		return nil, err
	}

	return &Store{db: bdb, now: time.Now}, nil
}

// Ping checks that the file is still open.
func (s *Store) Ping(_ context.Context) error {
	err := s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketKV) == nil {
			return fmt.Errorf("bucket %s missing", bucketKV)
		}
		return nil
	})
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close releases the file lock.
func (s *Store) Close() {
	_ = s.db.Close()
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var (
		out     []byte
		expired bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketKV).Get([]byte(key))
		if raw == nil {
			return db.ErrKeyNotFound
		}
		payload, live := s.decode(raw)
		if !live {
			expired = true
			return db.ErrKeyNotFound
		}
		out = append([]byte(nil), payload...)
		return nil
	})
	if expired {
		_ = s.evict(key)
	}
	if err == db.ErrKeyNotFound {
		return nil, err
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return out, nil
}

// SetWithTTL stores a value with an expiration. A non-positive ttl stores without expiry.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(key), s.encode(value, ttl))
	})
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// Del removes a key. Missing keys are not an error.
func (s *Store) Del(_ context.Context, key string) error {
	if err := s.evict(key); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// IncrBy atomically increments a decimal counter, preserving its expiry.
func (s *Store) IncrBy(_ context.Context, key string, val int64) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketKV)
		var (
			cur    int64
			expiry uint64
		)
		if raw := b.Get([]byte(key)); raw != nil {
			payload, live := s.decode(raw)
			if live {
				n, err := strconv.ParseInt(string(payload), 10, 64)
				if err != nil {
					return fmt.Errorf("value is not an integer: %w", err)
				}
				cur = n
				expiry = binary.BigEndian.Uint64(raw[:expiryLen])
			}
		}
		buf := make([]byte, expiryLen)
		binary.BigEndian.PutUint64(buf, expiry)
		buf = strconv.AppendInt(buf, cur+val, 10)
		return b.Put([]byte(key), buf)
	})
	if err != nil {
		return &db.Error{Op: db.OpIncrBy, Err: err}
	}
	return nil
}

func (s *Store) evict(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketKV).Delete([]byte(key))
	})
}

func (s *Store) encode(value []byte, ttl time.Duration) []byte {
	buf := make([]byte, expiryLen, expiryLen+len(value))
	if ttl > 0 {
		binary.BigEndian.PutUint64(buf, uint64(s.now().Add(ttl).UnixNano()))
	}
	return append(buf, value...)
}

// decode returns the payload and whether the entry is still live.
func (s *Store) decode(raw []byte) ([]byte, bool) {
	if len(raw) < expiryLen {
		return nil, false
	}
	expiry := binary.BigEndian.Uint64(raw[:expiryLen])
	if expiry != 0 && s.now().UnixNano() >= int64(expiry) {
		return nil, false
	}
	return raw[expiryLen:], true
}
