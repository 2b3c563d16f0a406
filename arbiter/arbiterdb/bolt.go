package arbiterdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	sessionsBucket = []byte("sessions")
	metaBucket     = []byte("meta")
	nextIDKey      = []byte("next_game_id")
)

// BoltDB is the on-disk Store backed by a single bbolt file.
type BoltDB struct {
	db *bolt.DB
}

var _ Store = (*BoltDB)(nil)

// NewBoltDB opens (creating if needed) the session store at path.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(sessionsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}
	return &BoltDB{db: db}, nil
}

func sessionKey(id uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], id)
	return k[:]
}

func (b *BoltDB) SaveSession(_ context.Context, rec *SessionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session %d: %w", rec.ID, err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(sessionsBucket)
		if bkt == nil {
			return ErrMainBucketNotFound
		}
		return bkt.Put(sessionKey(rec.ID), raw)
	})
}

func (b *BoltDB) FetchSession(_ context.Context, id uint64) (*SessionRecord, error) {
	var rec *SessionRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(sessionsBucket)
		if bkt == nil {
			return ErrMainBucketNotFound
		}
		raw := bkt.Get(sessionKey(id))
		if raw == nil {
			return ErrSessionNotFound
		}
		rec = new(SessionRecord)
		return json.Unmarshal(raw, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (b *BoltDB) ListSessions(_ context.Context) ([]*SessionRecord, error) {
	var out []*SessionRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(sessionsBucket)
		if bkt == nil {
			return ErrMainBucketNotFound
		}
		return bkt.ForEach(func(_, raw []byte) error {
			rec := new(SessionRecord)
			if err := json.Unmarshal(raw, rec); err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BoltDB) NextGameID(_ context.Context) (uint64, error) {
	var id uint64
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(metaBucket)
		if bkt == nil {
			return ErrMainBucketNotFound
		}
		if raw := bkt.Get(nextIDKey); raw != nil {
			id = binary.BigEndian.Uint64(raw)
		}
		var next [8]byte
		binary.BigEndian.PutUint64(next[:], id+1)
		return bkt.Put(nextIDKey, next[:])
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (b *BoltDB) Close() error {
	return b.db.Close()
}
