package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/PabloGalante/farum-chat/internal/domain"
)

var turnsBucket = []byte("turns")

// JournalStore is a BoltDB-backed domain.TurnJournal. Entries live in one
// bucket keyed by a big-endian sequence so cursor order is record order.
type JournalStore struct {
	db *bolt.DB
}

var _ domain.TurnJournal = (*JournalStore)(nil)

// Open opens (or creates) the journal file at path.
func Open(path string) (*JournalStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating journal directory")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening bolt journal %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(turnsBucket)
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating turns bucket")
	}
	return &JournalStore{db: db}, nil
}

func (s *JournalStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *JournalStore) RecordTurn(_ context.Context, entry *domain.TurnEntry) error {
	if entry == nil {
		return nil
	}
	if entry.ID == "" {
		entry.ID = domain.TurnEntryID(uuid.NewString())
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	enc, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "encoding turn entry")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(turnsBucket)
		seq, e := b.NextSequence()
		if e != nil {
			return e
		}
		return errors.Wrap(b.Put(seqKey(seq), enc), "writing turn entry")
	})
}

// ListTurns walks the bucket newest first and keeps the last `limit`
// matching entries, returned oldest first. If limit <= 0, returns all.
func (s *JournalStore) ListTurns(_ context.Context, sessionID domain.SessionID, limit int) ([]*domain.TurnEntry, error) {
	out := []*domain.TurnEntry{}

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(turnsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var e domain.TurnEntry
			if err := json.Unmarshal(v, &e); err != nil {
				// skip malformed
				continue
			}
			if sessionID != "" && e.SessionID != sessionID {
				continue
			}
			out = append(out, &e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "reading bolt journal")
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
