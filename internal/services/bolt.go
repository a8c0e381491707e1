package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vilaw/vilaw-web/internal/models"
	bolt "go.etcd.io/bbolt"
)

// BoltDB implements the Journal interface using a BoltDB backend. It keeps one record per streamed
// answer so that failures and slow sessions can be looked at after the fact.
type BoltDB struct {
	db *bolt.DB
}

var sessionsBucket = []byte("sessions")

// NewBoltDB creates a new BoltDB instance with the specified file path. It initializes the database
// with required buckets and returns an error if the database cannot be opened or initialized. The
// database file is created with 0600 permissions if it doesn't exist.
func NewBoltDB(path string) (BoltDB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltDB{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return BoltDB{}, fmt.Errorf("failed to create buckets: %w", err)
	}

	return BoltDB{db: db}, nil
}

// Close releases the database file.
func (b BoltDB) Close() error {
	return b.db.Close()
}

// AddSession stores a new session record. The returned key combines a sequence number with the
// session ID, so keys sort in the order sessions started. The key is needed to update the record.
func (b BoltDB) AddSession(_ context.Context, rec models.SessionRecord) (string, error) {
	var key string
	err := b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(sessionsBucket)

		seq, err := bk.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		key = fmt.Sprintf("%012d-%s", seq, rec.ID)

		v, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		return bk.Put([]byte(key), v)
	})

	return key, err
}

// UpdateSession replaces the record stored under key. If there is no such record, the operation is
// silently ignored.
func (b BoltDB) UpdateSession(_ context.Context, key string, rec models.SessionRecord) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(sessionsBucket)
		if bk.Get([]byte(key)) == nil {
			return nil
		}

		v, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		return bk.Put([]byte(key), v)
	})
}

// Sessions retrieves the stored session records, most recent first. At most limit records are returned;
// a limit of zero or less returns all of them.
func (b BoltDB) Sessions(_ context.Context, limit int) ([]models.SessionRecord, error) {
	var recs []models.SessionRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(sessionsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(recs) == limit {
				break
			}
			var rec models.SessionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal session: %w", err)
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}
