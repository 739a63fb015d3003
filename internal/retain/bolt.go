package retain

import (
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/sweeney/contact-sensor/internal/logic"
)

var (
	bucketName    = []byte("retained")
	keyBootCount  = []byte("boot_count")
	keyWakeCause  = []byte("wake_cause")
	keyHardwareID = []byte("hardware_id")
)

// BoltStore persists retention memory in a bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the store at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open retention store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// IncrementBootCount bumps the persisted counter in a single transaction.
func (s *BoltStore) IncrementBootCount() (int, error) {
	var n uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if v := b.Get(keyBootCount); len(v) == 8 {
			n = binary.BigEndian.Uint64(v)
		}
		n++
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, n)
		return b.Put(keyBootCount, buf)
	})
	if err != nil {
		return 0, fmt.Errorf("increment boot count: %w", err)
	}
	return int(n), nil
}

// WakeCause returns the last recorded wake cause, WakeUndefined if none.
func (s *BoltStore) WakeCause() (logic.WakeCause, error) {
	cause := logic.WakeUndefined
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketName).Get(keyWakeCause); len(v) == 8 {
			cause = logic.WakeCause(binary.BigEndian.Uint64(v))
		}
		return nil
	})
	if err != nil {
		return logic.WakeUndefined, fmt.Errorf("read wake cause: %w", err)
	}
	return cause, nil
}

// SetWakeCause records the cause for the next boot.
func (s *BoltStore) SetWakeCause(c logic.WakeCause) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(c))
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(keyWakeCause, buf)
	})
}

// HardwareID returns the persisted id, or "".
func (s *BoltStore) HardwareID() (string, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		id = string(tx.Bucket(bucketName).Get(keyHardwareID))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("read hardware id: %w", err)
	}
	return id, nil
}

// SetHardwareID persists id.
func (s *BoltStore) SetHardwareID(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(keyHardwareID, []byte(id))
	})
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
