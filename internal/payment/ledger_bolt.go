package payment

import (
	"encoding/json"
	"time"

	bolt "github.com/boltdb/bolt"
)

const ledgerBucket = "processed_callbacks"

// BoltLedger is a file-backed processed-callback store for deployments
// without Postgres. Dedup state has to survive restarts (the provider keeps
// redelivering long after a crash), so the dev mode cannot use the in-memory
// ledger.
type BoltLedger struct {
	db *bolt.DB
}

// NewBoltLedger opens (or creates) the ledger file and ensures the bucket
// exists.
func NewBoltLedger(path string) (*BoltLedger, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(ledgerBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltLedger{db: db}, nil
}

func (l *BoltLedger) Find(merchantOID, eventHash string) (CallbackRecord, bool, error) {
	var rec CallbackRecord
	found := false
	err := l.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(ledgerBucket)).Get([]byte(ledgerKey(merchantOID, eventHash)))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		found = true
		return nil
	})
	return rec, found, err
}

// Append writes the record unless the key already exists; the ledger is
// append-only and the first write wins.
func (l *BoltLedger) Append(rec CallbackRecord) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ledgerBucket))
		key := []byte(ledgerKey(rec.MerchantOrderID, rec.EventHash))
		if b.Get(key) != nil {
			return nil
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(key, raw)
	})
}

func (l *BoltLedger) Close() error {
	return l.db.Close()
}
