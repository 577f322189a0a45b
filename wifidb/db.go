package wifidb

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-errors/errors"
	"go.etcd.io/bbolt"
)

const (
	dbName           = "wifi.db"
	dbFilePermission = 0600
)

var (
	outcomesBucket = []byte("outcomes")
	settingsBucket = []byte("settings")

	lastConnectedKey = []byte("lastConnected")
)

// DB journals connection outcomes. It never stores passphrases.
type DB struct {
	*bbolt.DB
}

// Open opens or creates wifi.db inside dataDir
func Open(dataDir string) (*DB, error) {
	err := os.MkdirAll(dataDir, 0700)
	if err != nil {
		return nil, errors.Errorf("could not create data directory %v: %v", dataDir, err)
	}

	path := filepath.Join(dataDir, dbName)

	bdb, err := bbolt.Open(path, dbFilePermission, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Errorf("could not open %v: %v", path, err)
	}

	db := &DB{bdb}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{outcomesBucket, settingsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		_ = bdb.Close()
		return nil, errors.Errorf("could not create buckets: %v", err)
	}

	return db, nil
}
