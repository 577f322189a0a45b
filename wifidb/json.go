package wifidb

import (
	"bytes"
	"encoding/json"

	"github.com/go-errors/errors"
	"go.etcd.io/bbolt"
)

func putJSON(bucket *bbolt.Bucket, key []byte, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Errorf("could not marshal data: %v", err)
	}

	return bucket.Put(key, payload)
}

// readJSON reports false when the key holds nothing
func readJSON(bucket *bbolt.Bucket, key []byte, v interface{}) (bool, error) {
	payload := bucket.Get(key)
	if payload == nil || bytes.Equal(payload, []byte("null")) {
		return false, nil
	}

	err := json.Unmarshal(payload, v)
	if err != nil {
		return false, errors.Errorf("could not unmarshal data: %v", err)
	}

	return true, nil
}

func (db *DB) getJSON(bucketName []byte, key []byte, v interface{}) (bool, error) {
	found := false

	err := db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return nil
		}

		var err error
		found, err = readJSON(bucket, key, v)

		return err
	})
	if err != nil {
		return false, err
	}

	return found, nil
}
