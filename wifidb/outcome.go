package wifidb

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/go-errors/errors"
	"go.etcd.io/bbolt"
)

type OutcomeKind string

const (
	OutcomeConnected    OutcomeKind = "connected"
	OutcomeFailure      OutcomeKind = "failure"
	OutcomeDisconnected OutcomeKind = "disconnected"
)

// Outcome is the end of a connection attempt or of an established connection
type Outcome struct {
	Id      uint64      `json:"id"`
	Time    time.Time   `json:"time"`
	Kind    OutcomeKind `json:"kind"`
	Ssid    string      `json:"ssid,omitempty"`
	Rssi    int         `json:"rssi,omitempty"`
	Channel int         `json:"channel,omitempty"`
	Reason  int         `json:"reason,omitempty"`
}

func outcomeKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

// AddOutcome appends outcome to the journal, assigning its id. A connected
// outcome also becomes the last connected one.
func (db *DB) AddOutcome(outcome *Outcome) error {
	err := db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(outcomesBucket)

		id, err := bucket.NextSequence()
		if err != nil {
			return err
		}

		outcome.Id = id

		err = putJSON(bucket, outcomeKey(id), outcome)
		if err != nil {
			return err
		}

		if outcome.Kind != OutcomeConnected {
			return nil
		}

		return putJSON(tx.Bucket(settingsBucket), lastConnectedKey, outcome)
	})
	if err != nil {
		return errors.Errorf("could not add outcome: %v", err)
	}

	return nil
}

// Outcomes returns up to limit outcomes, newest first. A limit of zero or
// less returns the whole journal.
func (db *DB) Outcomes(limit int) ([]*Outcome, error) {
	outcomes := []*Outcome{}

	err := db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(outcomesBucket).Cursor()

		for k, v := cursor.Last(); k != nil; k, v = cursor.Prev() {
			if limit > 0 && len(outcomes) >= limit {
				break
			}

			outcome := &Outcome{}

			err := json.Unmarshal(v, outcome)
			if err != nil {
				return errors.Errorf("could not unmarshal outcome %x: %v", k, err)
			}

			outcomes = append(outcomes, outcome)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return outcomes, nil
}

// LastConnected returns the most recent connected outcome or nil
func (db *DB) LastConnected() (*Outcome, error) {
	outcome := &Outcome{}

	found, err := db.getJSON(settingsBucket, lastConnectedKey, outcome)
	if err != nil {
		return nil, errors.Errorf("could not read last connection: %v", err)
	}

	if !found {
		return nil, nil
	}

	return outcome, nil
}
