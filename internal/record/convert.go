// Package record turns raw email documents, either generated placeholders or
// documents from the remote store, into the records served to clients.
package record

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoSamples       = errors.New("no sample records to pick from")
	ErrInvalidCount    = errors.New("record count must be positive")
	ErrMissingPayload  = errors.New("no record collection in payload")
	ErrEmptyCollection = errors.New("record collection is empty")
)

var (
	newID = uuid.NewString
	now   = time.Now
)

// Payload is the input of Convert. Generated selects between the sample
// fields (Samples, Count) and the store fields (Records, Limit).
type Payload struct {
	Generated bool

	Samples []Raw
	Count   int

	Records *Collection
	Limit   int

	// Rand drives sample picking; nil uses the global source.
	Rand *rand.Rand
}

// Convert builds records from p.
//
// In generated mode Count distinct samples are picked at random and given
// fresh ids; Count is clamped to the number of samples. In store mode the
// entries keep their store ids and order, truncated to the first Limit
// entries when Limit is positive.
func Convert(p Payload) ([]Record, error) {
	if p.Generated {
		return fromSamples(p)
	}
	return fromCollection(p)
}

func fromSamples(p Payload) ([]Record, error) {
	if len(p.Samples) == 0 {
		return nil, ErrNoSamples
	}
	if p.Count <= 0 {
		return nil, ErrInvalidCount
	}
	count := min(p.Count, len(p.Samples))

	intN := rand.IntN
	if p.Rand != nil {
		intN = p.Rand.IntN
	}

	picked := make(map[int]struct{}, count)
	records := make([]Record, 0, count)
	for len(records) < count {
		i := intN(len(p.Samples))
		if _, ok := picked[i]; ok {
			continue
		}
		picked[i] = struct{}{}
		records = append(records, FromRaw(newID(), p.Samples[i], TypeSearch))
	}
	return records, nil
}

func fromCollection(p Payload) ([]Record, error) {
	if p.Records == nil {
		return nil, ErrMissingPayload
	}
	entries := p.Records.Entries
	if len(entries) == 0 {
		return nil, ErrEmptyCollection
	}
	if p.Limit > 0 && len(entries) > p.Limit {
		entries = entries[:p.Limit]
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, FromRaw(e.ID, e.Raw, TypeBookmark))
	}
	return records, nil
}

// PrepareForPersistence returns the document to store for r on behalf of
// ownerID: id and view state dropped, owner and time of adding stamped.
// It returns nil when r or ownerID is missing.
func PrepareForPersistence(ownerID string, r *Record) *Raw {
	if r == nil || ownerID == "" {
		return nil
	}
	raw := r.Raw
	raw.UserID = ownerID
	raw.UserAddedDate = now().UTC()
	raw.Type = TypeBookmark
	return &raw
}
