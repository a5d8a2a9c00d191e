package record

import "time"

// Type tells where a record came from.
type Type string

const (
	TypeSearch   Type = "search"   // produced by a search, not saved
	TypeBookmark Type = "bookmark" // loaded from the remote store
)

// Raw is the stored document of an email record.
type Raw struct {
	UserID        string    `json:"userId,omitempty"`
	UserAddedDate time.Time `json:"userAddedDate,omitzero"`
	Address       string    `json:"address"`
	Link          string    `json:"link"`
	CreationDate  time.Time `json:"creationDate,omitzero"`
	SearchEngine  string    `json:"searchEngine"`
	SearchKey     string    `json:"searchKey"`
	Comments      string    `json:"comments,omitempty"`
	Type          Type      `json:"type,omitempty"`
}

// Record is an email record as handed to clients: the stored document, its
// key and view state.
type Record struct {
	ID string `json:"id"`
	Raw

	// View state, never persisted.
	Selected   bool `json:"selected"`
	Expanded   bool `json:"expanded"`
	Bookmarked bool `json:"bookmarked"`
}

// FromRaw builds a Record of the given type with default view state.
func FromRaw(id string, raw Raw, typ Type) Record {
	raw.Type = typ
	return Record{
		ID:         id,
		Raw:        raw,
		Bookmarked: typ == TypeBookmark,
	}
}
