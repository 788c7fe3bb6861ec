// Package audit records who changed what on an artifact, as typed entries
// of flat key/value items.
package audit

import "time"

// Entry types.
const (
	TypeArtifactAdd    = "artifact:add"
	TypeArtifactUpdate = "artifact:update"
	TypeArtifactDelete = "artifact:delete"
)

// Item types group the keys inside one entry by what happened to them.
const (
	ItemPropertyAdded      = "property_added"
	ItemPropertyChanged    = "property_changed"
	ItemPropertyRemoved    = "property_removed"
	ItemClassifiersAdded   = "classifiers_added"
	ItemClassifiersRemoved = "classifiers_removed"
)

// Item is one group of key/value observations within an entry. For
// property items the value is the new value (empty for removals); for
// classifier items the key is the classifier URI.
type Item struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
}

// Entry is one immutable audit record. Entries for an artifact are ordered
// by Seq, assigned by the store at persist time.
type Entry struct {
	UUID         string    `json:"uuid"`
	ArtifactUUID string    `json:"artifactUuid"`
	Type         string    `json:"type"`
	Who          string    `json:"who"`
	When         time.Time `json:"when"`
	Seq          int64     `json:"-"`

	Items []Item `json:"items,omitempty"`
}

// Item returns the item with the given type, if present.
func (e *Entry) Item(itemType string) (*Item, bool) {
	for i := range e.Items {
		if e.Items[i].Type == itemType {
			return &e.Items[i], true
		}
	}
	return nil, false
}
