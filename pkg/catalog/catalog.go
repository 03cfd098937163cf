// Package catalog defines the data model shared by every gamesync store:
// order-preserving JSON records, id sets, and the last-write-wins id mapping
// used for lookups and joins.
//
// The master list is the authoritative set of ids. Every record in a derived
// store is keyed by one of those ids; a record whose id has left the master
// list is obsolete.
package catalog

// MasterRecord is one entry of the master list.
type MasterRecord struct {
	AppID int64  `json:"appid"`
	Name  string `json:"name"`
}

// Master is the loaded master list.
type Master struct {
	// Records holds the entries in file order, extra fields included.
	Records []*Record

	// IDs is the set of valid ids.
	IDs IDSet

	// Names maps id to display name; the last entry for an id wins.
	Names *IDMap[string]

	// Duplicates counts entries whose id appeared earlier in the file.
	Duplicates int

	// Invalid counts entries without a usable id.
	Invalid int
}

// Name returns the display name for id.
func (m *Master) Name(id int64) string {
	name, _ := m.Names.Get(id)
	return name
}
