package enhancer

import (
	"context"
	"slices"

	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/store"
)

// FromMaster turns the master list into tasks in file order, or newest
// first when reverse is set.
func FromMaster(m *catalog.Master, reverse bool) []Task {
	ids := m.Names.Order()
	tasks := make([]Task, 0, len(ids))
	for _, id := range ids {
		tasks = append(tasks, Task{ID: id, Name: m.Name(id)})
	}
	if reverse {
		slices.Reverse(tasks)
	}
	return tasks
}

// FromStore turns the records of an NDJSON store into tasks carrying the
// record as input. The last record for an id wins.
func FromStore(ctx context.Context, path, idField string) ([]Task, store.Stats, error) {
	records := catalog.NewIDMap[*catalog.Record]()
	stats, err := store.Scan(ctx, path, idField, func(e store.Entry) error {
		records.Put(e.ID, e.Record)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	tasks := make([]Task, 0, records.Len())
	for _, id := range records.Order() {
		rec, _ := records.Get(id)
		tasks = append(tasks, Task{ID: id, Name: rec.String("name"), Input: rec})
	}
	return tasks, stats, nil
}
