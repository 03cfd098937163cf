package store

import (
	"context"
	"io"

	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/constants"
	"github.com/agentstation/gamesync/pkg/logging"
)

// LoadMaster reads the master list, a JSON array of {appid, name}.
//
// Entries without a usable appid are skipped. Duplicate ids collapse into one
// id with the last name winning. A missing file is a MissingInputError and a
// file that is not a JSON array is a ParseError; callers must abort before
// touching any store in either case.
func LoadMaster(ctx context.Context, path string) (*catalog.Master, error) {
	master := &catalog.Master{
		IDs:   make(catalog.IDSet),
		Names: catalog.NewIDMap[string](),
	}

	stats, err := ReadArray(ctx, path, constants.MasterIDField, func(e Entry) error {
		master.Records = append(master.Records, e.Record)
		if !master.IDs.Add(e.ID) {
			master.Duplicates++
		}
		master.Names.Put(e.ID, e.Record.String("name"))
		return nil
	})
	if err != nil {
		return nil, err
	}
	master.Invalid = stats.ParseErrors

	logging.Ctx(ctx).Debug().
		Str("path", path).
		Int("ids", master.IDs.Len()).
		Int("duplicates", master.Duplicates).
		Int("invalid", master.Invalid).
		Msg("Loaded master list")

	return master, nil
}

// SaveMaster atomically writes the master list as an indented JSON array.
func SaveMaster(path string, records []catalog.MasterRecord) error {
	if records == nil {
		records = []catalog.MasterRecord{}
	}
	return WriteAtomic(path, func(w io.Writer) error {
		enc := NewEncoder(w)
		enc.SetIndent("", "    ")
		return enc.Encode(records)
	})
}
