package snapshot

import (
	"context"

	"github.com/fleetops/fleetctl/internal/bulk"
)

// FleetSave captures a snapshot named name for every entity in [start, end]
// through the bulk engine. Ids with no backing entity are recorded skipped
// rather than failed, so sparse ranges sweep cleanly.
func (s *Store) FleetSave(ctx context.Context, p Provider, typ string, start, end int, name string, opts bulk.Options) (*bulk.Run, error) {
	fn := func(ctx context.Context, id int) error {
		if _, err := p.Status(ctx, typ, id); err != nil {
			return bulk.Skip("no such entity")
		}
		_, err := s.Save(ctx, p, typ, id, name)
		return err
	}
	return bulk.Execute(ctx, start, end, fn, opts)
}
