package render

import (
	"github.com/arda-guler/SloshTVC/pkg/entity"
	"github.com/arda-guler/SloshTVC/pkg/physics"
)

// ToggleSelectAll selects every point when nothing is selected and clears
// the selection otherwise
func ToggleSelectAll(sim Simulation) error {
	var ids []entity.ID
	if len(sim.Selection()) == 0 {
		for _, p := range sim.Snapshot().Points {
			ids = append(ids, p.ID)
		}
	}
	return sim.SetSelection(ids)
}

// TogglePick adds the point nearest pos to the selection, or drops it if it
// was already selected. It returns the picked point.
func TogglePick(sim Simulation, pos physics.Vector2D) (entity.ID, error) {
	id, err := sim.ClosestPoint(pos)
	if err != nil {
		return 0, err
	}
	selection := sim.Selection()
	kept := selection[:0]
	for _, s := range selection {
		if s != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(selection) {
		kept = append(kept, id)
	}
	return id, sim.SetSelection(kept)
}
