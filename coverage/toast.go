package coverage

import (
	"fmt"
	"slices"

	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/projection"
	"github.com/eak1mov/go-skytiles/tile"
)

type faceItem struct {
	geometry projection.FaceGeometry
	inside   bool // the whole subtree is known to intersect the boundary
}

// walkFaces visits, depth first, every face down to maxLevel whose footprint
// intersects the boundary. Children of a face are only visited if the face
// itself was kept.
func walkFaces(t projection.Toast, b geo.Boundary, maxLevel uint32, visit func(projection.FaceGeometry) error) error {
	world := b.IsWorld()
	stack := make([]faceItem, 0, 8+3*int(maxLevel)+8)
	for _, g := range slices.Backward(t.RootFaces()) {
		stack = append(stack, faceItem{geometry: g, inside: world})
	}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		g := item.geometry
		if !item.inside {
			bounds := g.Bounds()
			if !b.Intersects(bounds) {
				continue
			}
			item.inside = b.Covers(bounds)
		}
		if err := visit(g); err != nil {
			return err
		}
		if g.Face.Tile.Level >= maxLevel {
			continue
		}
		children := t.ChildFaces(g)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, faceItem{geometry: children[i], inside: item.inside})
		}
	}
	return nil
}

func toastTiles(t projection.Toast, b geo.Boundary, maxLevel uint32) ([][]tile.ID, error) {
	levels := make([][]tile.ID, maxLevel+1)
	var total int
	err := walkFaces(t, b, maxLevel, func(g projection.FaceGeometry) error {
		id := g.Face.Tile
		levels[id.Level] = append(levels[id.Level], id)
		if total++; total > 8*maxStoredTiles {
			return fmt.Errorf("%w: boundary %v covers too many tiles", tile.ErrOutOfMemory, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, ids := range levels {
		slices.SortFunc(ids, compareRowMajor)
		levels[i] = slices.Clip(slices.Compact(ids))
	}
	return levels, nil
}

// ToastFaces returns the TOAST faces of the level whose footprint intersects
// the boundary. For the whole sphere these are all 8·4^level faces.
func ToastFaces(b geo.Boundary, level uint32) ([]projection.Face, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if level > MaxLevel || projection.FaceCount(level) > 8*maxStoredTiles && b.IsWorld() {
		return nil, fmt.Errorf("%w: level %d has too many faces", tile.ErrOutOfMemory, level)
	}
	var faces []projection.Face
	err := walkFaces(projection.NewToast(), b, level, func(g projection.FaceGeometry) error {
		if g.Face.Tile.Level != level {
			return nil
		}
		if len(faces) >= 8*maxStoredTiles {
			return fmt.Errorf("%w: boundary %v covers too many faces", tile.ErrOutOfMemory, b)
		}
		faces = append(faces, g.Face)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return faces, nil
}
