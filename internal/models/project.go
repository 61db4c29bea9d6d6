package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/lapx/internal/shared"
)

// MaxLayers is the number of background art slots a project can hold.
const MaxLayers = 3

// LayerRole names how a background image is rendered.
type LayerRole int

const (
	LayerColor LayerRole = iota
	LayerGray
	LayerLinear
)

func (r LayerRole) String() string {
	switch r {
	case LayerColor:
		return "color"
	case LayerGray:
		return "gray"
	case LayerLinear:
		return "linear"
	default:
		return "unknown"
	}
}

// LoadOrder lists layer roles in the order backgrounds are loaded.
var LoadOrder = []LayerRole{LayerColor, LayerGray, LayerLinear}

// Project is the persisted descriptor of one chart project (the .lap file).
//
// Background paths are stored outermost-first: with N layers present, slot N-1 is
// the color layer, N-2 the gray layer and N-3 the linear highlight. Occupied slots
// are always contiguous from slot 0.
type Project struct {
	Name          string  `json:"name"`
	Designer      string  `json:"designer"`
	ProjectFolder string  `json:"projectFolder"`
	ChartPath     string  `json:"chartPath"`
	MusicPath     string  `json:"musicPath"`
	BGA0Path      *string `json:"bga0Path"`
	BGA1Path      *string `json:"bga1Path"`
	BGA2Path      *string `json:"bga2Path"`
}

// IsValid reports whether the project has the metadata required to load or release it.
func (p *Project) IsValid() bool {
	return p.Validate() == nil
}

// Validate returns an [shared.ErrValidation] error naming the first missing field.
func (p *Project) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	case strings.TrimSpace(p.Designer) == "":
		return fmt.Errorf("%w: designer is required", shared.ErrValidation)
	case strings.TrimSpace(p.ChartPath) == "":
		return fmt.Errorf("%w: chart path is required", shared.ErrValidation)
	}
	return nil
}

func (p *Project) slots() [MaxLayers]**string {
	return [MaxLayers]**string{&p.BGA0Path, &p.BGA1Path, &p.BGA2Path}
}

// Layer returns the path stored in slot i, or "" when the slot is empty.
func (p *Project) Layer(i int) string {
	if i < 0 || i >= MaxLayers {
		return ""
	}
	if v := *p.slots()[i]; v != nil {
		return *v
	}
	return ""
}

func (p *Project) setLayer(i int, path string) {
	slot := p.slots()[i]
	if path == "" {
		*slot = nil
		return
	}
	*slot = &path
}

// Layers returns the occupied background paths in storage order.
func (p *Project) Layers() []string {
	layers := make([]string, 0, MaxLayers)
	for i := range MaxLayers {
		if path := p.Layer(i); path != "" {
			layers = append(layers, path)
		}
	}
	return layers
}

// BGACount returns the number of occupied background slots.
func (p *Project) BGACount() int {
	return len(p.Layers())
}

// LayerFor returns the path rendered in role, given the current layer count.
func (p *Project) LayerFor(role LayerRole) (string, bool) {
	idx := p.BGACount() - 1 - int(role)
	if idx < 0 {
		return "", false
	}
	return p.Layer(idx), true
}

// AddLayer stores path in the first free slot and cascades it down to slot 0.
//
// Returns false without changes when all slots are taken or path is empty.
func (p *Project) AddLayer(path string) bool {
	n := p.BGACount()
	if n >= MaxLayers || path == "" {
		return false
	}

	p.setLayer(n, path)
	for i := n - 1; i >= 0; i-- {
		p.swap(i)
	}
	return true
}

// RemoveLayer drops the slot-0 image and cascades the remaining layers inward.
//
// Returns false when there is nothing to remove.
func (p *Project) RemoveLayer() bool {
	n := p.BGACount()
	if n == 0 {
		return false
	}

	for i := 0; i < n-1; i++ {
		p.swap(i)
	}
	p.setLayer(n-1, "")
	return true
}

// SwapAdjacentLayers exchanges slots i and i+1. Both slots must be occupied.
func (p *Project) SwapAdjacentLayers(i int) error {
	if i < 0 || i+1 >= p.BGACount() {
		return fmt.Errorf("%w: cannot swap layers %d and %d with %d layers", shared.ErrInvalidArgument, i, i+1, p.BGACount())
	}
	p.swap(i)
	return nil
}

func (p *Project) swap(i int) {
	s := p.slots()
	*s[i], *s[i+1] = *s[i+1], *s[i]
}

// Clone returns a deep copy so callers can mutate without touching the live project.
func (p *Project) Clone() *Project {
	c := *p
	for i := range MaxLayers {
		c.setLayer(i, p.Layer(i))
	}
	return &c
}
