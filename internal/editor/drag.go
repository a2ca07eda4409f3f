package editor

import (
	"math"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// DragController turns pointer gestures into a single Reorder call
// ─────────────────────────────────────────────────────────────

type DragState int

const (
	DragIdle DragState = iota
	DragDragging
)

func (s DragState) String() string {
	if s == DragDragging {
		return "dragging"
	}
	return "idle"
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is the on-screen box of one block, used as a drop target.
type Rect struct {
	BlockID string  `json:"blockId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	W       float64 `json:"w"`
	H       float64 `json:"h"`
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Target describes the element under the pointer at pointer-down. NoDrag
// is the opt-out marker carried by inputs nested inside a block.
type Target struct {
	Handle bool `json:"handle"`
	NoDrag bool `json:"noDrag"`
}

// DragEvent is one phase of a gesture.
type DragEvent interface {
	eventName() string
}

type PointerDown struct {
	BlockID string
	Target  Target
	At      Point
}

type PointerMove struct{ At Point }

type PointerUp struct{ At Point }

type KeyDown struct{ Key string }

// Cancel aborts the gesture without reordering.
type Cancel struct{ Reason string }

func (PointerDown) eventName() string { return "pointerdown" }
func (PointerMove) eventName() string { return "pointermove" }
func (PointerUp) eventName() string   { return "pointerup" }
func (KeyDown) eventName() string     { return "keydown" }
func (Cancel) eventName() string      { return "cancel" }

// Transition records one state change, for inspection and tests.
type Transition struct {
	Event string    `json:"event"`
	From  DragState `json:"from"`
	To    DragState `json:"to"`
}

// DragResult is what a release (or cancel) resolved to.
type DragResult struct {
	Moved     bool   `json:"moved"`
	Cancelled bool   `json:"cancelled"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
}

type DragController struct {
	mu          sync.Mutex
	list        *BlockList
	state       DragState
	active      string
	pointer     Point
	layout      []Rect
	transitions []Transition
}

// NewDragController binds a controller to list. Removing the dragged block
// from the list cancels the gesture.
func NewDragController(list *BlockList) *DragController {
	d := &DragController{list: list}
	list.Observe(func(c Change) {
		if c.Kind == ChangeRemove {
			d.onRemoved(c.BlockID)
		}
	})
	return d
}

// SetLayout replaces the drop-target boxes, in list order.
func (d *DragController) SetLayout(rects []Rect) {
	d.mu.Lock()
	d.layout = append([]Rect(nil), rects...)
	d.mu.Unlock()
}

func (d *DragController) State() DragState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Active returns the id being dragged, or "".
func (d *DragController) Active() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Transitions returns the transitions of the current or last gesture.
func (d *DragController) Transitions() []Transition {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Transition(nil), d.transitions...)
}

// Handle feeds one event into the state machine.
func (d *DragController) Handle(ev DragEvent) DragResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch e := ev.(type) {
	case PointerDown:
		if d.state != DragIdle || !e.Target.Handle || e.Target.NoDrag {
			return DragResult{}
		}
		if d.list.IndexOf(e.BlockID) < 0 {
			return DragResult{}
		}
		d.transitions = nil
		d.active = e.BlockID
		d.pointer = e.At
		d.move(ev, DragDragging)
		return DragResult{}

	case PointerMove:
		if d.state == DragDragging {
			d.pointer = e.At
		}
		return DragResult{}

	case PointerUp:
		if d.state != DragDragging {
			return DragResult{}
		}
		d.pointer = e.At
		from := d.active
		to := d.nearest(e.At)
		d.active = ""
		d.move(ev, DragIdle)
		if to == "" || to == from {
			return DragResult{From: from, To: to}
		}
		moved := d.list.Reorder(from, to)
		return DragResult{Moved: moved, From: from, To: to}

	case KeyDown:
		if e.Key == "Escape" && d.state == DragDragging {
			return d.cancel(ev)
		}
		return DragResult{}

	case Cancel:
		if d.state == DragDragging {
			return d.cancel(ev)
		}
		return DragResult{}
	}
	return DragResult{}
}

func (d *DragController) onRemoved(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == DragDragging && d.active == id {
		d.cancel(Cancel{Reason: "removed"})
	}
}

func (d *DragController) cancel(ev DragEvent) DragResult {
	from := d.active
	d.active = ""
	d.move(ev, DragIdle)
	return DragResult{Cancelled: true, From: from}
}

func (d *DragController) move(ev DragEvent, to DragState) {
	d.transitions = append(d.transitions, Transition{Event: ev.eventName(), From: d.state, To: to})
	d.state = to
}

// nearest returns the block whose box center is closest to p. Ties keep
// the earlier box.
func (d *DragController) nearest(p Point) string {
	best, bestDist := "", math.Inf(1)
	for _, r := range d.layout {
		c := r.Center()
		dist := math.Hypot(c.X-p.X, c.Y-p.Y)
		if dist < bestDist {
			best, bestDist = r.BlockID, dist
		}
	}
	return best
}
