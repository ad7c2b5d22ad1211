package core

import "encoding/json"

// Point is a single sample of a pen gesture.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// pointWire accepts both "width" and the legacy "brushSize" field.
type pointWire struct {
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Color     string   `json:"color"`
	Width     *float64 `json:"width,omitempty"`
	BrushSize *float64 `json:"brushSize,omitempty"`
}

// UnmarshalJSON decodes a point, preferring width over brushSize.
func (p *Point) UnmarshalJSON(data []byte) error {
	var w pointWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.X, p.Y, p.Color = w.X, w.Y, w.Color
	switch {
	case w.Width != nil:
		p.Width = *w.Width
	case w.BrushSize != nil:
		p.Width = *w.BrushSize
	default:
		p.Width = 0
	}
	return nil
}

// MarshalJSON emits both width and brushSize so older clients can render strokes.
func (p Point) MarshalJSON() ([]byte, error) {
	width := p.Width
	return json.Marshal(pointWire{X: p.X, Y: p.Y, Color: p.Color, Width: &width, BrushSize: &width})
}

// Stroke is one continuous pen gesture. Strokes are never edited after being appended.
type Stroke []Point

// Whiteboard holds a room's stroke log and redo stack. Undo and redo are shared
// by every member of the room. It is not safe for concurrent use; the owning
// room actor serializes access.
type Whiteboard struct {
	strokes []Stroke
	redo    []Stroke
}

// NewWhiteboard returns an empty whiteboard.
func NewWhiteboard() *Whiteboard {
	return &Whiteboard{}
}

// AddStroke appends a stroke and drops any redo history.
func (w *Whiteboard) AddStroke(s Stroke) {
	w.strokes = append(w.strokes, cloneStroke(s))
	w.redo = nil
}

// Undo moves the newest stroke to the redo stack. It reports false when there
// was nothing to undo.
func (w *Whiteboard) Undo() bool {
	n := len(w.strokes)
	if n == 0 {
		return false
	}
	last := w.strokes[n-1]
	w.strokes[n-1] = nil
	w.strokes = w.strokes[:n-1]
	w.redo = append(w.redo, last)
	return true
}

// Redo restores the most recently undone stroke. It reports false when the
// redo stack is empty.
func (w *Whiteboard) Redo() bool {
	n := len(w.redo)
	if n == 0 {
		return false
	}
	last := w.redo[n-1]
	w.redo[n-1] = nil
	w.redo = w.redo[:n-1]
	w.strokes = append(w.strokes, last)
	return true
}

// Clear empties both the stroke log and the redo stack.
func (w *Whiteboard) Clear() {
	w.strokes = nil
	w.redo = nil
}

// Strokes returns a copy of the current stroke list.
func (w *Whiteboard) Strokes() []Stroke {
	out := make([]Stroke, len(w.strokes))
	copy(out, w.strokes)
	return out
}

// RedoDepth is the number of strokes available to redo.
func (w *Whiteboard) RedoDepth() int {
	return len(w.redo)
}

func cloneStroke(s Stroke) Stroke {
	out := make(Stroke, len(s))
	copy(out, s)
	return out
}
