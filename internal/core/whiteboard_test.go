package core

import (
	"encoding/json"
	"testing"
)

func TestWhiteboardUndoRedo(t *testing.T) {
	w := NewWhiteboard()

	if w.Undo() {
		t.Fatalf("undo on empty board should report false")
	}
	if w.Redo() {
		t.Fatalf("redo with empty stack should report false")
	}

	a, b := line(0, 0, 1, 1), line(2, 2, 3, 3)
	w.AddStroke(a)
	w.AddStroke(b)

	if !w.Undo() {
		t.Fatalf("expected undo to apply")
	}
	if got := w.Strokes(); len(got) != 1 || got[0][0].X != 0 {
		t.Fatalf("unexpected strokes after undo: %+v", got)
	}
	if w.RedoDepth() != 1 {
		t.Fatalf("expected redo depth 1, got %d", w.RedoDepth())
	}

	if !w.Redo() {
		t.Fatalf("expected redo to apply")
	}
	if got := w.Strokes(); len(got) != 2 || got[1][0].X != 2 {
		t.Fatalf("unexpected strokes after redo: %+v", got)
	}
}

func TestWhiteboardAddStrokeClearsRedo(t *testing.T) {
	w := NewWhiteboard()
	w.AddStroke(line(0, 0, 1, 1))
	w.Undo()
	w.AddStroke(line(4, 4, 5, 5))

	if w.RedoDepth() != 0 {
		t.Fatalf("expected empty redo stack, got %d", w.RedoDepth())
	}
	if w.Redo() {
		t.Fatalf("redo should be a no-op after a new stroke")
	}
}

func TestWhiteboardClear(t *testing.T) {
	w := NewWhiteboard()
	w.AddStroke(line(0, 0, 1, 1))
	w.AddStroke(line(1, 1, 2, 2))
	w.Undo()
	w.Clear()

	if got := w.Strokes(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil stroke list, got %#v", got)
	}
	if w.Redo() {
		t.Fatalf("clear should drop redo history")
	}
}

func TestWhiteboardStrokesAreCopies(t *testing.T) {
	w := NewWhiteboard()
	s := line(0, 0, 1, 1)
	w.AddStroke(s)
	s[0].X = 99

	got := w.Strokes()
	if got[0][0].X != 0 {
		t.Fatalf("stored stroke aliased caller slice")
	}
	got[0] = nil
	if w.Strokes()[0] == nil {
		t.Fatalf("returned list aliased internal state")
	}
}

func TestPointAcceptsWidthOrBrushSize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "width", input: `{"x":1,"y":2,"color":"#f00","width":3}`, want: 3},
		{name: "brushSize", input: `{"x":1,"y":2,"color":"#f00","brushSize":4}`, want: 4},
		{name: "both prefers width", input: `{"x":1,"y":2,"color":"#f00","width":5,"brushSize":6}`, want: 5},
		{name: "neither", input: `{"x":1,"y":2,"color":"#f00"}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Point
			if err := json.Unmarshal([]byte(tt.input), &p); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if p.Width != tt.want || p.X != 1 || p.Y != 2 || p.Color != "#f00" {
				t.Fatalf("unexpected point: %+v", p)
			}
		})
	}
}

func TestPointMarshalEmitsBothWidthFields(t *testing.T) {
	data, err := json.Marshal(Point{X: 1, Y: 2, Color: "#000", Width: 3})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["width"] != 3.0 || raw["brushSize"] != 3.0 {
		t.Fatalf("unexpected encoding: %s", data)
	}
}
