package core

import (
	"fmt"
	"slices"
	"strings"
)

// Column identifies a task board column.
type Column string

const (
	ColumnTodo       Column = "todo"
	ColumnInProgress Column = "inprogress"
	ColumnDone       Column = "done"
)

// BoardColumns is the fixed column order of every board.
var BoardColumns = [...]Column{ColumnTodo, ColumnInProgress, ColumnDone}

// Valid reports whether c is one of the known board columns.
func (c Column) Valid() bool {
	switch c {
	case ColumnTodo, ColumnInProgress, ColumnDone:
		return true
	default:
		return false
	}
}

// Status labels shown to clients.
const (
	StatusTodo       = "To Do"
	StatusInProgress = "In Progress ⏳"
	StatusDone       = "Done ✅"
)

// StatusFor derives the display label of a task in column c.
func StatusFor(c Column) string {
	switch c {
	case ColumnInProgress:
		return StatusInProgress
	case ColumnDone:
		return StatusDone
	default:
		return StatusTodo
	}
}

// Task is a single card. Column is the source of truth for placement.
type Task struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Done   bool   `json:"done"`
	Status string `json:"status,omitempty"`
	Column Column `json:"column,omitempty"`
}

// Columns is the wire document: column id to ordered tasks.
type Columns map[Column][]Task

// EmptyColumns returns a document with every column present and empty.
func EmptyColumns() Columns {
	cols := make(Columns, len(BoardColumns))
	for _, c := range BoardColumns {
		cols[c] = []Task{}
	}
	return cols
}

// TaskBoard is a room's shared kanban board. Tasks are indexed by id and each
// task records its own column; the per-column order lists are an index over
// that. Access is serialized by the owning room actor.
type TaskBoard struct {
	tasks    map[string]*Task
	order    map[Column][]string
	revision uint64
}

// NewTaskBoard returns an empty board.
func NewTaskBoard() *TaskBoard {
	b := &TaskBoard{
		tasks: make(map[string]*Task),
		order: make(map[Column][]string, len(BoardColumns)),
	}
	for _, c := range BoardColumns {
		b.order[c] = nil
	}
	return b
}

// Revision increases by one with every successful mutation.
func (b *TaskBoard) Revision() uint64 {
	return b.revision
}

// Len returns the number of tasks on the board.
func (b *TaskBoard) Len() int {
	return len(b.tasks)
}

// Get returns a copy of the task with the given id.
func (b *TaskBoard) Get(id string) (Task, bool) {
	t, ok := b.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Snapshot builds the column document from the task index.
func (b *TaskBoard) Snapshot() Columns {
	cols := EmptyColumns()
	for _, c := range BoardColumns {
		for _, id := range b.order[c] {
			t, ok := b.tasks[id]
			if !ok || t.Column != c {
				continue
			}
			cols[c] = append(cols[c], *t)
		}
	}
	return cols
}

// ValidateColumns checks a whole document: only known columns and task ids
// unique across all columns.
func ValidateColumns(cols Columns) error {
	seen := make(map[string]Column)
	for c, tasks := range cols {
		if !c.Valid() {
			return fmt.Errorf("unknown column %q", c)
		}
		for _, t := range tasks {
			if strings.TrimSpace(t.ID) == "" {
				return fmt.Errorf("task in column %q has empty id", c)
			}
			if prev, dup := seen[t.ID]; dup {
				return fmt.Errorf("task id %q appears in %q and %q", t.ID, prev, c)
			}
			seen[t.ID] = c
		}
	}
	return nil
}

// Replace adopts cols wholesale. The done flag and status label are taken as
// given; only the column field is rewritten from the containing column.
func (b *TaskBoard) Replace(cols Columns) error {
	if err := ValidateColumns(cols); err != nil {
		return err
	}
	b.tasks = make(map[string]*Task)
	for _, c := range BoardColumns {
		ids := make([]string, 0, len(cols[c]))
		for _, t := range cols[c] {
			task := t
			task.Column = c
			b.tasks[task.ID] = &task
			ids = append(ids, task.ID)
		}
		b.order[c] = ids
	}
	b.revision++
	return nil
}

// Add appends a new task to the todo column.
func (b *TaskBoard) Add(id, text string) (Task, error) {
	text = strings.TrimSpace(text)
	if id == "" || text == "" {
		return Task{}, ErrBadRequest
	}
	if _, exists := b.tasks[id]; exists {
		return Task{}, ErrTaskExists
	}
	task := &Task{ID: id, Text: text, Column: ColumnTodo, Status: StatusFor(ColumnTodo)}
	b.tasks[id] = task
	b.order[ColumnTodo] = append(b.order[ColumnTodo], id)
	b.revision++
	return *task, nil
}

// Move places a task in column to at index (clamped). Moving into done marks
// the task done; moving out of done clears it.
func (b *TaskBoard) Move(id string, to Column, index int) (Task, error) {
	if !to.Valid() {
		return Task{}, ErrBadRequest
	}
	task, ok := b.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	b.detach(task)
	b.insert(task, to, index)
	task.Done = to == ColumnDone
	task.Status = StatusFor(to)
	b.revision++
	return *task, nil
}

// Toggle flips the done flag and moves the task to done or inprogress.
func (b *TaskBoard) Toggle(id string) (Task, error) {
	task, ok := b.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	b.detach(task)
	task.Done = !task.Done
	to := ColumnInProgress
	if task.Done {
		to = ColumnDone
	}
	b.insert(task, to, len(b.order[to]))
	task.Status = StatusFor(to)
	b.revision++
	return *task, nil
}

// Delete removes a task.
func (b *TaskBoard) Delete(id string) error {
	task, ok := b.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	b.detach(task)
	delete(b.tasks, id)
	b.revision++
	return nil
}

func (b *TaskBoard) detach(t *Task) {
	ids := b.order[t.Column]
	if i := slices.Index(ids, t.ID); i >= 0 {
		b.order[t.Column] = slices.Delete(ids, i, i+1)
	}
}

func (b *TaskBoard) insert(t *Task, to Column, index int) {
	ids := b.order[to]
	index = max(0, min(index, len(ids)))
	b.order[to] = slices.Insert(ids, index, t.ID)
	t.Column = to
}
