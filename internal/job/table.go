package job

import "fmt"

// Capacity is the number of background slots in a Table.
const Capacity = 10

// Table is the registry of tracked jobs: one foreground slot plus Capacity
// background slots. A slot whose PID is 0 is empty.
//
// Table does no locking of its own. Callers that share a Table with the
// signal dispatcher must hold the shell's job mask around every call, and
// around every sequence of calls that has to appear atomic.
type Table struct {
	fg Job
	bg [Capacity]Job
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{}
}

// Foreground returns the foreground job, if any.
func (t *Table) Foreground() (Job, bool) {
	return t.fg, t.fg.PID != 0
}

// SetForeground installs j as the foreground job. It returns
// ErrForegroundBusy if a foreground job already exists.
func (t *Table) SetForeground(j Job) error {
	if !j.valid() {
		return fmt.Errorf("%w: pid %d pgid %d", ErrInvalidJob, j.PID, j.PGID)
	}

	if t.fg.PID != 0 {
		return ErrForegroundBusy
	}

	if t.indexOf(j.PID) >= 0 {
		return fmt.Errorf("%w: pid %d is already in the background", ErrInvalidJob, j.PID)
	}

	t.fg = j

	return nil
}

// ClearForeground empties the foreground slot and returns what it held.
func (t *Table) ClearForeground() (Job, bool) {
	j, ok := t.Foreground()
	t.fg = Job{}

	return j, ok
}

// InsertBackground stores j in a free background slot. It returns
// ErrCapacityExceeded when every slot is taken; nothing is evicted.
func (t *Table) InsertBackground(j Job) error {
	if !j.valid() {
		return fmt.Errorf("%w: pid %d pgid %d", ErrInvalidJob, j.PID, j.PGID)
	}

	if t.indexOf(j.PID) >= 0 || t.fg.PID == j.PID {
		return fmt.Errorf("%w: pid %d is already tracked", ErrInvalidJob, j.PID)
	}

	free := t.indexOf(0)
	if free < 0 {
		return ErrCapacityExceeded
	}

	t.bg[free] = j

	return nil
}

// RemoveBackground clears the slot holding pid and returns what it held.
func (t *Table) RemoveBackground(pid int) (Job, bool) {
	i := t.indexOf(pid)
	if pid == 0 || i < 0 {
		return Job{}, false
	}

	j := t.bg[i]
	t.bg[i] = Job{}

	return j, true
}

// LookupBackground returns the background job with the given pid.
func (t *Table) LookupBackground(pid int) (Job, bool) {
	i := t.indexOf(pid)
	if pid == 0 || i < 0 {
		return Job{}, false
	}

	return t.bg[i], true
}

// UpdateStatus sets the status of whichever slot holds pid. Continued is
// stored as Running. NoChange and transitions out of a terminal status are
// rejected and leave the job untouched.
func (t *Table) UpdateStatus(pid int, status Status) error {
	if status == NoChange {
		return fmt.Errorf("%w: %s is not a storable status", ErrInvalidJob, status)
	}

	if status == Continued {
		status = Running
	}

	var j *Job
	if pid != 0 && t.fg.PID == pid {
		j = &t.fg
	} else if i := t.indexOf(pid); pid != 0 && i >= 0 {
		j = &t.bg[i]
	} else {
		return ErrNotTracked
	}

	if !j.Status.canTransition(status) {
		return InvalidTransitionError{PID: pid, From: j.Status, To: status}
	}

	j.Status = status

	return nil
}

// SetGroup records pgid as the process group of the background job pid.
func (t *Table) SetGroup(pid, pgid int) error {
	i := t.indexOf(pid)
	if pid == 0 || i < 0 {
		return ErrNotTracked
	}

	t.bg[i].PGID = pgid

	return nil
}

// ListBackground returns the occupied background slots in slot order.
func (t *Table) ListBackground() []Job {
	jobs := make([]Job, 0, Capacity)
	for _, j := range t.bg {
		if j.PID != 0 {
			jobs = append(jobs, j)
		}
	}

	return jobs
}

// RemoveTerminal clears every background slot whose status is terminal and
// returns the removed jobs in slot order.
func (t *Table) RemoveTerminal() []Job {
	var removed []Job
	for i, j := range t.bg {
		if j.PID != 0 && j.Status.Terminal() {
			removed = append(removed, j)
			t.bg[i] = Job{}
		}
	}

	return removed
}

// Len returns the number of occupied background slots.
func (t *Table) Len() int {
	n := 0
	for _, j := range t.bg {
		if j.PID != 0 {
			n++
		}
	}

	return n
}

// Full reports whether every background slot is occupied.
func (t *Table) Full() bool {
	return t.indexOf(0) < 0
}

func (t *Table) indexOf(pid int) int {
	for i, j := range t.bg {
		if j.PID == pid {
			return i
		}
	}

	return -1
}
