package job

// Job is a process tracked by the shell.
type Job struct {
	PID int

	// PGID is 0 when the process belongs to the shell's own process group,
	// and equal to PID when the process leads its own group.
	PGID int

	Status Status
}

// New returns a Running job for a freshly spawned process.
func New(pid int, detached bool) Job {
	j := Job{PID: pid, Status: Running}
	if detached {
		j.PGID = pid
	}

	return j
}

// GroupLeader reports whether the job leads its own process group.
func (j Job) GroupLeader() bool {
	return j.PGID != 0 && j.PGID == j.PID
}

// SignalTarget is the pid to pass to kill(2): the whole group for a group
// leader, the single process otherwise.
func (j Job) SignalTarget() int {
	if j.GroupLeader() {
		return -j.PGID
	}

	return j.PID
}

func (j Job) valid() bool {
	return j.PID > 0 && (j.PGID == 0 || j.PGID == j.PID)
}
