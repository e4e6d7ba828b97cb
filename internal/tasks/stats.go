package tasks

// Counts summarizes a task collection by status.
type Counts struct {
	Total            int            `json:"total"`
	ByStatus         map[Status]int `json:"byStatus"`
	Subtasks         int            `json:"subtasks"`
	SubtasksByStatus map[Status]int `json:"subtasksByStatus"`
}

// Stats counts top-level tasks and subtasks per status.
func Stats(ts []Task) Counts {
	c := Counts{
		ByStatus:         make(map[Status]int),
		SubtasksByStatus: make(map[Status]int),
	}
	for i := range ts {
		c.Total++
		c.ByStatus[ts[i].Status]++
		for _, s := range ts[i].Subtasks {
			c.Subtasks++
			c.SubtasksByStatus[s.Status]++
		}
	}
	return c
}

// Done returns the number of finished top-level tasks (done or cancelled).
func (c Counts) Done() int {
	return c.ByStatus[StatusDone] + c.ByStatus[StatusCancelled]
}

// Progress returns the completion percentage of top-level tasks.
func (c Counts) Progress() float64 {
	if c.Total == 0 {
		return 100.0
	}
	return float64(c.Done()) / float64(c.Total) * 100.0
}

// SubtaskProgress returns the completion percentage of subtasks.
func (c Counts) SubtaskProgress() float64 {
	if c.Subtasks == 0 {
		return 100.0
	}
	done := c.SubtasksByStatus[StatusDone] + c.SubtasksByStatus[StatusCancelled]
	return float64(done) / float64(c.Subtasks) * 100.0
}

// IsComplete reports whether every top-level task is finished.
func (c Counts) IsComplete() bool {
	return c.Total > 0 && c.Done() == c.Total
}
