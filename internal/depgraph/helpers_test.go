package depgraph

import (
	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskid"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/tasks"
)

// ids parses literals such as 2 or "3.1".
func ids(raw ...any) []taskid.ID {
	out := make([]taskid.ID, len(raw))
	for i, r := range raw {
		out[i] = taskid.MustParse(r)
	}
	return out
}

func task(id int, deps ...any) tasks.Task {
	return tasks.Task{ID: id, Title: "Task", Status: tasks.StatusPending, Dependencies: ids(deps...)}
}

func sub(id int, deps ...any) tasks.Subtask {
	return tasks.Subtask{ID: id, Title: "Subtask", Status: tasks.StatusPending, Dependencies: ids(deps...)}
}

func withSubtasks(t tasks.Task, subs ...tasks.Subtask) tasks.Task {
	t.Subtasks = subs
	return t
}

func equalIDs(a, b []taskid.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// fixtures covers every issue class, alone and combined.
func fixtures() map[string][]tasks.Task {
	return map[string][]tasks.Task{
		"clean": {
			task(1),
			task(2, 1),
			withSubtasks(task(3, 2), sub(1), sub(2, "3.1")),
		},
		"two cycle": {
			task(1, 2),
			task(2, 1),
		},
		"self": {
			task(1, 1),
		},
		"duplicates": {
			task(1),
			task(2),
			task(3),
			task(4, 2, 2, 3, 3, 3),
		},
		"missing": {
			task(1, 99, "1.7"),
			withSubtasks(task(2), sub(1, 42)),
		},
		"subtask cycle": {
			withSubtasks(task(1), sub(1, "1.3"), sub(2, "1.1"), sub(3, "1.2")),
		},
		"cross level cycle": {
			withSubtasks(task(1, "2.1"), sub(1)),
			withSubtasks(task(2), sub(1, 1)),
		},
		"no independent subtask": {
			task(1),
			task(2),
			withSubtasks(task(3), sub(1, 2), sub(2, 1)),
		},
		"everything": {
			task(1, 1, 2, 2, 5),
			task(2, 3),
			task(3, 1),
			withSubtasks(task(4, "4.1", "4.1"), sub(1, "4.2", "4.2"), sub(2, "4.1", "4.2"), sub(3, 9)),
		},
	}
}
