package model

import (
	"fmt"
	"time"
)

type Task struct {
	ID        int64
	Title     string
	Completed bool
	CreatedAt time.Time
}

func (t Task) String() string {
	return fmt.Sprintf("<Task %d: %s>", t.ID, t.Title)
}

// Summary holds the counts shown under the task list.
type Summary struct {
	Total     int
	Completed int
	Pending   int
}

func Summarize(tasks []Task) Summary {
	summary := Summary{Total: len(tasks)}
	for _, task := range tasks {
		if task.Completed {
			summary.Completed++
		}
	}
	summary.Pending = summary.Total - summary.Completed
	return summary
}
