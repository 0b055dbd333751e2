package app

import (
	"fmt"
	"slices"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/nexttask/internal/model"
	"github.com/nhle/nexttask/internal/theme"
)

// kindOf names the attribute that most decides where a task ranks.
func kindOf(task model.Task, today civil.Date) string {
	switch {
	case task.Scheduled.Date != nil:
		return "scheduled"
	case task.Recurring:
		return "recurring"
	case task.Deadline.Date != nil && task.Deadline.Date.Before(today):
		return "overdue"
	case task.Deadline.Date != nil:
		return "deadline"
	}
	return ""
}

func formatSlot(s model.Slot) string {
	var parts []string
	if s.Date != nil {
		parts = append(parts, s.Date.String())
	}
	if s.Time != nil {
		parts = append(parts, fmt.Sprintf("%02d:%02d", s.Time.Hour, s.Time.Minute))
	}
	return strings.Join(parts, " ")
}

func formatRule(r model.Recurrence) string {
	var b strings.Builder
	if r.Step == 1 {
		fmt.Fprintf(&b, "every %s", r.Type)
	} else {
		fmt.Fprintf(&b, "every %d × %s", r.Step, r.Type)
	}
	fmt.Fprintf(&b, " from %s", r.Start)
	if r.End != nil {
		fmt.Fprintf(&b, " until %s", r.End)
	}
	return b.String()
}

// taskLine renders a task on one line: id, name and kind badge.
func taskLine(task model.Task, today civil.Date) string {
	line := theme.IDStyle.Render(fmt.Sprintf("#%d", task.ID)) + " " + theme.NameStyle.Render(task.Name)
	if kind := kindOf(task, today); kind != "" {
		line += " " + theme.KindStyle(kind).Render(kind)
	}
	return line
}

// renderTask renders the detail panel of a task.
func renderTask(task model.Task, rules []model.Recurrence, today civil.Date) string {
	rows := []string{taskLine(task, today)}
	field := func(label, value string) {
		if value != "" {
			rows = append(rows, theme.LabelStyle.Render(label)+value)
		}
	}
	field("scheduled", formatSlot(task.Scheduled))
	field("deadline", formatSlot(task.Deadline))
	field("start after", formatSlot(task.StartAfter))
	for _, r := range rules {
		field("repeats", formatRule(r))
	}
	field("note", task.Note)
	return theme.TaskPanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderTree draws the task forest from the depth-1 closure rows. Tasks in
// done are marked as such.
func renderTree(tasks []model.Task, paths []model.TaskPath, done map[int64]bool, today civil.Date) string {
	byID := make(map[int64]model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	children := make(map[int64][]int64)
	hasParent := make(map[int64]bool)
	for _, p := range paths {
		if p.Depth == 1 {
			children[p.Ancestor] = append(children[p.Ancestor], p.Descendant)
			hasParent[p.Descendant] = true
		}
	}
	for _, ids := range children {
		slices.Sort(ids)
	}

	var b strings.Builder
	var walk func(id int64, prefix string, last bool, root bool)
	walk = func(id int64, prefix string, last bool, root bool) {
		branch, next := "", ""
		if !root {
			branch, next = "├── ", "│   "
			if last {
				branch, next = "└── ", "    "
			}
		}
		line := taskLine(byID[id], today)
		if done[id] {
			line += " " + theme.KindStyle("done").Render("done")
		}
		b.WriteString(theme.TreeBranchStyle.Render(prefix+branch) + line + "\n")
		kids := children[id]
		for i, kid := range kids {
			walk(kid, prefix+next, i == len(kids)-1, false)
		}
	}
	for _, t := range tasks {
		if !hasParent[t.ID] {
			walk(t.ID, "", true, true)
		}
	}
	return b.String()
}
