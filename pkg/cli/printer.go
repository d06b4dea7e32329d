package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
)

var (
	headerColor = color.New(color.Bold, color.Underline)
	idColor     = color.New(color.FgCyan)
	failColor   = color.New(color.FgRed)
	okColor     = color.New(color.FgGreen)

	stateColors = map[types.TaskState]*color.Color{
		types.TaskStateReady:          color.New(color.FgGreen),
		types.TaskStateClaimed:        color.New(color.FgYellow),
		types.TaskStateReadyForReview: color.New(color.FgBlue),
		types.TaskStateInReview:       color.New(color.FgMagenta),
		types.TaskStateCompleted:      color.New(color.Faint),
		types.TaskStateCancelled:      color.New(color.Faint),
		types.TaskStateTerminated:     color.New(color.FgRed),
	}
)

func stateText(s types.TaskState) string {
	if c, ok := stateColors[s]; ok {
		return c.Sprint(s.String())
	}
	return s.String()
}

func timeText(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func ownerText(t *model.TaskSummary) string {
	switch {
	case t.Owner == "":
		return "-"
	case t.OwnerLongName != "":
		return t.OwnerLongName + " (" + t.Owner + ")"
	default:
		return t.Owner
	}
}

// printTasks writes one row per task. Grouped results carry the group size.
func printTasks(w io.Writer, tasks []*model.TaskSummary, grouped bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{"ID", "STATE", "WORKBASKET", "NAME", "OWNER", "PRIORITY", "DUE"}
	if grouped {
		header = append(header, "GROUP")
	}
	if _, err := fmt.Fprintln(tw, headerColor.Sprint(strings.Join(header, "\t"))); err != nil {
		return err
	}

	for _, t := range tasks {
		row := []string{
			idColor.Sprint(t.ID),
			stateText(t.State),
			t.Workbasket.Key,
			t.Name,
			ownerText(t),
			strconv.Itoa(t.Priority),
			timeText(t.Due),
		}
		if grouped {
			row = append(row, strconv.FormatInt(t.GroupByCount, 10))
		}
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printTask(w io.Writer, t *model.Task) error {
	_, err := fmt.Fprintf(w, "%s %s owner=%s workbasket=%s modified=%s\n",
		idColor.Sprint(t.ID), stateText(t.State), ownerText(&model.TaskSummary{Task: *t}),
		t.Workbasket.Key, t.Modified.UTC().Format(time.RFC3339Nano))
	return err
}

func printBulk(w io.Writer, ids []string, result *model.BulkResult) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		var err error
		if e := result.Err(id); e != nil {
			_, err = fmt.Fprintf(w, "%s %s %s\n", failColor.Sprint("FAIL"), id, e.Error())
		} else {
			_, err = fmt.Fprintf(w, "%s %s\n", okColor.Sprint("OK"), id)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
