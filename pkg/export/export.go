// Package export renders a schedule as a table, JSON, CSV or YAML.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/gcal-scheduler/core/model"
)

// Row is one placed meeting with names resolved.
type Row struct {
	Meeting      string    `json:"meeting" yaml:"meeting"`
	Start        time.Time `json:"start" yaml:"start"`
	End          time.Time `json:"end" yaml:"end"`
	Location     string    `json:"location,omitempty" yaml:"location,omitempty"`
	Missing      []string  `json:"missing" yaml:"missing"`
	DoubleBooked []string  `json:"double_booked" yaml:"double_booked"`
}

// Description is the calendar event body of the row.
func (r Row) Description() string {
	var lines []string
	if len(r.Missing) > 0 {
		lines = append(lines, "Missing: "+strings.Join(r.Missing, ", "))
	}
	if len(r.DoubleBooked) > 0 {
		lines = append(lines, "Double-booked: "+strings.Join(r.DoubleBooked, ", "))
	}
	return strings.Join(lines, "\n")
}

// View is the printable form of a schedule.
type View struct {
	RunID      string                 `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Rows       []Row                  `json:"schedule" yaml:"schedule"`
	Attendance string                 `json:"attendance" yaml:"attendance"`
	Violations model.Violations       `json:"violations" yaml:"violations"`
	Cost       model.CostBreakdown    `json:"cost" yaml:"cost"`
	TotalCost  int                    `json:"total_cost" yaml:"total_cost"`
	Optimal    bool                   `json:"optimal" yaml:"optimal"`
	Spread     model.AttendanceSpread `json:"spread" yaml:"spread"`
	Warnings   []string               `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	loc *time.Location
}

// NewView resolves member ids through name and renders times in loc.
func NewView(runID string, res *model.ScheduleResult, name func(string) string, loc *time.Location) View {
	if loc == nil {
		loc = time.UTC
	}
	if name == nil {
		name = func(id string) string { return id }
	}
	v := View{
		RunID:      runID,
		Attendance: res.Attendance.String(),
		Violations: res.Violations,
		Cost:       res.Cost,
		TotalCost:  res.TotalCost,
		Optimal:    res.Optimal,
		Spread:     res.Spread,
		loc:        loc,
	}
	for _, b := range res.Bindings {
		v.Rows = append(v.Rows, Row{
			Meeting:      b.Meeting.Name,
			Start:        b.Slot.Start.In(loc),
			End:          b.Slot.End.In(loc),
			Location:     b.Slot.Location,
			Missing:      lo.Map(b.MissingMembers, func(id string, _ int) string { return name(id) }),
			DoubleBooked: lo.Map(res.DoubleBookedIn(b.Meeting.ID), func(id string, _ int) string { return name(id) }),
		})
	}
	v.Warnings = lo.Map(res.Warnings, func(w model.Warning, _ int) string { return w.Message })
	return v
}

// Write renders v in format: table, json, csv or yaml.
func Write(w io.Writer, format string, v View) error {
	switch format {
	case "", "table":
		return WriteTable(w, v)
	case "json":
		return WriteJSON(w, v)
	case "csv":
		return WriteCSV(w, v)
	case "yaml":
		return WriteYAML(w, v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteJSON writes the schedule to w in JSON format.
func WriteJSON(w io.Writer, v View) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML writes the schedule to w in YAML format.
func WriteYAML(w io.Writer, v View) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// WriteCSV writes one record per placed meeting. Names are joined by ";".
func WriteCSV(w io.Writer, v View) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"meeting", "start", "end", "location", "missing", "double_booked"}); err != nil {
		return err
	}
	for _, r := range v.Rows {
		rec := []string{
			r.Meeting,
			r.Start.Format(time.RFC3339),
			r.End.Format(time.RFC3339),
			r.Location,
			strings.Join(r.Missing, ";"),
			strings.Join(r.DoubleBooked, ";"),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable writes an aligned report followed by attendance and conflicts.
func WriteTable(w io.Writer, v View) error {
	loc := v.loc
	if loc == nil {
		loc = time.UTC
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MEETING\tSTART\tEND\tLOCATION\tMISSING")
	for _, r := range v.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Meeting,
			r.Start.In(loc).Format("Mon 2006-01-02 15:04 MST"),
			r.End.In(loc).Format("15:04"),
			lo.Ternary(r.Location == "", "-", r.Location),
			lo.Ternary(len(r.Missing) == 0, "-", strings.Join(r.Missing, ", ")),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAttendance percentage: %s\n", v.Attendance)
	fmt.Fprintf(w, "Total cost: %d (key attendee %d, required member %d, key meeting %d)%s\n",
		v.TotalCost, v.Cost.KeyAttendee, v.Cost.RequiredMember, v.Cost.KeyMeeting,
		lo.Ternary(v.Optimal, "", " [best effort]"))
	fmt.Fprintf(w, "Absences: %d key attendee, %d required member, %d key meeting\n",
		v.Violations.KeyAttendeeAbsences, v.Violations.RequiredMemberAbsences, v.Violations.KeyMeetingAbsences)

	conflicts := lo.Filter(v.Rows, func(r Row, _ int) bool { return len(r.Missing) > 0 || len(r.DoubleBooked) > 0 })
	if len(conflicts) > 0 {
		fmt.Fprintln(w, "\nConflicts:")
		for _, r := range conflicts {
			fmt.Fprintf(w, "  %s: %s\n", r.Meeting, strings.ReplaceAll(r.Description(), "\n", "; "))
		}
	}
	for _, msg := range v.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", msg)
	}
	return nil
}

// WriteSlots lists windows and the candidate slots carved from them.
func WriteSlots(w io.Writer, windows []model.Window, slots []model.Slot, windowID func(model.Window, int) string, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WINDOW\tSTART\tEND\tSUMMARY\tSLOTS")
	for i, win := range windows {
		id := windowID(win, i)
		n := lo.CountBy(slots, func(s model.Slot) bool { return s.WindowID == id })
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			id,
			win.Start.In(loc).Format("Mon 2006-01-02 15:04 MST"),
			win.End.In(loc).Format("15:04"),
			lo.Ternary(win.Summary == "", "-", win.Summary),
			strconv.Itoa(n),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d candidate slots\n", len(slots))
	for _, s := range slots {
		fmt.Fprintf(w, "  %s  %s - %s  (%s)\n", s.ID, s.Start.In(loc).Format("Mon 2006-01-02 15:04"), s.End.In(loc).Format("15:04"), s.WindowID)
	}
	return nil
}
