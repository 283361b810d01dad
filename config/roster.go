package config

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/kilianp07/gcal-scheduler/core/calendar"
	"github.com/kilianp07/gcal-scheduler/core/model"
	"github.com/kilianp07/gcal-scheduler/core/scheduler"
)

// rosterNamespace scopes the name based UUIDs of members and meetings.
var rosterNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/kilianp07/gcal-scheduler/roster"))

// MemberID returns the stable id of the member called name.
func MemberID(name string) string {
	return uuid.NewSHA1(rosterNamespace, []byte("member:"+name)).String()
}

// MeetingID returns the stable id of the meeting called name.
func MeetingID(name string) string {
	return uuid.NewSHA1(rosterNamespace, []byte("meeting:"+name)).String()
}

// Roster is the configuration resolved into model records.
type Roster struct {
	Members []model.Member
	// Meetings holds the active meetings only.
	Meetings []model.Meeting
	// Rules only reference active meetings.
	Rules model.Rules
	// Inactive lists configured meetings left out by active_meetings.
	Inactive []string
	// Windows and Busy come from potential_times and busy. Busy is keyed by
	// calendar reference.
	Windows []model.Window
	Busy    map[string][]model.BusyInterval

	memberNames map[string]string
}

// MemberName returns the display name of a member id, or the id itself.
func (r *Roster) MemberName(id string) string {
	if n, ok := r.memberNames[id]; ok {
		return n
	}
	return id
}

// MemberNames maps ids to names, preserving order.
func (r *Roster) MemberNames(ids []string) []string {
	return lo.Map(ids, func(id string, _ int) string { return r.MemberName(id) })
}

// StaticSource serves the file's windows and conflicts.
func (r *Roster) StaticSource() *calendar.StaticSource {
	return &calendar.StaticSource{Windows: r.Windows, Busy: r.Busy}
}

// Roster resolves member and meeting names. Every dangling or duplicated name
// is reported in a single *scheduler.ConfigurationError.
func (c *Config) Roster() (*Roster, error) {
	var cerr scheduler.ConfigurationError
	r := &Roster{Busy: make(map[string][]model.BusyInterval), memberNames: make(map[string]string)}

	byName := make(map[string]model.Member, len(c.Members))
	for _, mc := range c.Members {
		if mc.Name == "" {
			cerr.Addf("member without a name")
			continue
		}
		if _, dup := byName[mc.Name]; dup {
			cerr.Addf("duplicate member %q", mc.Name)
			continue
		}
		ref := mc.Calendar
		if ref == "" {
			ref = mc.Name
		}
		m := model.Member{ID: MemberID(mc.Name), Name: mc.Name, CalendarRef: ref}
		byName[mc.Name] = m
		r.Members = append(r.Members, m)
		r.memberNames[m.ID] = m.Name
	}

	meetings := make(map[string]model.Meeting, len(c.Meetings))
	for _, mc := range c.Meetings {
		if mc.Name == "" {
			cerr.Addf("meeting without a name")
			continue
		}
		if _, dup := meetings[mc.Name]; dup {
			cerr.Addf("duplicate meeting %q", mc.Name)
			continue
		}
		if mc.DurationMinutes < 0 {
			cerr.Addf("meeting %q has negative duration_minutes %d", mc.Name, mc.DurationMinutes)
		}
		if len(mc.Members) == 0 {
			cerr.Addf("meeting %q has no members", mc.Name)
		}
		m := model.Meeting{ID: MeetingID(mc.Name), Name: mc.Name, Duration: time.Duration(mc.DurationMinutes) * time.Minute}
		for _, name := range lo.Uniq(mc.Members) {
			member, ok := byName[name]
			if !ok {
				cerr.Addf("meeting %q references unknown member %q", mc.Name, name)
				continue
			}
			m.RequiredMembers = append(m.RequiredMembers, member.ID)
		}
		meetings[mc.Name] = m
	}

	active := make(map[string]bool, len(c.Meetings))
	if len(c.ActiveMeetings) == 0 {
		for _, mc := range c.Meetings {
			active[mc.Name] = true
		}
	}
	for _, name := range c.ActiveMeetings {
		if _, ok := meetings[name]; !ok {
			cerr.Addf("active meeting %q is not configured", name)
			continue
		}
		active[name] = true
	}
	seen := make(map[string]bool, len(c.Meetings))
	for _, mc := range c.Meetings {
		if seen[mc.Name] || mc.Name == "" {
			continue
		}
		seen[mc.Name] = true
		if active[mc.Name] {
			r.Meetings = append(r.Meetings, meetings[mc.Name])
		} else {
			r.Inactive = append(r.Inactive, mc.Name)
		}
	}

	for _, ka := range c.KeyAttendees {
		m, ok := meetings[ka.Meeting]
		if !ok {
			cerr.Addf("key attendee rule references unknown meeting %q", ka.Meeting)
			continue
		}
		names := ka.Names()
		if len(names) == 0 {
			cerr.Addf("key attendee rule for %q names no member", ka.Meeting)
			continue
		}
		rule := model.KeyAttendeeRule{MeetingID: m.ID}
		for _, name := range names {
			member, ok := byName[name]
			if !ok {
				cerr.Addf("key attendee rule for %q references unknown member %q", ka.Meeting, name)
				continue
			}
			rule.MemberIDs = append(rule.MemberIDs, member.ID)
		}
		if active[ka.Meeting] && len(rule.MemberIDs) > 0 {
			r.Rules.KeyAttendees = append(r.Rules.KeyAttendees, rule)
		}
	}
	for _, name := range lo.Uniq(c.KeyMeetings) {
		m, ok := meetings[name]
		if !ok {
			cerr.Addf("key meeting %q is not configured", name)
			continue
		}
		if active[name] {
			r.Rules.KeyMeetings = append(r.Rules.KeyMeetings, model.KeyMeetingRule{MeetingID: m.ID})
		}
	}

	for i, wc := range c.PotentialTimes {
		start, errS := calendar.ParseTimestamp(wc.Start)
		end, errE := calendar.ParseTimestamp(wc.End)
		if errS != nil || errE != nil {
			cerr.Addf("potential time %d: %v", i, lo.Ternary(errS != nil, errS, errE))
			continue
		}
		r.Windows = append(r.Windows, model.Window{ID: wc.ID, Start: start, End: end, Location: wc.Location, Summary: wc.Summary})
	}
	for i, bc := range c.Busy {
		member, ok := byName[bc.Member]
		if !ok {
			cerr.Addf("busy entry %d references unknown member %q", i, bc.Member)
			continue
		}
		start, errS := calendar.ParseTimestamp(bc.Start)
		end, errE := calendar.ParseTimestamp(bc.End)
		if errS != nil || errE != nil {
			cerr.Addf("busy entry %d: %v", i, lo.Ternary(errS != nil, errS, errE))
			continue
		}
		r.Busy[member.CalendarRef] = append(r.Busy[member.CalendarRef], model.BusyInterval{Start: start, End: end})
	}

	if err := cerr.Err(); err != nil {
		return nil, err
	}
	return r, nil
}
