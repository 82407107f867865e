package schedule

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/rs/xid"

	"github.com/sakif/eljunior/internal/model"
)

const (
	icsMaxFileSize  = 5 << 20
	icsFetchTimeout = 30 * time.Second
)

// ICSSource reads the timetable from an iCalendar feed.
//
// Each VEVENT becomes one weekly lesson:
//
//	SUMMARY      subject
//	CATEGORIES   lesson kind ("Лекция", "practice", ...)
//	DESCRIPTION  teacher
//	LOCATION     "building/room"
//	RRULE        FREQ=WEEKLY;INTERVAL=2 pins the lesson to the parity of its first week
type ICSSource struct {
	// Location is a file path or an http, https or webcal URL.
	Location string
	HTTP     *http.Client
	// TZ is the zone lesson times are expressed in. Nil means time.Local.
	TZ     *time.Location
	Logger *slog.Logger
}

func (s *ICSSource) Lessons(ctx context.Context) ([]model.ScheduleItem, error) {
	rc, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return ParseICS(rc, s.zone(), s.Logger)
}

func (s *ICSSource) zone() *time.Location {
	if s.TZ != nil {
		return s.TZ
	}
	return time.Local
}

func (s *ICSSource) open(ctx context.Context) (io.ReadCloser, error) {
	loc := s.Location
	if strings.HasPrefix(loc, "webcal://") {
		loc = "https://" + strings.TrimPrefix(loc, "webcal://")
	}

	if !strings.HasPrefix(loc, "http://") && !strings.HasPrefix(loc, "https://") {
		f, err := os.Open(loc)
		if err != nil {
			return nil, fmt.Errorf("schedule: opening timetable file: %w", err)
		}
		return struct {
			io.Reader
			io.Closer
		}{io.LimitReader(f, icsMaxFileSize), f}, nil
	}

	client := s.HTTP
	if client == nil {
		client = &http.Client{Timeout: icsFetchTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return nil, fmt.Errorf("schedule: building timetable request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("schedule: fetching timetable: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("schedule: fetching timetable: HTTP %d", resp.StatusCode)
	}
	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(resp.Body, icsMaxFileSize), resp.Body}, nil
}

// ParseICS converts the VEVENTs of a calendar into weekly lessons. Events
// without a summary or a parsable start are skipped.
func ParseICS(r io.Reader, loc *time.Location, logger *slog.Logger) ([]model.ScheduleItem, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("schedule: parsing timetable: %w", err)
	}

	var lessons []model.ScheduleItem
	for _, evt := range cal.Events() {
		item, ok := lessonFromEvent(evt, loc)
		if !ok {
			if logger != nil {
				logger.Debug("skipping timetable event", slog.String("uid", propValue(evt, ics.ComponentPropertyUniqueId)))
			}
			continue
		}
		lessons = append(lessons, item)
	}
	return lessons, nil
}

func lessonFromEvent(evt *ics.VEvent, loc *time.Location) (model.ScheduleItem, bool) {
	subject := propValue(evt, ics.ComponentPropertySummary)
	if subject == "" {
		return model.ScheduleItem{}, false
	}

	start, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return model.ScheduleItem{}, false
	}
	end, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil || !end.After(start) {
		// Default pair length at the university.
		end = start.Add(90 * time.Minute)
	}

	kind, ok := model.ParseLessonKind(firstCategory(propValue(evt, ics.ComponentPropertyCategories)))
	if !ok {
		kind = model.LessonLecture
	}

	building, room := splitLocation(propValue(evt, ics.ComponentPropertyLocation))

	id := propValue(evt, ics.ComponentPropertyUniqueId)
	if id == "" {
		id = xid.New().String()
	}

	return model.ScheduleItem{
		ID:        id,
		Subject:   subject,
		Kind:      kind,
		Teacher:   propValue(evt, ics.ComponentPropertyDescription),
		Building:  building,
		Room:      room,
		StartTime: model.Clock(start.Hour(), start.Minute()),
		EndTime:   model.Clock(end.Hour(), end.Minute()),
		DayOfWeek: start.Weekday(),
		Parity:    parityOf(propValue(evt, ics.ComponentPropertyRrule), start),
	}, true
}

// parityOf maps a fortnightly weekly rule to the parity of its first week.
// Every other rule, and no rule at all, means every week.
func parityOf(rrule string, start time.Time) model.WeekParity {
	if rrule == "" {
		return model.ParityEvery
	}
	freq, interval := "", 1
	for _, part := range strings.Split(rrule, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch strings.ToUpper(k) {
		case "FREQ":
			freq = strings.ToUpper(v)
		case "INTERVAL":
			if n, err := strconv.Atoi(v); err == nil {
				interval = n
			}
		}
	}
	if freq != "WEEKLY" || interval != 2 {
		return model.ParityEvery
	}
	if IsEvenWeek(start) {
		return model.ParityEven
	}
	return model.ParityOdd
}

// splitLocation reads "building/room". A value without a slash is a room.
func splitLocation(s string) (building, room string) {
	if b, r, ok := strings.Cut(s, "/"); ok {
		return strings.TrimSpace(b), strings.TrimSpace(r)
	}
	return "", strings.TrimSpace(s)
}

func firstCategory(s string) string {
	first, _, _ := strings.Cut(s, ",")
	return first
}

var icsUnescaper = strings.NewReplacer(`\,`, ",", `\;`, ";", `\n`, " ", `\N`, " ", `\\`, `\`)

func propValue(evt *ics.VEvent, name ics.ComponentProperty) string {
	p := evt.GetProperty(name)
	if p == nil {
		return ""
	}
	return strings.TrimSpace(icsUnescaper.Replace(p.Value))
}

func parseICSDateTime(evt *ics.VEvent, name ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(name)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", name)
	}

	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.EqualFold(k, "TZID") && len(v) > 0 {
			tzid = v[0]
		}
	}

	for _, layout := range []string{"20060102T150405Z", "20060102T150405", "20060102"} {
		t, err := time.Parse(layout, prop.Value)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		zone := loc
		if tzid != "" {
			if tz, err := time.LoadLocation(tzid); err == nil {
				zone = tz
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, zone).In(loc), nil
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", prop.Value)
}
