package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// LessonKind is the format of a timetable lesson.
type LessonKind string

const (
	LessonLecture    LessonKind = "lecture"
	LessonPractice   LessonKind = "practice"
	LessonLaboratory LessonKind = "laboratory"
	LessonSeminar    LessonKind = "seminar"
)

// ParseLessonKind accepts the kind's code or its Russian label, case-insensitively.
func ParseLessonKind(raw string) (LessonKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "lecture", "лекция":
		return LessonLecture, true
	case "practice", "практика":
		return LessonPractice, true
	case "laboratory", "lab", "лабораторная":
		return LessonLaboratory, true
	case "seminar", "семинар":
		return LessonSeminar, true
	default:
		return "", false
	}
}

func (k LessonKind) Label() string {
	switch k {
	case LessonLecture:
		return "Лекция"
	case LessonPractice:
		return "Практика"
	case LessonLaboratory:
		return "Лабораторная"
	case LessonSeminar:
		return "Семинар"
	default:
		return string(k)
	}
}

// WeekParity restricts a recurring lesson to even or odd calendar weeks.
// The zero value, ParityEvery, means the lesson happens every week.
type WeekParity int

const (
	ParityEvery WeekParity = iota
	ParityEven
	ParityOdd
)

// Matches reports whether a lesson with this parity runs in a week whose
// evenness is isEven.
func (p WeekParity) Matches(isEven bool) bool {
	switch p {
	case ParityEven:
		return isEven
	case ParityOdd:
		return !isEven
	default:
		return true
	}
}

func (p WeekParity) String() string {
	switch p {
	case ParityEven:
		return "even"
	case ParityOdd:
		return "odd"
	default:
		return "every"
	}
}

func (p WeekParity) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *WeekParity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "even":
		*p = ParityEven
	case "odd":
		*p = ParityOdd
	case "every", "":
		*p = ParityEvery
	default:
		return fmt.Errorf("model: unknown week parity %q", b)
	}
	return nil
}

// ClockTime is a time of day in minutes after midnight.
type ClockTime int

func Clock(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("model: invalid clock time %q: %w", s, err)
	}
	return Clock(t.Hour(), t.Minute()), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ScheduleItem is one lesson of the weekly timetable.
type ScheduleItem struct {
	ID        string       `json:"id"`
	Subject   string       `json:"subject"`
	Kind      LessonKind   `json:"kind"`
	Teacher   string       `json:"teacher"`
	Building  string       `json:"building"`
	Room      string       `json:"room"`
	StartTime ClockTime    `json:"startTime"`
	EndTime   ClockTime    `json:"endTime"`
	DayOfWeek time.Weekday `json:"dayOfWeek"`
	Parity    WeekParity   `json:"parity"`
}

// LocationString renders the building and room for the lesson card. The
// building is left out when unknown.
func (s ScheduleItem) LocationString() string {
	if s.Building == "" {
		return "Ауд. " + s.Room
	}
	return "Корпус " + s.Building + " • Ауд. " + s.Room
}

// DaySchedule is the timetable for one date.
type DaySchedule struct {
	Date       time.Time      `json:"date"`
	DayOfWeek  time.Weekday   `json:"dayOfWeek"`
	IsEvenWeek bool           `json:"isEvenWeek"`
	Items      []ScheduleItem `json:"items"`
}

// NewDaySchedule keeps the lessons that fall on date's weekday and match the
// week parity, ordered by start time.
func NewDaySchedule(date time.Time, isEvenWeek bool, lessons []ScheduleItem) DaySchedule {
	items := make([]ScheduleItem, 0, len(lessons))
	for _, l := range lessons {
		if l.DayOfWeek == date.Weekday() && l.Parity.Matches(isEvenWeek) {
			items = append(items, l)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].StartTime < items[j].StartTime
	})

	y, m, d := date.Date()
	return DaySchedule{
		Date:       time.Date(y, m, d, 0, 0, 0, 0, date.Location()),
		DayOfWeek:  date.Weekday(),
		IsEvenWeek: isEvenWeek,
		Items:      items,
	}
}

var (
	ruWeekdays = [...]string{"ВС", "ПН", "ВТ", "СР", "ЧТ", "ПТ", "СБ"}
	ruMonths   = [...]string{"января", "февраля", "марта", "апреля", "мая", "июня",
		"июля", "августа", "сентября", "октября", "ноября", "декабря"}
)

// FormattedDate renders the header line, e.g. "15 октября, ЧТ (Нечетная)".
func (d DaySchedule) FormattedDate() string {
	week := "Нечетная"
	if d.IsEvenWeek {
		week = "Четная"
	}
	return fmt.Sprintf("%d %s, %s (%s)",
		d.Date.Day(), ruMonths[d.Date.Month()-1], ruWeekdays[d.DayOfWeek], week)
}
