package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/eljunior/internal/apperror"
	"github.com/sakif/eljunior/internal/model"
	"github.com/sakif/eljunior/internal/schedule"
)

type failingSource struct{}

func (failingSource) Lessons(ctx context.Context) ([]model.ScheduleItem, error) {
	return nil, errBoom
}

func TestScheduleService_Day(t *testing.T) {
	svc := NewScheduleService(schedule.MockSource{}, discardLogger())

	// 2024-10-14 is the Monday of ISO week 42.
	day, err := svc.Day(context.Background(), time.Date(2024, time.October, 14, 15, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Day() error = %v", err)
	}

	if !day.IsEvenWeek {
		t.Error("IsEvenWeek = false, want true for week 42")
	}
	if day.Date.Hour() != 0 {
		t.Errorf("Date = %v, want midnight", day.Date)
	}
	if len(day.Items) != 3 {
		t.Fatalf("got %d lessons, want 3", len(day.Items))
	}
	for i := 1; i < len(day.Items); i++ {
		if day.Items[i].StartTime < day.Items[i-1].StartTime {
			t.Error("lessons are not sorted by start time")
		}
	}
}

func TestScheduleService_Week(t *testing.T) {
	svc := NewScheduleService(schedule.MockSource{}, discardLogger())

	week, err := svc.Week(context.Background(), time.Date(2024, time.October, 17, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Week() error = %v", err)
	}

	if len(week) != 7 {
		t.Fatalf("got %d days, want 7", len(week))
	}
	if week[0].DayOfWeek != time.Monday || week[6].DayOfWeek != time.Sunday {
		t.Errorf("week runs %v..%v, want Monday..Sunday", week[0].DayOfWeek, week[6].DayOfWeek)
	}
	if week[0].Date.Day() != 14 {
		t.Errorf("week starts on day %d, want 14", week[0].Date.Day())
	}
	if len(week[5].Items) != 0 || len(week[6].Items) != 0 {
		t.Error("weekend should be empty in the sample timetable")
	}
}

func TestScheduleService_SourceFailure(t *testing.T) {
	svc := NewScheduleService(failingSource{}, discardLogger())

	_, err := svc.Day(context.Background(), time.Now())

	if !errors.Is(err, apperror.ErrRemoteFetch) {
		t.Errorf("Day() error = %v, want ErrRemoteFetch", err)
	}
}
