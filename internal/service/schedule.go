package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sakif/eljunior/internal/apperror"
	"github.com/sakif/eljunior/internal/model"
	"github.com/sakif/eljunior/internal/schedule"
)

// ScheduleService builds day and week views from a timetable source.
type ScheduleService struct {
	source schedule.Source
	logger *slog.Logger
}

func NewScheduleService(source schedule.Source, logger *slog.Logger) *ScheduleService {
	return &ScheduleService{source: source, logger: logger}
}

// Day returns the lessons on date, filtered by the parity of its week.
func (s *ScheduleService) Day(ctx context.Context, date time.Time) (model.DaySchedule, error) {
	lessons, err := s.lessons(ctx)
	if err != nil {
		return model.DaySchedule{}, err
	}
	return model.NewDaySchedule(date, schedule.IsEvenWeek(date), lessons), nil
}

// Week returns the seven days of date's week, Monday first.
func (s *ScheduleService) Week(ctx context.Context, date time.Time) ([]model.DaySchedule, error) {
	lessons, err := s.lessons(ctx)
	if err != nil {
		return nil, err
	}

	monday := schedule.WeekStart(date)
	isEven := schedule.IsEvenWeek(monday)

	days := make([]model.DaySchedule, 0, 7)
	for i := 0; i < 7; i++ {
		days = append(days, model.NewDaySchedule(monday.AddDate(0, 0, i), isEven, lessons))
	}
	return days, nil
}

func (s *ScheduleService) lessons(ctx context.Context) ([]model.ScheduleItem, error) {
	lessons, err := s.source.Lessons(ctx)
	if err != nil {
		s.logger.Warn("loading timetable failed", slog.String("error", err.Error()))
		return nil, apperror.RemoteFetchFailed("schedule", err)
	}
	return lessons, nil
}
