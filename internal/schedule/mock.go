package schedule

import (
	"context"
	"time"

	"github.com/sakif/eljunior/internal/model"
)

// MockSource serves a fixed sample timetable for Monday to Friday.
// It is used until a real timetable feed is configured.
type MockSource struct{}

func (MockSource) Lessons(ctx context.Context) ([]model.ScheduleItem, error) {
	lessons := make([]model.ScheduleItem, len(sampleWeek))
	copy(lessons, sampleWeek)
	return lessons, nil
}

var sampleWeek = []model.ScheduleItem{
	{ID: "1", Subject: "Математический анализ", Kind: model.LessonLecture, Teacher: "Иванов И.И.",
		Building: "Главный корпус", Room: "А-301", StartTime: model.Clock(8, 30), EndTime: model.Clock(10, 0),
		DayOfWeek: time.Monday},
	{ID: "2", Subject: "Программирование", Kind: model.LessonPractice, Teacher: "Петров П.П.",
		Building: "Технический корпус", Room: "Б-105", StartTime: model.Clock(10, 15), EndTime: model.Clock(11, 45),
		DayOfWeek: time.Monday},
	// Physics alternates between the lab and the lecture hall.
	{ID: "3-even", Subject: "Физика", Kind: model.LessonLaboratory, Teacher: "Сидоров С.С.",
		Building: "Лабораторный корпус", Room: "В-201", StartTime: model.Clock(13, 0), EndTime: model.Clock(14, 30),
		DayOfWeek: time.Monday, Parity: model.ParityEven},
	{ID: "3-odd", Subject: "Физика", Kind: model.LessonLecture, Teacher: "Сидоров С.С.",
		Building: "Лабораторный корпус", Room: "В-201", StartTime: model.Clock(13, 0), EndTime: model.Clock(14, 30),
		DayOfWeek: time.Monday, Parity: model.ParityOdd},

	{ID: "4", Subject: "История России", Kind: model.LessonLecture, Teacher: "Козлов К.К.",
		Building: "Главный корпус", Room: "А-205", StartTime: model.Clock(10, 15), EndTime: model.Clock(11, 45),
		DayOfWeek: time.Tuesday},
	{ID: "5", Subject: "Английский язык", Kind: model.LessonPractice, Teacher: "Смирнова А.А.",
		Building: "", Room: "Online", StartTime: model.Clock(13, 0), EndTime: model.Clock(14, 30),
		DayOfWeek: time.Tuesday},

	{ID: "6", Subject: "Математический анализ", Kind: model.LessonPractice, Teacher: "Иванов И.И.",
		Building: "Главный корпус", Room: "А-301", StartTime: model.Clock(8, 30), EndTime: model.Clock(10, 0),
		DayOfWeek: time.Wednesday},
	{ID: "7", Subject: "Базы данных", Kind: model.LessonLecture, Teacher: "Николаев Н.Н.",
		Building: "Технический корпус", Room: "Б-210", StartTime: model.Clock(10, 15), EndTime: model.Clock(11, 45),
		DayOfWeek: time.Wednesday},

	{ID: "8", Subject: "Программирование", Kind: model.LessonLaboratory, Teacher: "Петров П.П.",
		Building: "Технический корпус", Room: "Б-105", StartTime: model.Clock(8, 30), EndTime: model.Clock(10, 0),
		DayOfWeek: time.Thursday},
	{ID: "9", Subject: "Физика", Kind: model.LessonPractice, Teacher: "Сидоров С.С.",
		Building: "Лабораторный корпус", Room: "В-201", StartTime: model.Clock(10, 15), EndTime: model.Clock(11, 45),
		DayOfWeek: time.Thursday},

	{ID: "10", Subject: "Базы данных", Kind: model.LessonLaboratory, Teacher: "Николаев Н.Н.",
		Building: "Технический корпус", Room: "Б-210", StartTime: model.Clock(10, 15), EndTime: model.Clock(11, 45),
		DayOfWeek: time.Friday},
	{ID: "11", Subject: "Философия", Kind: model.LessonLecture, Teacher: "Кузнецов К.К.",
		Building: "Главный корпус", Room: "А-102", StartTime: model.Clock(13, 0), EndTime: model.Clock(14, 30),
		DayOfWeek: time.Friday},
}
