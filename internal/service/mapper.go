package service

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/sakif/eljunior/internal/model"
	"github.com/sakif/eljunior/internal/moodle"
)

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes markup from a Moodle summary field.
func stripHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(htmlTag.ReplaceAllString(s, "")))
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func toCourse(raw moodle.RawCourse) model.Course {
	name := raw.FullName
	if dn := deref(raw.DisplayName); dn != "" {
		name = dn
	}

	progress := deref(raw.Progress)
	switch {
	case progress < 0:
		progress = 0
	case progress > 100:
		progress = 100
	}

	var image *string
	for _, f := range raw.OverviewFiles {
		if u := deref(f.FileURL); u != "" {
			image = &u
			break
		}
	}

	return model.Course{
		ID:              raw.ID,
		DisplayName:     name,
		ShortName:       raw.ShortName,
		Description:     stripHTML(deref(raw.Summary)),
		ImageURL:        image,
		ProgressPercent: progress,
		IsFavourite:     deref(raw.IsFavourite),
	}
}

func toCourses(raws []moodle.RawCourse) []model.Course {
	courses := make([]model.Course, 0, len(raws))
	for _, r := range raws {
		courses = append(courses, toCourse(r))
	}
	return courses
}

// toDeadline converts a calendar event. Urgency is evaluated against now.
func toDeadline(e moodle.RawEvent, now time.Time) model.Deadline {
	d := model.Deadline{
		ID:       e.ID,
		Title:    e.Name,
		CourseID: e.CourseID,
		DueAt:    time.Unix(e.TimeStart, 0),
		Kind:     model.ParseDeadlineKind(deref(e.ModuleName)),
		URL:      e.URL,
	}
	if e.Course != nil {
		d.CourseName = e.Course.ShortName
		if d.CourseID == nil {
			id := e.Course.ID
			d.CourseID = &id
		}
	}
	d.IsUrgent = d.UrgentAt(now)
	return d
}

func toSections(raws []moodle.RawSection) []model.CourseSection {
	sections := make([]model.CourseSection, 0, len(raws))
	for _, r := range raws {
		modules := make([]model.CourseModule, 0, len(r.Modules))
		for _, m := range r.Modules {
			modules = append(modules, model.CourseModule{
				ID:         m.ID,
				Name:       m.Name,
				ModuleName: deref(m.ModName),
				Visible:    visible(m.Visible),
				URL:        m.URL,
			})
		}
		sections = append(sections, model.CourseSection{
			ID:      r.ID,
			Name:    r.Name,
			Visible: visible(r.Visible),
			Summary: stripHTML(deref(r.Summary)),
			Modules: modules,
		})
	}
	return sections
}

// visible treats a missing flag as visible, as Moodle omits it for most items.
func visible(flag *int) bool {
	return flag == nil || *flag != 0
}

func toUserProfile(raw moodle.RawProfile) model.UserProfile {
	return model.UserProfile{
		ID:              raw.ID,
		Username:        raw.Username,
		FirstName:       raw.FirstName,
		LastName:        raw.LastName,
		FullName:        raw.FullName,
		Email:           deref(raw.Email),
		ProfileImageURL: raw.ProfileImageURL,
	}
}
