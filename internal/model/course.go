package model

// Course is an enrolled course prepared for display.
type Course struct {
	ID              int64   `json:"id"`
	DisplayName     string  `json:"displayName"`
	ShortName       string  `json:"shortName"`
	Description     string  `json:"description"`
	ImageURL        *string `json:"imageUrl,omitempty"`
	ProgressPercent float64 `json:"progressPercent"` // always within [0, 100]
	IsFavourite     bool    `json:"isFavourite"`
}

// Completed reports whether the course progress has reached 100%.
func (c Course) Completed() bool {
	return c.ProgressPercent >= 100
}

// CourseStats summarises a course list for the profile screen.
type CourseStats struct {
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	// AverageGrade is the mean progress mapped onto a 5-point scale.
	AverageGrade float64 `json:"averageGrade"`
}

// CourseSection is one section of a course with its activities.
type CourseSection struct {
	ID      int64          `json:"id"`
	Name    string         `json:"name"`
	Visible bool           `json:"visible"`
	Summary string         `json:"summary"`
	Modules []CourseModule `json:"modules"`
}

// CourseModule is a single activity or resource inside a section.
type CourseModule struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	ModuleName string  `json:"moduleName"` // e.g. "assign", "quiz", "resource"
	Visible    bool    `json:"visible"`
	URL        *string `json:"url,omitempty"`
}
