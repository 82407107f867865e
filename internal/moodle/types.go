package moodle

// Raw records as returned by the Moodle web services. Field names follow the
// Moodle JSON keys; optional fields are pointers so "absent" survives decoding.

// TokenResponse is the body of login/token.php. On failure Moodle still
// answers 200 and fills Error/ErrorCode instead of Token.
type TokenResponse struct {
	Token        string `json:"token,omitempty"`
	PrivateToken string `json:"privatetoken,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorCode    string `json:"errorcode,omitempty"`
}

// SiteInfo is core_webservice_get_site_info.
type SiteInfo struct {
	UserID         int64   `json:"userid"`
	Username       string  `json:"username"`
	FirstName      string  `json:"firstname"`
	LastName       string  `json:"lastname"`
	FullName       string  `json:"fullname"`
	SiteName       string  `json:"sitename"`
	UserPictureURL *string `json:"userpictureurl"`
	Lang           *string `json:"lang"`
}

// RawCourse is one element of core_enrol_get_users_courses.
type RawCourse struct {
	ID            int64          `json:"id"`
	ShortName     string         `json:"shortname"`
	FullName      string         `json:"fullname"`
	DisplayName   *string        `json:"displayname"`
	Summary       *string        `json:"summary"`
	SummaryFormat *int           `json:"summaryformat"`
	StartDate     *int64         `json:"startdate"`
	EndDate       *int64         `json:"enddate"`
	Visible       *int           `json:"visible"`
	Progress      *float64       `json:"progress"`
	HasProgress   *bool          `json:"hasprogress"`
	IsFavourite   *bool          `json:"isfavourite"`
	Hidden        *bool          `json:"hidden"`
	OverviewFiles []OverviewFile `json:"overviewfiles"`
}

type OverviewFile struct {
	FileName *string `json:"filename"`
	FilePath *string `json:"filepath"`
	FileURL  *string `json:"fileurl"`
	MimeType *string `json:"mimetype"`
}

// CalendarEvents wraps core_calendar_get_action_events_by_timesort.
type CalendarEvents struct {
	Events []RawEvent `json:"events"`
}

type RawEvent struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Description  *string      `json:"description"`
	Format       *int         `json:"format"`
	CourseID     *int64       `json:"courseid"`
	GroupID      *int64       `json:"groupid"`
	UserID       *int64       `json:"userid"`
	ModuleName   *string      `json:"modulename"`
	Instance     *int64       `json:"instance"`
	EventType    *string      `json:"eventtype"`
	TimeStart    int64        `json:"timestart"` // unix seconds
	TimeDuration *int64       `json:"timeduration"`
	Visible      *int         `json:"visible"`
	URL          *string      `json:"url"`
	Course       *EventCourse `json:"course"`
}

type EventCourse struct {
	ID        int64  `json:"id"`
	FullName  string `json:"fullname"`
	ShortName string `json:"shortname"`
}

// RawSection is one element of core_course_get_contents.
type RawSection struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	Visible *int        `json:"visible"`
	Summary *string     `json:"summary"`
	Modules []RawModule `json:"modules"`
}

type RawModule struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Instance  *int64  `json:"instance"`
	ModName   *string `json:"modname"`
	ModPlural *string `json:"modplural"`
	Visible   *int    `json:"visible"`
	URL       *string `json:"url"`
}

// RawProfile is one element of core_user_get_users_by_field.
type RawProfile struct {
	ID                   int64   `json:"id"`
	Username             string  `json:"username"`
	FirstName            string  `json:"firstname"`
	LastName             string  `json:"lastname"`
	FullName             string  `json:"fullname"`
	Email                *string `json:"email"`
	ProfileImageURL      *string `json:"profileimageurl"`
	ProfileImageURLSmall *string `json:"profileimageurlsmall"`
}

// exception is the error envelope web-service functions return with HTTP 200.
type exception struct {
	Exception string `json:"exception"`
	ErrorCode string `json:"errorcode"`
	Message   string `json:"message"`
}
