package models

// Feed row shapes for the CAMS extracts. Text columns arrive as the
// upstream emits them; normalization happens in the load pipeline.

// FeedTerm is one row of the term extract.
type FeedTerm struct {
	Year     int    `db:"year"`
	Semester string `db:"semester"`
	Active   string `db:"active"` // "T" / "F"
}

// FeedCampus is one row of the campus extract.
type FeedCampus struct {
	Name string `db:"name"`
}

// FeedLocation is one row of the building/room extract. The upstream
// NT/000 pair is already rewritten to the Internet sentinel by the
// extract query.
type FeedLocation struct {
	Building string `db:"building"`
	Room     string `db:"room"`
}

// FeedInstructor is one row of the faculty extract.
type FeedInstructor struct {
	EmployeeID   *string `db:"employee_id"`
	FirstName    string  `db:"first_name"`
	LastName     string  `db:"last_name"`
	HiringStatus *string `db:"hiring_status"`
}

// FeedCourse is one row of the course extract.
type FeedCourse struct {
	Subject string `db:"subject"`
	Number  string `db:"number"`
	Credit  int    `db:"credit"`
	Name    string `db:"name"`
}

// FeedSchedule is one row of the schedule extract, keyed entirely by
// natural/business keys. Nullable text carries upstream quirks (blank
// campuses, N/A days, unparseable times) untouched.
type FeedSchedule struct {
	Year       int     `db:"year"`
	Semester   string  `db:"semester"`
	Subject    string  `db:"subject"`
	Number     string  `db:"number"`
	CourseName string  `db:"course_name"`
	Section    string  `db:"section"`
	Status     string  `db:"status"`
	Capacity   int     `db:"capacity"`
	Instructor *string `db:"instructor"` // "LAST, FIRST"
	Campus     *string `db:"campus"`
	Location   *string `db:"location"` // building+room composite
	Days       *string `db:"days"`
	StartTime  *string `db:"start_time"`
	StopTime   *string `db:"stop_time"`
}
