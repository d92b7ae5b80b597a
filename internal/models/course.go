package models

// Course represents a catalog course. (subject, number) is the natural key.
type Course struct {
	ID      int64  `db:"id" json:"id"`
	Subject string `db:"subject" json:"subject"`
	Number  string `db:"number" json:"number"`
	Credit  int    `db:"credit" json:"credit"`
	Name    string `db:"name" json:"name"`
}

// Display renders the catalog form, e.g. CS101.
func (c Course) Display() string {
	return c.Subject + c.Number
}

// CourseFilter captures supported filters for listing courses.
type CourseFilter struct {
	Subjects []string
}
