package models

// Instructor is a schedule instructor. The reconciliation join collapses
// duplicate employee records by (last_name, first_name), keeping the
// lowest id.
type Instructor struct {
	ID           int64   `db:"id" json:"id"`
	FirstName    string  `db:"first_name" json:"first_name"`
	LastName     string  `db:"last_name" json:"last_name"`
	EmployeeID   *string `db:"employee_id" json:"employee_id,omitempty"`
	HiringStatus *string `db:"hiring_status" json:"hiring_status,omitempty"`
}

// DisplayName renders the roster form, e.g. "DOE, JANE".
func (i Instructor) DisplayName() string {
	if i.FirstName == "" && i.LastName == "" {
		return ""
	}
	return i.LastName + ", " + i.FirstName
}

// Campus is a physical (or virtual) campus.
type Campus struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Location is a building/room pair.
type Location struct {
	ID       int64  `db:"id" json:"id"`
	Building string `db:"building" json:"building"`
	Room     string `db:"room" json:"room"`
}

// Display renders the composite form used by the feed, e.g. "LA101".
func (l Location) Display() string {
	return l.Building + l.Room
}

// Sentinels for online-only sections. Sections whose code contains "NT"
// must carry exactly these.
const (
	InternetCampusName       = "Internet"
	InternetLocationBuilding = "Inter"
	InternetLocationRoom     = "net"
)
