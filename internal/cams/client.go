package cams

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/grayson-dev/gcis-api/internal/models"
)

// Client runs the extract queries against the upstream CAMS SQL Server
// database. All access is read-only.
type Client struct {
	db      *sqlx.DB
	termIDs []string
}

// NewClient builds a CAMS extract client scoped to the given upstream
// TermCalendar ids.
func NewClient(db *sqlx.DB, termIDs []string) (*Client, error) {
	for _, id := range termIDs {
		if _, err := strconv.Atoi(id); err != nil {
			return nil, fmt.Errorf("invalid CAMS term id %q", id)
		}
	}
	return &Client{db: db, termIDs: termIDs}, nil
}

func (c *Client) termIN() string {
	if len(c.termIDs) == 0 {
		return "0"
	}
	return strings.Join(c.termIDs, ",")
}

// Terms extracts the term calendar rows in scope.
func (c *Client) Terms(ctx context.Context) ([]models.FeedTerm, error) {
	query := fmt.Sprintf(`SELECT YEAR(TermStartDate) AS year,
		CASE WHEN TextTerm LIKE '%%Spr%%' THEN 'Spring'
		     WHEN TextTerm LIKE '%%Fal%%' THEN 'Fall'
		     ELSE 'Summer' END AS semester,
		CASE WHEN TermStartDate > GETDATE() THEN 'T' ELSE 'F' END AS active
		FROM TermCalendar
		WHERE TermCalendarID IN (%s)`, c.termIN())
	var rows []models.FeedTerm
	if err := c.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("extract terms: %w", err)
	}
	return rows, nil
}

// Campuses extracts the campus rows.
func (c *Client) Campuses(ctx context.Context) ([]models.FeedCampus, error) {
	const query = `SELECT Campus AS name FROM Campuses WHERE Campus <> '' ORDER BY Campus`
	var rows []models.FeedCampus
	if err := c.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("extract campuses: %w", err)
	}
	return rows, nil
}

// Locations extracts building/room pairs, rewriting the upstream NT/000
// pair to the Internet sentinel.
func (c *Client) Locations(ctx context.Context) ([]models.FeedLocation, error) {
	const query = `SELECT CASE WHEN b.Abbreviation = 'NT' THEN 'Inter' ELSE b.Abbreviation END AS building,
		CASE WHEN b.Abbreviation = 'NT' AND r.Number = '000' THEN 'net' ELSE r.Number END AS room
		FROM Buildings b
		JOIN Rooms r ON b.BuildingID = r.BuildingID
		WHERE b.Abbreviation <> ''`
	var rows []models.FeedLocation
	if err := c.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("extract locations: %w", err)
	}
	return rows, nil
}

// Instructors extracts active faculty.
func (c *Client) Instructors(ctx context.Context) ([]models.FeedInstructor, error) {
	const query = `SELECT fac.EmployeeID AS employee_id, fac.FirstName AS first_name, fac.LastName AS last_name,
		LEFT(g.DisplayText, 1) AS hiring_status
		FROM Faculty fac
		JOIN Glossary g ON fac.HireStatusID = g.UniqueId
		WHERE fac.Active = 1 AND fac.HireStatusID <> 0`
	var rows []models.FeedInstructor
	if err := c.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("extract instructors: %w", err)
	}
	return rows, nil
}

// Courses extracts the distinct course catalog for the terms in scope.
func (c *Client) Courses(ctx context.Context) ([]models.FeedCourse, error) {
	query := fmt.Sprintf(`SELECT DISTINCT Department AS subject, CourseID AS number,
		Credits AS credit, CourseName AS name
		FROM SROffer sro
		WHERE sro.TermCalendarID IN (%s)`, c.termIN())
	var rows []models.FeedCourse
	if err := c.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("extract courses: %w", err)
	}
	return rows, nil
}

// Schedules extracts the flat schedule feed for the terms in scope. The
// status text, instructor name, and location composite arrive
// pre-shaped the way the normalizer's lookups expect.
func (c *Client) Schedules(ctx context.Context) ([]models.FeedSchedule, error) {
	query := fmt.Sprintf(`SELECT YEAR(tc.TermStartDate) AS year,
		CASE WHEN tc.TextTerm LIKE '%%Spr%%' THEN 'Spring'
		     WHEN tc.TextTerm LIKE '%%Fal%%' THEN 'Fall'
		     ELSE 'Summer' END AS semester,
		sro.Department AS subject, sro.CourseID AS number, sro.CourseName AS course_name, sro.Section AS section,
		UPPER(CASE WHEN g.DisplayText = 'cancelled' THEN 'canceled' ELSE g.DisplayText END) AS status,
		sro.MaximumEnroll AS capacity,
		UPPER(RTRIM(fac.LastName)) + ', ' + UPPER(RTRIM(fac.FirstName)) AS instructor,
		CASE WHEN c.Campus IN ('', ' ') THEN NULL ELSE c.Campus END AS campus,
		CASE WHEN CONCAT(b.Abbreviation, r.Number) IN (' ', '') THEN NULL
		     WHEN CONCAT(b.Abbreviation, r.Number) = 'NT000' THEN 'Internet'
		     ELSE CONCAT(b.Abbreviation, r.Number) END AS location,
		CASE WHEN sch.OfferDays IN (' ', '', 'N\A') THEN NULL ELSE sch.OfferDays END AS days,
		CONVERT(varchar(30), sch.OfferTimeFrom, 120) AS start_time,
		CONVERT(varchar(30), sch.OfferTimeTo, 120) AS stop_time
		FROM SROffer sro
		JOIN TermCalendar tc ON tc.TermCalendarID = sro.TermCalendarID
		LEFT JOIN Campuses c ON c.CampusID = sro.CampusID
		LEFT JOIN SROfferSchedule sch ON sro.SROfferID = sch.SROfferID
		LEFT JOIN Rooms r ON sch.OfferRoomID = r.RoomID
		LEFT JOIN Buildings b ON b.BuildingID = r.BuildingID
		LEFT JOIN SROfferSchedule_Faculty schf ON sch.SROfferScheduleID = schf.SROfferScheduleID
		LEFT JOIN Faculty fac ON schf.FacultyID = fac.FacultyID
		LEFT JOIN Glossary g ON g.UniqueId = sro.StatusID
		WHERE sro.TermCalendarID IN (%s)`, c.termIN())
	var rows []models.FeedSchedule
	if err := c.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("extract schedules: %w", err)
	}
	return rows, nil
}
