package persistence

import "time"

// Circle is a group whose members share one weekly calendar.
type Circle struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member is a person in a circle. Active controls whether the member's events
// appear in views.
type Member struct {
	ID        string
	CircleID  string
	Name      string
	Color     string
	Active    bool
	Timezone  string
	Avatar    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Event is a weekly recurring block owned by a member. Day is 0 for Monday
// and StartTime counts minutes from the owner's local midnight. StartDate and
// EndDate are inclusive YYYY-MM-DD values.
type Event struct {
	ID        string
	CircleID  string
	UserID    string
	Title     string
	Day       int
	StartTime int
	Duration  int
	StartDate string
	EndDate   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CircleSnapshot is a circle with its members and events read at one point
// in time.
type CircleSnapshot struct {
	Circle  Circle
	Members []Member
	Events  []Event
}
