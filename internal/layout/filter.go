package layout

import "time"

// FilterActiveEvents returns the events that participate in the view for
// viewedDate: the owner exists and is active, and viewedDate falls inside the
// event's inclusive validity window.
//
// Events with an unknown owner or an unparseable window are skipped. The
// weekday is not checked here; bucketing by Day is the grid's job. The result
// keeps the input order.
func FilterActiveEvents(users []User, events []ScheduleEvent, viewedDate time.Time) []ScheduleEvent {
	owners := make(map[string]User, len(users))
	for _, user := range users {
		owners[user.ID] = user
	}

	day := DateOnly(viewedDate)
	active := make([]ScheduleEvent, 0, len(events))
	for _, event := range events {
		owner, ok := owners[event.UserID]
		if !ok || !owner.Active {
			continue
		}
		if !withinWindow(event, day) {
			continue
		}
		active = append(active, event)
	}
	return active
}

// IsWithinWindow reports whether date lies inside the event's validity window.
func IsWithinWindow(event ScheduleEvent, date time.Time) bool {
	return withinWindow(event, DateOnly(date))
}

func withinWindow(event ScheduleEvent, day time.Time) bool {
	start, err := ParseDate(event.StartDate)
	if err != nil {
		return false
	}
	end, err := ParseDate(event.EndDate)
	if err != nil {
		return false
	}
	return !day.Before(start) && !day.After(end)
}
