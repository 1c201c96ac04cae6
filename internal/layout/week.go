package layout

import "time"

// DSTReference selects the instant at which zone offsets are read when a week
// is built.
type DSTReference string

const (
	// DSTReferenceNow reads every offset at the resolver's current instant.
	DSTReferenceNow DSTReference = "now"
	// DSTReferenceOccurrence reads offsets at noon of each column's date in the
	// viewer's zone.
	DSTReferenceOccurrence DSTReference = "occurrence"
)

// DefaultPixelsPerHour matches the height of one hour row in the grid.
const DefaultPixelsPerHour = 96

// ParseDSTReference validates a configured reference mode.
func ParseDSTReference(value string) (DSTReference, bool) {
	switch DSTReference(value) {
	case "", DSTReferenceNow:
		return DSTReferenceNow, true
	case DSTReferenceOccurrence:
		return DSTReferenceOccurrence, true
	default:
		return "", false
	}
}

// WeekOptions tunes BuildWeek. The zero value is usable.
type WeekOptions struct {
	PixelsPerHour float64
	DSTReference  DSTReference
}

func (o WeekOptions) pixelsPerHour() float64 {
	if o.PixelsPerHour <= 0 {
		return DefaultPixelsPerHour
	}
	return o.PixelsPerHour
}

// Block is one event drawn inside a day column.
type Block struct {
	Event        ScheduleEvent
	OwnerName    string
	OwnerColor   string
	OwnerAvatar  string
	DisplayStart int
	Duration     int
	Column       int
	TotalColumns int
	TopPx        float64
	HeightPx     float64
}

// LeftPercent is the block's left edge as a share of the column width.
func (b Block) LeftPercent() float64 {
	return LanePlacement{Column: b.Column, TotalColumns: b.TotalColumns}.LeftPercent()
}

// WidthPercent is the block's width as a share of the column width.
func (b Block) WidthPercent() float64 {
	return LanePlacement{Column: b.Column, TotalColumns: b.TotalColumns}.WidthPercent()
}

// DayColumn holds the blocks of one weekday. Index 0 is Monday.
type DayColumn struct {
	Index        int
	Date         time.Time
	TotalColumns int
	Blocks       []Block
}

// Week is the laid-out grid for the Monday-first week containing ViewedDate.
type Week struct {
	ViewedDate     time.Time
	WeekStart      time.Time
	ViewerTimezone string
	Days           [7]DayColumn
}

// WeekStart returns the Monday of the week containing date, as a UTC date.
func WeekStart(date time.Time) time.Time {
	day := DateOnly(date)
	return day.AddDate(0, 0, -WeekdayIndex(day.Weekday()))
}

// BuildWeek lays out a full week. Active events are selected once for
// viewedDate, bucketed by their Day, shifted into the viewer's clock and then
// packed into lanes using the shifted start times. Events keep their owner's
// Day even when the shift crosses midnight.
func BuildWeek(users []User, events []ScheduleEvent, viewedDate time.Time, resolver *Resolver, opts WeekOptions) Week {
	owners := make(map[string]User, len(users))
	for _, user := range users {
		owners[user.ID] = user
	}

	var buckets [7][]ScheduleEvent
	for _, event := range FilterActiveEvents(users, events, viewedDate) {
		if event.Day < 0 || event.Day > 6 {
			continue
		}
		buckets[event.Day] = append(buckets[event.Day], event)
	}

	week := Week{
		ViewedDate:     DateOnly(viewedDate),
		WeekStart:      WeekStart(viewedDate),
		ViewerTimezone: resolver.viewerTimezone(),
	}

	now := resolver.now()
	var viewerLoc *time.Location
	if opts.DSTReference == DSTReferenceOccurrence {
		viewerLoc = resolver.ViewerLocation()
	}
	pxPerMinute := opts.pixelsPerHour() / 60

	for i := range week.Days {
		date := week.WeekStart.AddDate(0, 0, i)
		reference := now
		if viewerLoc != nil {
			reference = time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, viewerLoc)
		}

		dayEvents := buckets[i]
		spans := make([]span, len(dayEvents))
		for j, event := range dayEvents {
			owner := owners[event.UserID]
			spans[j] = span{
				start:    resolver.ResolveShiftedStartTimeAt(event.StartTime, owner.Timezone, reference),
				duration: event.Duration,
				index:    j,
			}
		}
		packed, total := packSpans(spans)

		column := DayColumn{
			Index:        i,
			Date:         date,
			TotalColumns: total,
			Blocks:       make([]Block, 0, len(packed)),
		}
		for _, p := range packed {
			event := dayEvents[p.index]
			owner := owners[event.UserID]
			column.Blocks = append(column.Blocks, Block{
				Event:        event,
				OwnerName:    owner.Name,
				OwnerColor:   owner.Color,
				OwnerAvatar:  owner.Avatar,
				DisplayStart: p.start,
				Duration:     p.duration,
				Column:       p.column,
				TotalColumns: total,
				TopPx:        float64(p.start) * pxPerMinute,
				HeightPx:     float64(p.duration) * pxPerMinute,
			})
		}
		week.Days[i] = column
	}
	return week
}
