package layout

import "sort"

// LanePlacement is the horizontal slot assigned to one event within a day
// column. Every placement of a single packing run shares TotalColumns.
type LanePlacement struct {
	Event        ScheduleEvent
	Column       int
	TotalColumns int
}

// LeftPercent is the block's left edge as a share of the column width.
func (p LanePlacement) LeftPercent() float64 {
	if p.TotalColumns == 0 {
		return 0
	}
	return float64(p.Column) / float64(p.TotalColumns) * 100
}

// WidthPercent is the block's width as a share of the column width.
func (p LanePlacement) WidthPercent() float64 {
	if p.TotalColumns == 0 {
		return 100
	}
	return 100 / float64(p.TotalColumns)
}

// PackDayLanes assigns lanes to the events of one day column so that no two
// events sharing a lane overlap. Events are taken by ascending StartTime (input
// order breaks ties) and each goes to the first lane whose last event ends at
// or before its start. A new lane opens only when none qualifies, which keeps
// the lane count equal to the largest set of mutually overlapping events.
//
// Placements are returned in packing order.
func PackDayLanes(dayEvents []ScheduleEvent) []LanePlacement {
	spans := make([]span, len(dayEvents))
	for i, event := range dayEvents {
		spans[i] = span{start: event.StartTime, duration: event.Duration, index: i}
	}

	packed, total := packSpans(spans)
	placements := make([]LanePlacement, 0, len(packed))
	for _, p := range packed {
		placements = append(placements, LanePlacement{
			Event:        dayEvents[p.index],
			Column:       p.column,
			TotalColumns: total,
		})
	}
	return placements
}

// span is the packing view of an event: an interval plus its input position.
type span struct {
	start    int
	duration int
	index    int
	column   int
}

func (s span) end() int {
	return s.start + s.duration
}

func packSpans(spans []span) ([]span, int) {
	sorted := make([]span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].start < sorted[j].start
	})

	// lastInLane[c] is the most recent span placed in lane c.
	lastInLane := make([]span, 0, len(sorted))
	for i := range sorted {
		column := -1
		for c, last := range lastInLane {
			if last.end() <= sorted[i].start {
				column = c
				break
			}
		}
		if column < 0 {
			column = len(lastInLane)
			lastInLane = append(lastInLane, sorted[i])
		} else {
			lastInLane[column] = sorted[i]
		}
		sorted[i].column = column
	}
	return sorted, len(lastInLane)
}
