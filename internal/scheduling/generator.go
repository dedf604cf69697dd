package scheduling

import "time"

// HorizonDays is the rolling window of future days kept materialized.
const HorizonDays = 30

// GenerateSlots walks a date window and produces every candidate slot the
// template allows, in (date, start time) order. It is pure: identical inputs
// yield identical output, so both the interactive save path and the nightly
// job can share it. Dates whose weekday is not active contribute nothing; a
// window with no matching weekdays yields an empty result.
func GenerateSlots(tpl *AvailabilityTemplate, from time.Time, days int) []GeneratedSlot {
	var out []GeneratedSlot
	day := StartOfDay(from)
	for i := 0; i <= days; i++ {
		date := day.AddDate(0, 0, i)
		if tpl.HasWeekday(date.Weekday()) {
			out = append(out, GenerateDailySlots(date, tpl.StartTime, tpl.EndTime, tpl.DurationMins)...)
		}
	}
	return out
}

// GenerateDailySlots tiles one date from start in fixed duration-minute steps.
// A trailing remainder shorter than the duration is discarded, never rounded
// into a partial slot.
func GenerateDailySlots(date time.Time, start, end TimeOfDay, durationMins int) []GeneratedSlot {
	if durationMins <= 0 {
		return nil
	}
	date = StartOfDay(date)
	var out []GeneratedSlot
	for cur := start; cur.Before(end); cur = cur.Add(durationMins) {
		slotEnd := cur.Add(durationMins)
		if slotEnd.After(end) {
			break
		}
		out = append(out, GeneratedSlot{Date: date, StartTime: cur, EndTime: slotEnd})
	}
	return out
}
