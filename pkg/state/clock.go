package state

import "fmt"

// GameTime is the in-game calendar. Months are a flat 30 days.
type GameTime struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

const daysPerMonth = 30

// Advance moves the clock forward by minutes. Negative values are ignored.
// Day and Month are 1-based.
func (t *GameTime) Advance(minutes int) {
	if minutes <= 0 {
		return
	}
	hours := minutes/60 + (t.Minute+minutes%60)/60
	t.Minute = (t.Minute + minutes%60) % 60

	days := hours/24 + (t.Hour+hours%24)/24
	t.Hour = (t.Hour + hours%24) % 24

	day := t.Day - 1 + days%daysPerMonth
	months := days/daysPerMonth + day/daysPerMonth
	t.Day = day%daysPerMonth + 1

	month := t.Month - 1 + months%12
	t.Year += months/12 + month/12
	t.Month = month%12 + 1
}

func (t GameTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", t.Year, t.Month, t.Day, t.Hour, t.Minute)
}
