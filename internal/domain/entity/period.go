package entity

import "time"

// WindowLabel identifica uma janela de tempo usada na agregação de custos.
type WindowLabel string

const (
	TodayPartial      WindowLabel = "today_partial"
	YesterdayFull     WindowLabel = "yesterday_full"
	MonthToDate       WindowLabel = "month_to_date"
	PreviousMonthFull WindowLabel = "previous_month_full"
	// BaselineFull é o dia completo contra o qual YesterdayFull é comparado.
	BaselineFull WindowLabel = "baseline_full"
)

// AllWindowLabels lista os rótulos na ordem em que aparecem no relatório.
var AllWindowLabels = []WindowLabel{TodayPartial, YesterdayFull, BaselineFull, MonthToDate, PreviousMonthFull}

// Valid reports whether the label is one of the known windows.
func (l WindowLabel) Valid() bool {
	for _, known := range AllWindowLabels {
		if l == known {
			return true
		}
	}
	return false
}

// DisplayName returns a human readable name for reports.
func (l WindowLabel) DisplayName() string {
	switch l {
	case TodayPartial:
		return "Today (so far)"
	case YesterdayFull:
		return "Yesterday"
	case BaselineFull:
		return "Baseline day"
	case MonthToDate:
		return "Month to date"
	case PreviousMonthFull:
		return "Previous month"
	default:
		return string(l)
	}
}

// TimeWindow is a half-open [StartUTC, EndUTC) interval.
type TimeWindow struct {
	Label      WindowLabel `json:"label"`
	StartUTC   time.Time   `json:"start_utc"`
	EndUTC     time.Time   `json:"end_utc"`
	IsComplete bool        `json:"is_complete"`
}

// Duration retorna a duração absoluta (UTC) da janela.
func (w TimeWindow) Duration() time.Duration {
	return w.EndUTC.Sub(w.StartUTC)
}

// Contains reports whether t falls inside the half-open window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.StartUTC) && t.Before(w.EndUTC)
}

// BaselineMode selects which full day YesterdayFull is compared against.
type BaselineMode string

const (
	BaselinePreviousDay BaselineMode = "previous_day"
	BaselineSameWeekday BaselineMode = "same_weekday"
)

// Valid reports whether the mode is supported.
func (m BaselineMode) Valid() bool {
	return m == BaselinePreviousDay || m == BaselineSameWeekday
}

// WindowSet carrega as janelas calculadas para uma invocação.
type WindowSet struct {
	Location *time.Location `json:"-"`
	Timezone string         `json:"timezone"`
	Now      time.Time      `json:"now"`
	Windows  []TimeWindow   `json:"windows"`
}

// Get returns the window with the given label.
func (s WindowSet) Get(label WindowLabel) (TimeWindow, bool) {
	for _, w := range s.Windows {
		if w.Label == label {
			return w, true
		}
	}
	return TimeWindow{}, false
}

// Labels returns the labels of all windows in the set.
func (s WindowSet) Labels() []WindowLabel {
	labels := make([]WindowLabel, 0, len(s.Windows))
	for _, w := range s.Windows {
		labels = append(labels, w.Label)
	}
	return labels
}
