package model

type PeriodType string

const (
	PeriodYear    PeriodType = "Y"
	PeriodQuarter PeriodType = "Q"
	PeriodMonth   PeriodType = "M"
)

// PeriodTypes is the rendering order for periodicity groups on a sheet.
var PeriodTypes = []PeriodType{PeriodYear, PeriodQuarter, PeriodMonth}

func (t PeriodType) Label() string {
	switch t {
	case PeriodQuarter:
		return "Quarter"
	case PeriodMonth:
		return "Month"
	default:
		return "Year"
	}
}

const (
	// DefaultSource is the World Development Indicators database id, used
	// when an indicator entry does not name a source database.
	DefaultSource = 2

	// ProbeEconomy is the fixed reference economy used for metadata probes
	// during normalization. Only the probe record's display name and
	// decimal count are read, never its value.
	ProbeEconomy = "USA"
)

// Indicator is a fully-populated indicator descriptor. Every field is
// guaranteed set once normalization has run; descriptors are immutable
// afterwards.
type Indicator struct {
	ID         string
	Name       string
	Source     int
	Multiplier float64
	Precision  int
}

type Economy struct {
	ID   string
	Name string
}
