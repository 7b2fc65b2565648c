package timescale

import (
	"sort"
	"time"
)

// ttMinusTAI is the fixed offset between Terrestrial Time and TAI.
const ttMinusTAI = 32184 * time.Millisecond

type leapEntry struct {
	from   time.Time // UTC instant the offset takes effect
	offset time.Duration
}

// leapTable holds TAI-UTC since the introduction of integer leap seconds.
// Read-only after package init.
var leapTable = []leapEntry{
	{date(1972, 1, 1), 10 * time.Second},
	{date(1972, 7, 1), 11 * time.Second},
	{date(1973, 1, 1), 12 * time.Second},
	{date(1974, 1, 1), 13 * time.Second},
	{date(1975, 1, 1), 14 * time.Second},
	{date(1976, 1, 1), 15 * time.Second},
	{date(1977, 1, 1), 16 * time.Second},
	{date(1978, 1, 1), 17 * time.Second},
	{date(1979, 1, 1), 18 * time.Second},
	{date(1980, 1, 1), 19 * time.Second},
	{date(1981, 7, 1), 20 * time.Second},
	{date(1982, 7, 1), 21 * time.Second},
	{date(1983, 7, 1), 22 * time.Second},
	{date(1985, 7, 1), 23 * time.Second},
	{date(1988, 1, 1), 24 * time.Second},
	{date(1990, 1, 1), 25 * time.Second},
	{date(1991, 1, 1), 26 * time.Second},
	{date(1992, 7, 1), 27 * time.Second},
	{date(1993, 7, 1), 28 * time.Second},
	{date(1994, 7, 1), 29 * time.Second},
	{date(1996, 1, 1), 30 * time.Second},
	{date(1997, 7, 1), 31 * time.Second},
	{date(1999, 1, 1), 32 * time.Second},
	{date(2006, 1, 1), 33 * time.Second},
	{date(2009, 1, 1), 34 * time.Second},
	{date(2012, 7, 1), 35 * time.Second},
	{date(2015, 7, 1), 36 * time.Second},
	{date(2017, 1, 1), 37 * time.Second},
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LeapSeconds returns TAI-UTC in effect at the given UTC time. Times before
// 1972 use the 1972 value; the pre-1972 rubber-second era is not modelled.
func LeapSeconds(utc time.Time) time.Duration {
	i := sort.Search(len(leapTable), func(i int) bool {
		return leapTable[i].from.After(utc)
	})
	if i == 0 {
		return leapTable[0].offset
	}
	return leapTable[i-1].offset
}

// DeltaTTUTC returns TT-UTC at the given UTC time.
func DeltaTTUTC(utc time.Time) time.Duration {
	return LeapSeconds(utc) + ttMinusTAI
}
