// Package orbit propagates artificial satellites from two-line element sets
// and searches for their passes over an observer.
package orbit

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/akhenakh/sgp4"

	"github.com/large-farva/skyengine/internal/skyerr"
	"github.com/large-farva/skyengine/internal/timescale"
)

const tleLineLen = 69

// ElementSet is a validated two-line element set.
type ElementSet struct {
	Name          string            `json:"name"`
	Line1         string            `json:"line1"`
	Line2         string            `json:"line2"`
	CatalogNumber int               `json:"catalog_number"`
	Inclination   float64           `json:"inclination"`
	Eccentricity  float64           `json:"eccentricity"`
	MeanMotion    float64           `json:"mean_motion"` // revolutions per day
	Epoch         timescale.Instant `json:"epoch"`
}

// ParseElements validates the lines and returns the element set. Every check
// happens here, before the propagator ever sees the text: prefix, length,
// modulo-10 checksum, numeric fields and matching catalog numbers. Any
// failure is MalformedElementSet.
func ParseElements(name, line1, line2 string) (ElementSet, error) {
	l1 := strings.TrimRight(line1, " \t\r\n")
	l2 := strings.TrimRight(line2, " \t\r\n")
	name = strings.TrimSpace(name)

	if !strings.HasPrefix(l1, "1 ") {
		return ElementSet{}, malformed("line 1 must start with \"1 \"")
	}
	if !strings.HasPrefix(l2, "2 ") {
		return ElementSet{}, malformed("line 2 must start with \"2 \"")
	}
	if len(l1) != tleLineLen {
		return ElementSet{}, malformed("line 1 has %d columns, want %d", len(l1), tleLineLen)
	}
	if len(l2) != tleLineLen {
		return ElementSet{}, malformed("line 2 has %d columns, want %d", len(l2), tleLineLen)
	}
	for i, l := range []string{l1, l2} {
		want, got := Checksum(l), int(l[68]-'0')
		if l[68] < '0' || l[68] > '9' || want != got {
			return ElementSet{}, malformed("line %d checksum %c, computed %d", i+1, l[68], want)
		}
	}
	if err := checkFields(l1, l2); err != nil {
		return ElementSet{}, err
	}

	cat1, err1 := strconv.Atoi(strings.TrimSpace(l1[2:7]))
	cat2, err2 := strconv.Atoi(strings.TrimSpace(l2[2:7]))
	if err1 != nil || err2 != nil {
		return ElementSet{}, malformed("catalog number is not numeric")
	}
	if cat1 != cat2 {
		return ElementSet{}, malformed("catalog numbers differ: %d and %d", cat1, cat2)
	}

	label := name
	if label == "" {
		label = "UNKNOWN"
	}
	tle, err := sgp4.ParseTLE(label + "\n" + l1 + "\n" + l2)
	if err != nil {
		return ElementSet{}, skyerr.Wrap(skyerr.MalformedElementSet, err, "parse")
	}
	if tle.SatelliteNumber != cat1 {
		return ElementSet{}, malformed("catalog number %d parsed as %d", cat1, tle.SatelliteNumber)
	}

	incl, _ := strconv.ParseFloat(strings.TrimSpace(l2[8:16]), 64)
	ecc, _ := strconv.ParseFloat("0."+l2[26:33], 64)
	mm, _ := strconv.ParseFloat(strings.TrimSpace(l2[52:63]), 64)
	if name == "" {
		name = strconv.Itoa(cat1)
	}
	return ElementSet{
		Name:          name,
		Line1:         l1,
		Line2:         l2,
		CatalogNumber: cat1,
		Inclination:   incl,
		Eccentricity:  ecc,
		MeanMotion:    mm,
		Epoch:         epoch(l1),
	}, nil
}

// Checksum returns the modulo-10 checksum of the first 68 columns: digits
// count their value, minus signs count one, everything else zero.
func Checksum(line string) int {
	sum := 0
	for i := 0; i < len(line) && i < 68; i++ {
		switch c := line[i]; {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

type field struct {
	name       string
	line       int
	start, end int
	implied    bool // mantissa with assumed leading decimal point and exponent
}

var fields = []field{
	{"epoch year", 1, 18, 20, false},
	{"epoch day", 1, 20, 32, false},
	{"first derivative of mean motion", 1, 33, 43, false},
	{"second derivative of mean motion", 1, 44, 52, true},
	{"drag term", 1, 53, 61, true},
	{"inclination", 2, 8, 16, false},
	{"right ascension of node", 2, 17, 25, false},
	{"eccentricity", 2, 26, 33, false},
	{"argument of perigee", 2, 34, 42, false},
	{"mean anomaly", 2, 43, 51, false},
	{"mean motion", 2, 52, 63, false},
}

func checkFields(l1, l2 string) error {
	for _, f := range fields {
		src := l1
		if f.line == 2 {
			src = l2
		}
		raw := src[f.start:f.end]
		if f.implied {
			if !impliedDecimal(raw) {
				return malformed("%s field %q is not numeric", f.name, raw)
			}
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return malformed("%s field %q is not numeric", f.name, raw)
		}
		switch f.name {
		case "eccentricity":
			if strings.TrimSpace(raw) != raw || strings.ContainsAny(raw, "+-.") {
				return malformed("eccentricity field %q must be seven digits", raw)
			}
		case "mean motion":
			if v <= 0 {
				return malformed("mean motion %v must be positive", v)
			}
		case "epoch day":
			if v < 1 || v >= 367 {
				return malformed("epoch day %v out of range", v)
			}
		}
	}
	return nil
}

// impliedDecimal accepts the " 12345-3" form: optional sign, five digits,
// signed one-digit exponent.
func impliedDecimal(raw string) bool {
	if len(raw) != 8 {
		return false
	}
	if s := raw[0]; s != ' ' && s != '-' && s != '+' {
		return false
	}
	for _, c := range raw[1:6] {
		if c < '0' || c > '9' {
			return false
		}
	}
	if e := raw[6]; e != '-' && e != '+' && e != ' ' {
		return false
	}
	return raw[7] >= '0' && raw[7] <= '9'
}

func epoch(l1 string) timescale.Instant {
	yy, _ := strconv.Atoi(l1[18:20])
	day, _ := strconv.ParseFloat(strings.TrimSpace(l1[20:32]), 64)
	year := 2000 + yy
	if yy >= 57 {
		year = 1900 + yy
	}
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return timescale.FromTime(start.Add(time.Duration((day - 1) * float64(24*time.Hour))))
}

func malformed(format string, args ...any) error {
	return skyerr.New(skyerr.MalformedElementSet, format, args...)
}
