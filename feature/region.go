package feature

import (
	"math"
	"strconv"
	"strings"
)

// MaxPosition is the end of an interval that extends to the end of its
// contig.
const MaxPosition = math.MaxInt32 - 1

// ParseInterval parses a region string of one of the forms
//   [contig]:[1-based first pos]-[last pos]
//   [contig]:[1-based pos]
//   [contig]
// Thousands separators in positions are accepted, as samtools does.
func ParseInterval(region string) (iv Interval, err error) {
	if region == "" {
		return iv, Errorf(ErrInvalidInterval, "empty region string")
	}
	colon := strings.LastIndexByte(region, ':')
	if colon == -1 {
		return Interval{Contig: region, Start: 1, End: MaxPosition}, nil
	}
	if colon == 0 {
		return iv, Errorf(ErrInvalidInterval, "%s: empty contig", region)
	}
	iv.Contig = region[:colon]
	rangeStr := strings.Replace(region[colon+1:], ",", "", -1)
	dash := strings.IndexByte(rangeStr, '-')
	if dash == -1 {
		if iv.Start, err = parsePosition(region, rangeStr); err != nil {
			return iv, err
		}
		iv.End = iv.Start
		return iv, nil
	}
	if iv.Start, err = parsePosition(region, rangeStr[:dash]); err != nil {
		return iv, err
	}
	if iv.End, err = parsePosition(region, rangeStr[dash+1:]); err != nil {
		return iv, err
	}
	return iv, iv.Validate()
}

// ParseIntervals parses a list of regions separated by whitespace or
// semicolons. Commas are not separators since they may appear in positions.
func ParseIntervals(regions string) ([]Interval, error) {
	var ivs []Interval
	for _, r := range strings.FieldsFunc(regions, func(c rune) bool {
		return c == ';' || c == ' ' || c == '\t' || c == '\n'
	}) {
		iv, err := ParseInterval(r)
		if err != nil {
			return nil, err
		}
		ivs = append(ivs, iv)
	}
	return ivs, nil
}

func parsePosition(region, s string) (int, error) {
	pos, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, Wrap(ErrInvalidInterval, err, "%s", region)
	}
	if pos <= 0 || pos > MaxPosition {
		return 0, Errorf(ErrInvalidInterval, "%s: position %s out of range", region, s)
	}
	return int(pos), nil
}
