package export

import (
	"strings"
)

// Standard is one regulatory limit.
type Standard struct {
	Category      string
	Pollutant     string
	Value         string
	Unit          string
	AverageTime   string
	Regulation    string
	EffectiveDate string
}

// DefaultStandards is the built-in regulatory table.
func DefaultStandards() []Standard {
	return []Standard{{
		Category:      "室內空氣品質",
		Pollutant:     "甲醛",
		Value:         "0.08",
		Unit:          "ppm",
		AverageTime:   "1小時",
		Regulation:    "室內空氣品質管理法",
		EffectiveDate: "2012/11/23",
	}}
}

var standardHeaders = []string{"category", "pollutant", "value", "unit", "averageTime", "regulation", "effectiveDate"}

// StandardsFileName is the download name of the standards export.
const StandardsFileName = "standards.csv"

// StandardsCSV renders standards with an unquoted header line and every data
// field double-quoted. Lines are separated by \n without a trailing newline.
func StandardsCSV(standards []Standard) string {
	lines := make([]string, 0, len(standards)+1)
	lines = append(lines, strings.Join(standardHeaders, ","))
	for _, s := range standards {
		fields := []string{s.Category, s.Pollutant, s.Value, s.Unit, s.AverageTime, s.Regulation, s.EffectiveDate}
		for i, f := range fields {
			fields[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		}
		lines = append(lines, strings.Join(fields, ","))
	}
	return strings.Join(lines, "\n")
}
