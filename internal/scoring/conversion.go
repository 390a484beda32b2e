package scoring

import (
	"sort"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

// Conversion is an affine map from a raw stat count to fantasy points.
type Conversion struct {
	Scale  float64 `json:"scale"`
	Offset float64 `json:"offset"`
}

// Apply converts a stat count.
func (c Conversion) Apply(value float64) float64 {
	return value*c.Scale + c.Offset
}

// ConversionTable maps stat names to their point conversion. Stats missing
// from the table score nothing.
type ConversionTable map[string]Conversion

func linear(scale float64) Conversion {
	return Conversion{Scale: scale}
}

// DefaultTable is the half-PPR league scoring used for every projection.
var DefaultTable = ConversionTable{
	"passing_twoptm":   linear(2.0),
	"passing_yds":      linear(0.2 / 5.0),
	"passing_tds":      linear(4.0),
	"passing_ints":     linear(-2.0),
	"rushing_yds":      linear(0.1),
	"rushing_tds":      linear(6.0),
	"rushing_twoptm":   linear(2.0),
	"receiving_yds":    linear(0.1),
	"receiving_rec":    linear(0.5),
	"receiving_tds":    linear(6.0),
	"receiving_twoptm": linear(2.0),
	"kickret_tds":      linear(6.0),
	"puntret_tds":      linear(6.0),
	"fumbles_lost":     linear(-2.0),
	"kicking_fgb":      linear(-1.0),
	"fumbles_rec_tds":  linear(6.0),
	"defense_int_tds":  linear(6.0),
	"fumble_rec_tds":   linear(6.0),
	"defense_safe":     linear(2.0),
	"defense_fgblk":    linear(2.0),
	"defense_puntblk":  linear(2.0),
	"defense_int":      linear(2.0),
	"fumbles_rec":      linear(2.0),
	"kicking_fgmissed": linear(-1.0),
	"defense_sk":       linear(1.0),
}

// Points converts a single observation to fantasy points. Keys are summed in
// sorted order so the result does not depend on map iteration.
func (t ConversionTable) Points(rec models.StatRecord) float64 {
	if len(rec) == 0 {
		return 0
	}

	keys := make([]string, 0, len(rec))
	for k := range rec {
		if _, ok := t[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	points := 0.0
	for _, k := range keys {
		points += t[k].Apply(rec[k])
	}
	return points
}

// ScoreToPoints scores a record with DefaultTable.
func ScoreToPoints(rec models.StatRecord) float64 {
	return DefaultTable.Points(rec)
}
