package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstitutionRecord_NeedsEmail(t *testing.T) {
	tests := []struct {
		name string
		rec  InstitutionRecord
		want bool
	}{
		{"site without email", InstitutionRecord{Site: "https://ufrgs.br"}, true},
		{"site with email", InstitutionRecord{Site: "https://ufrgs.br", Email: "info@ufrgs.br"}, false},
		{"no site", InstitutionRecord{}, false},
		{"email without site", InstitutionRecord{Email: "info@ufrgs.br"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.NeedsEmail())
		})
	}
}

func TestInstitutionRecord_CoordInvariant(t *testing.T) {
	var r InstitutionRecord
	assert.True(t, r.NeedsCoords())

	r.SetCoords(-30.0346, -51.2177, CoordStatusKnown)
	assert.NotNil(t, r.Latitude)
	assert.NotNil(t, r.Longitude)
	assert.False(t, r.NeedsCoords())
	assert.Equal(t, CoordStatusKnown, r.CoordStatus)

	r.ClearCoords(CoordStatusOutOfRegion)
	assert.Nil(t, r.Latitude)
	assert.Nil(t, r.Longitude)
	assert.Equal(t, CoordStatusOutOfRegion, r.CoordStatus)
}

func TestRunSummary_Rates(t *testing.T) {
	s := RunSummary{
		EmailCandidates: 8,
		EmailsFound:     6,
		UniqueCities:    10,
		CoordsKnown:     4,
		CoordsResolved:  3,
	}
	assert.InDelta(t, 75.0, s.EmailSuccessRate(), 0.001)
	assert.InDelta(t, 70.0, s.CoordSuccessRate(), 0.001)

	var empty RunSummary
	assert.Zero(t, empty.EmailSuccessRate())
	assert.Zero(t, empty.CoordSuccessRate())
}

func TestRunSummary_CountCoordStatus(t *testing.T) {
	var s RunSummary
	for _, st := range []CoordStatus{
		CoordStatusKnown, CoordStatusResolved, CoordStatusResolved,
		CoordStatusRegionalDefault, CoordStatusOutOfRegion, CoordStatusUnresolved,
	} {
		s.CountCoordStatus(st)
	}
	assert.Equal(t, 1, s.CoordsKnown)
	assert.Equal(t, 2, s.CoordsResolved)
	assert.Equal(t, 1, s.CoordsDefaulted)
	assert.Equal(t, 1, s.OutOfRegion)
	assert.Equal(t, 1, s.Unresolved)
}
