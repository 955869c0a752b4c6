package features

import (
	"math"

	"phisheye/domainintel"
)

// Missing is written for any feature that could not be computed.
const Missing = -1.0

// Map holds named feature values before they are put in schema order.
type Map map[string]float64

// Vector is a feature map laid out in schema order.
type Vector struct {
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

// Len returns the number of features.
func (v Vector) Len() int { return len(v.Values) }

// Get returns the value for name and whether it exists.
func (v Vector) Get(name string) (float64, bool) {
	for i, n := range v.Names {
		if n == name {
			return v.Values[i], true
		}
	}
	return 0, false
}

// DomainFeatures expands a DomainRecord into its numeric features. Status
// flags are one-hot; age and lifespan keep the record's -1 sentinel.
func DomainFeatures(rec domainintel.DomainRecord) Map {
	m := Map{
		DomainAge:           float64(rec.AgeDays),
		DomainLifespan:      float64(rec.LifespanDays),
		WhoisLookupFailed:   0,
		WhoisTimeout:        0,
		WhoisDomainNotFound: 0,
		WhoisQuotaExceeded:  0,
		WhoisOtherError:     0,
	}
	if rec.Status.Failed() {
		m[WhoisLookupFailed] = 1
	}
	switch rec.Status {
	case domainintel.StatusTimedOut:
		m[WhoisTimeout] = 1
	case domainintel.StatusNotFound:
		m[WhoisDomainNotFound] = 1
	case domainintel.StatusRateLimited:
		m[WhoisQuotaExceeded] = 1
	case domainintel.StatusTransientError:
		m[WhoisOtherError] = 1
	}
	return m
}

// Assemble joins lexical and domain features into a vector in schema order.
// Every schema key gets a value; absent or non-finite values become Missing.
// Keys outside the schema are dropped.
func Assemble(lexical Map, rec domainintel.DomainRecord, schema Schema) Vector {
	domain := DomainFeatures(rec)

	v := Vector{
		Names:  make([]string, len(schema)),
		Values: make([]float64, len(schema)),
	}
	copy(v.Names, schema)

	for i, name := range schema {
		val, ok := lexical[name]
		if !ok {
			val, ok = domain[name]
		}
		if !ok || math.IsNaN(val) || math.IsInf(val, 0) {
			val = Missing
		}
		v.Values[i] = val
	}
	return v
}
