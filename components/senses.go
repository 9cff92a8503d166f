package components

import (
	"encoding/json"
	"strconv"
)

// Reading is one sensor's normalized distance to the nearest seeable body.
// A zero Reading means nothing was detected, which is distinct from a
// detection at distance 0.
type Reading struct {
	Distance float64
	Detected bool
}

// Hit returns a detection at distance d.
func Hit(d float64) Reading {
	return Reading{Distance: d, Detected: true}
}

// MarshalJSON encodes an empty reading as null and a detection as its distance.
func (r Reading) MarshalJSON() ([]byte, error) {
	if !r.Detected {
		return []byte("null"), nil
	}
	return json.Marshal(r.Distance)
}

// UnmarshalJSON accepts null or a number.
func (r *Reading) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Reading{}
		return nil
	}
	var d float64
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	*r = Hit(d)
	return nil
}

func (r Reading) String() string {
	if !r.Detected {
		return "none"
	}
	return strconv.FormatFloat(r.Distance, 'f', 4, 64)
}

// Senses holds one reading per sensor of an agent. The length is fixed at
// spawn and every slot is rewritten each tick.
type Senses struct {
	Readings []Reading
}
