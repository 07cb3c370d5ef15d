package model

// UnitMeters is the only distance unit used for radius searches.
const UnitMeters = "m"

// RadiusSearch describes a radius search around each cell center. Count
// limits the results per cell; zero means unbounded.
type RadiusSearch struct {
	Radius float64
	Unit   string
	Count  int
}
