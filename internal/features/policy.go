package features

import "github.com/sucolo/hexfeat/internal/model"

// NearestValue is the missing-POI policy for nearest-distance features.
// distances are ordered nearest first. With no match inside the radius the
// value is null, or radius+penalty when a penalty is configured.
func NearestValue(distances []float64, radius int, penalty *int) model.Value {
	if len(distances) > 0 {
		return model.Number(distances[0])
	}
	if penalty == nil {
		return model.Null()
	}
	return model.Number(float64(radius + *penalty))
}

// CountValue is the number of amenities found inside the radius.
func CountValue(distances []float64) model.Value {
	return model.Number(float64(len(distances)))
}

// PresenceValue is 1 when at least one amenity is inside the radius, else 0.
func PresenceValue(distances []float64) model.Value {
	if len(distances) > 0 {
		return model.Number(1)
	}
	return model.Number(0)
}

func valueFor(kind Kind, q AmenityQuery, distances []float64) model.Value {
	switch kind {
	case KindNearest:
		return NearestValue(distances, q.Radius, q.Penalty)
	case KindCount:
		return CountValue(distances)
	default:
		return PresenceValue(distances)
	}
}
