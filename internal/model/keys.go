package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Redis key suffixes.
const (
	POISuffix        = "_pois"
	HexSuffix        = "_hexagons"
	WheelchairSuffix = "_wheelchair"
)

var lower = cases.Lower(language.Und)

// NormalizeCity canonicalizes a city name so it is a valid Elasticsearch
// index name and a stable Redis key prefix.
func NormalizeCity(city string) string {
	return lower.String(norm.NFC.String(strings.TrimSpace(city)))
}

// POIKey is the geoset key holding the points of one amenity in a city.
func POIKey(city, amenity string, wheelchair bool) string {
	key := city + "_" + amenity
	if wheelchair {
		key += WheelchairSuffix
	}
	return key + POISuffix
}

// HexKey is the geoset key holding the hexagon centers of a city.
func HexKey(city string) string {
	return city + HexSuffix
}

// AmenityFromKey extracts the amenity name from a POI geoset key of the
// given city. Wheelchair sets yield "<amenity>_wheelchair".
func AmenityFromKey(city, key string) (string, bool) {
	prefix := city + "_"
	if len(key) <= len(prefix)+len(POISuffix) {
		return "", false
	}
	if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, POISuffix) {
		return "", false
	}
	return key[len(prefix) : len(key)-len(POISuffix)], true
}
