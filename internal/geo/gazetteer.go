// Package geo provides offline reverse geocoding against a flat city
// reference table in the GeoNames tab-separated format.
package geo

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"media-indexer/internal/logging"
)

// Unknown is returned when no city is close enough to the queried point.
const Unknown = "Unknown"

// maxCityDistanceKm is the cutoff beyond which the nearest city is not
// considered a match.
const maxCityDistanceKm = 50.0

const earthRadiusKm = 6371.0

// City is one gazetteer entry.
type City struct {
	Name string
	Lat  float64
	Lon  float64
}

// Gazetteer resolves coordinates to the nearest known city. It is loaded
// once and read-only thereafter, so lookups are safe for concurrent use.
type Gazetteer struct {
	cities []City
}

// Load parses a GeoNames-format table: tab-separated lines with the city
// name in column 1, latitude in column 4 and longitude in column 5.
// Malformed lines are skipped.
func Load(r io.Reader) (*Gazetteer, error) {
	var cities []City

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), "\t")
		if len(parts) < 6 {
			continue
		}
		lat, err := strconv.ParseFloat(parts[4], 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(parts[5], 64)
		if err != nil {
			continue
		}
		cities = append(cities, City{Name: parts[1], Lat: lat, Lon: lon})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading gazetteer: %w", err)
	}

	logging.Info("Gazetteer loaded: %d cities", len(cities))
	return &Gazetteer{cities: cities}, nil
}

// LoadFile loads a gazetteer from a file on disk.
func LoadFile(path string) (*Gazetteer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gazetteer %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Size returns the number of loaded cities.
func (g *Gazetteer) Size() int {
	return len(g.cities)
}

// NearestCity returns the name of the city nearest to (lat, lon) if it
// lies within 50 km, otherwise Unknown. Out-of-range coordinates resolve
// to Unknown. The scan is linear; gazetteer sizes in the tens of
// thousands keep this well under a millisecond.
func (g *Gazetteer) NearestCity(lat, lon float64) string {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Unknown
	}
	if len(g.cities) == 0 {
		return Unknown
	}

	nearest := -1
	minDist := math.MaxFloat64
	for i := range g.cities {
		d := haversineKm(lat, lon, g.cities[i].Lat, g.cities[i].Lon)
		if d < minDist {
			minDist = d
			nearest = i
		}
	}

	if nearest >= 0 && minDist < maxCityDistanceKm {
		return g.cities[nearest].Name
	}
	return Unknown
}

// haversineKm computes the great-circle distance between two points.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
