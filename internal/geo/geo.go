package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Geographic points are kept as simplefeatures points with X=longitude and
// Y=latitude in EPSG:4326. Station locations are stored projected to 3857,
// matching the layout used for persisted geometry.

const (
	// EarthRadiusEquator is the WGS84 equatorial radius in meters.
	EarthRadiusEquator = 6378137.0
	// EarthOblateness is the WGS84 flattening.
	EarthOblateness = 1.0 / 298.257223563
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PointFromLatLon creates a geographic point from latitude and longitude in degrees.
func PointFromLatLon(lat, lon float64) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: lon, Y: lat},
		Type: geom.DimXY,
	})
}

// LatLon returns latitude and longitude of a geographic point.
// ok is false for an empty point.
func LatLon(p geom.Point) (lat, lon float64, ok bool) {
	c, ok := p.Coordinates()
	if !ok {
		return 0, 0, false
	}
	return c.Y, c.X, true
}

// ValidLatLon reports whether lat is in [-90,90] and lon in [-180,180].
func ValidLatLon(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 &&
		!math.IsNaN(lat) && !math.IsNaN(lon)
}

// LatLonFromString parses a string in the format "lat,lon" into a geographic point.
func LatLonFromString(coords string) (geom.Point, error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	if !ValidLatLon(lat, lon) {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	return PointFromLatLon(lat, lon), nil
}

// Coords3857From4326 creates a Web Mercator point from a longitude and latitude
func Coords3857From4326(
	longitude float64,
	latitude float64,
) (
	point geom.Point,
	err error,
) {
	if !ValidLatLon(latitude, longitude) {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	point = geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
			Z:  0,
		},
	)
	return point, nil
}

// DistanceAccurate50m returns the surface distance in meters between two
// points given in degrees, on the WGS84 ellipsoid. The Andoyer-Lambert
// approximation used here stays within about 50 m of the exact geodesic.
func DistanceAccurate50m(lat1, lon1, lat2, lon2 float64) float64 {
	const d2r = math.Pi / 180
	f := (lat1 + lat2) * d2r / 2
	g := (lat1 - lat2) * d2r / 2
	l := (lon1 - lon2) * d2r / 2

	sf, cf := math.Sincos(f)
	sg, cg := math.Sincos(g)
	sl, cl := math.Sincos(l)

	s := sg*sg*cl*cl + cf*cf*sl*sl
	c := cg*cg*cl*cl + sf*sf*sl*sl
	if s == 0 {
		return 0
	}
	if c == 0 {
		// antipodal
		return math.Pi * EarthRadiusEquator * (1 - EarthOblateness/2)
	}

	w := math.Atan(math.Sqrt(s / c))
	r := math.Sqrt(s*c) / w
	d := 2 * w * EarthRadiusEquator
	h1 := (3*r - 1) / (2 * c)
	h2 := (3*r + 1) / (2 * s)

	return d * (1 +
		EarthOblateness*h1*sf*sf*cg*cg -
		EarthOblateness*h2*cf*cf*sg*sg)
}

// Distance returns the surface distance in meters between two geographic points.
func Distance(a, b geom.Point) (float64, error) {
	lat1, lon1, ok := LatLon(a)
	if !ok {
		return 0, ErrInvalidCoordinates
	}
	lat2, lon2, ok := LatLon(b)
	if !ok {
		return 0, ErrInvalidCoordinates
	}
	return DistanceAccurate50m(lat1, lon1, lat2, lon2), nil
}
