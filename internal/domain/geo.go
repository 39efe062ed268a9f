package domain

import "math"

// EarthRadiusMeters - средний радиус Земли, тот же, что использует $geoNear для сферы.
const EarthRadiusMeters = 6378100.0

// Distance возвращает расстояние по большому кругу между точками в метрах.
func Distance(a, b Point) float64 {
	lat1 := a.Lat() * math.Pi / 180
	lat2 := b.Lat() * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng() - a.Lng()) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
