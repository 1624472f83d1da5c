package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/zelkovascum/Photudio/internal/config"
	"github.com/zelkovascum/Photudio/internal/domain/model"
)

const earthRadiusKM = 6371.0

var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrNoCities          = errors.New("no cities configured")
	ErrCityNotFound      = errors.New("city not found")
)

type City struct {
	ID   string
	Name string
	Lat  float64
	Lng  float64
}

func (c City) Location() model.Location {
	return model.Location{Lat: c.Lat, Lng: c.Lng}
}

type Service struct {
	cities []City
	byID   map[string]City
}

func NewService(cities []config.CityConfig) *Service {
	mapped := make([]City, 0, len(cities))
	byID := make(map[string]City, len(cities))
	for _, city := range cities {
		id := strings.TrimSpace(city.ID)
		if id == "" || strings.TrimSpace(city.Name) == "" {
			continue
		}
		if ValidateCoordinates(city.Lat, city.Lng) != nil {
			continue
		}
		c := City{ID: id, Name: city.Name, Lat: city.Lat, Lng: city.Lng}
		mapped = append(mapped, c)
		byID[strings.ToLower(id)] = c
	}

	return &Service{
		cities: mapped,
		byID:   byID,
	}
}

func (s *Service) City(id string) (City, error) {
	city, ok := s.byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return City{}, ErrCityNotFound
	}
	return city, nil
}

func (s *Service) ResolveNearestCity(lat, lng float64) (City, error) {
	if err := ValidateCoordinates(lat, lng); err != nil {
		return City{}, err
	}
	if len(s.cities) == 0 {
		return City{}, ErrNoCities
	}

	nearest := s.cities[0]
	bestDistance := haversineKM(lat, lng, nearest.Lat, nearest.Lng)
	for _, city := range s.cities[1:] {
		distance := haversineKM(lat, lng, city.Lat, city.Lng)
		if distance < bestDistance {
			bestDistance = distance
			nearest = city
		}
	}

	return nearest, nil
}

// Distance returns the great-circle distance in kilometres on a spherical earth.
func Distance(lat1, lng1, lat2, lng2 float64) (float64, error) {
	if err := ValidateCoordinates(lat1, lng1); err != nil {
		return 0, err
	}
	if err := ValidateCoordinates(lat2, lng2); err != nil {
		return 0, err
	}
	return haversineKM(lat1, lng1, lat2, lng2), nil
}

func DistanceBetween(from, to model.Location) (float64, error) {
	return Distance(from.Lat, from.Lng, to.Lat, to.Lng)
}

func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return fmt.Errorf("non-finite coordinates: %w", ErrInvalidCoordinate)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("coordinates out of range: %w", ErrInvalidCoordinate)
	}
	return nil
}

func haversineKM(lat1, lng1, lat2, lng2 float64) float64 {
	if lat1 == lat2 && lng1 == lng2 {
		return 0
	}

	toRad := func(v float64) float64 { return v * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	if a > 1 {
		a = 1
	}
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}
