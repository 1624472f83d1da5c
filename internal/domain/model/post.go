package model

import "time"

type Post struct {
	ID         int64     `json:"id"`
	AuthorID   int64     `json:"author_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Place      string    `json:"place"`
	CityID     string    `json:"city_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

func (p Post) Location() Location {
	return Location{Lat: p.Lat, Lng: p.Lng}
}
