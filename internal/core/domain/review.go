package domain

import "time"

// TopRatedThreshold is the minimum star rating shown on the home page.
const TopRatedThreshold = 4

type Review struct {
	ID         string    `json:"_id,omitempty"`
	Name       string    `json:"name"`
	Photo      string    `json:"photo,omitempty"`
	StarRating int       `json:"starRating"`
	Review     string    `json:"review"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Feedback struct {
	ID        string    `json:"_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Rating    int       `json:"rating"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
