package firerisk

import "time"

// FireRisk is a cached risk value for a location at a point in time.
type FireRisk struct {
	ID           string    `json:"id"`
	LocationName string    `json:"locationName"`
	Time         time.Time `json:"time"`
	RiskValue    float64   `json:"risk_value"`
}

// Coordinates locate a prediction.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RiskPoint is one predicted value: the time-to-flashover in hours.
type RiskPoint struct {
	Timestamp time.Time `json:"timestamp"`
	TTF       float64   `json:"ttf"`
}

// Prediction is the prediction service's answer for a location.
type Prediction struct {
	Location  Coordinates `json:"location"`
	FireRisks []RiskPoint `json:"firerisks"`
}

// Query selects a prediction. Time defaults to now; Start and End request a
// period computation only when both are set.
type Query struct {
	LocationName string
	Time         *time.Time
	Start        *time.Time
	End          *time.Time
}

// Result holds either a cached entry or a freshly computed prediction.
type Result struct {
	Cached     *FireRisk
	Prediction *Prediction
}
