// Package eta estimates delivery times from restaurant preparation time,
// kitchen queue depth and travel distance.
//
// Distances are straight-line (haversine) and driving assumes a fixed
// average speed; there is no routing or live traffic input.
package eta

import (
	"math"
	"time"
)

const (
	// QueueDelayMinutes is added to preparation for every order ahead in the queue.
	QueueDelayMinutes = 3
	// MinutesPerKm is the fixed average driving pace.
	MinutesPerKm = 4.0
	// EarthRadiusKm is the mean Earth radius used by Distance.
	EarthRadiusKm = 6371.0
	// FlatEstimate is the estimate used when the estimator is not consulted.
	FlatEstimate = 30 * time.Minute
)

type Params struct {
	AvgPrepTime int     // restaurant average preparation, minutes
	QueueDepth  int     // orders ahead of this one
	DistanceKm  float64 // restaurant to customer
}

type Breakdown struct {
	Prep    int `json:"prep"`
	Driving int `json:"driving"`
}

type Result struct {
	TotalMinutes          int       `json:"total_minutes"`
	EstimatedDeliveryTime time.Time `json:"estimated_delivery_time"`
	Breakdown             Breakdown `json:"breakdown"`
}

// Calculate returns the estimate relative to now. Negative inputs count as zero.
func Calculate(p Params, now time.Time) Result {
	prep := max(p.AvgPrepTime, 0) + QueueDelayMinutes*max(p.QueueDepth, 0)
	driving := DrivingMinutes(p.DistanceKm)
	total := prep + driving
	return Result{
		TotalMinutes:          total,
		EstimatedDeliveryTime: now.Add(time.Duration(total) * time.Minute),
		Breakdown:             Breakdown{Prep: prep, Driving: driving},
	}
}

// DrivingMinutes is ceil(km × MinutesPerKm).
func DrivingMinutes(km float64) int {
	if km <= 0 || math.IsNaN(km) {
		return 0
	}
	return int(math.Ceil(km * MinutesPerKm))
}

type Point struct {
	Lat float64
	Lon float64
}

// Distance is the great-circle distance in kilometres between two coordinates.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

func DistanceBetween(a, b Point) float64 {
	return Distance(a.Lat, a.Lon, b.Lat, b.Lon)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
