package api

import (
	"github.com/jaagratha/jaagratha-backend/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(records []models.AggregatedRecord) FeatureCollection {
	features := make([]Feature, 0, len(records))

	for _, r := range records {
		props := map[string]any{
			"id":        r.ID,
			"type":      r.Type,
			"title":     r.Title,
			"details":   r.Details,
			"severity":  string(r.Severity),
			"status":    r.Status,
			"source":    r.Source,
			"createdAt": r.CreatedAt,
		}
		if r.DistanceKm != nil {
			props["distanceKm"] = *r.DistanceKm
		}
		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{r.Location.Lng(), r.Location.Lat()},
			},
			Properties: props,
		})
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
