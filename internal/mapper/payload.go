// ABOUTME: Embedded payloads for nested collections (exercises, sets, stat maps).
// ABOUTME: Stored as JSON text in rows and as lists of maps in documents.
package mapper

import (
	"encoding/json"
	"fmt"

	"github.com/harperreed/fitsync/internal/models"
	"github.com/harperreed/fitsync/internal/remote"
)

type setPayload struct {
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
}

type exercisePayload struct {
	ExerciseID string       `json:"exerciseId"`
	Name       string       `json:"name"`
	Sets       []setPayload `json:"sets"`
}

type typeStatsPayload struct {
	Count         int   `json:"count"`
	TotalDuration int64 `json:"totalDuration"`
}

type weightPayload struct {
	Date   int64   `json:"date"`
	Weight float64 `json:"weight"`
}

type exerciseStatsPayload struct {
	BestWeight    float64         `json:"bestWeight"`
	AverageReps   float64         `json:"averageReps"`
	AverageSets   float64         `json:"averageSets"`
	Sessions      int             `json:"sessions"`
	WeightHistory []weightPayload `json:"weightHistory"`
}

func setsToPayload(sets []models.WorkoutSet) []setPayload {
	out := make([]setPayload, 0, len(sets))
	for _, s := range sets {
		out = append(out, setPayload{Type: string(s.Type), Weight: s.Weight, Reps: s.Reps})
	}
	return out
}

func setsFromPayload(sets []setPayload) []models.WorkoutSet {
	out := make([]models.WorkoutSet, 0, len(sets))
	for _, s := range sets {
		out = append(out, models.WorkoutSet{Type: models.ParseSetType(s.Type), Weight: s.Weight, Reps: s.Reps})
	}
	return out
}

// encodeJSON fails only for non-finite floats.
func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(data), nil
}

func decodeJSON(text string, v any) error {
	if text == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// Document forms of the nested payloads.

func setsToDoc(sets []setPayload) []any {
	out := make([]any, 0, len(sets))
	for _, s := range sets {
		out = append(out, map[string]any{"type": s.Type, "weight": s.Weight, "reps": s.Reps})
	}
	return out
}

func setsFromDoc(items []remote.Document) []setPayload {
	out := make([]setPayload, 0, len(items))
	for _, d := range items {
		out = append(out, setPayload{
			Type:   string(models.ParseSetType(d.String("type"))),
			Weight: d.Float("weight"),
			Reps:   int(d.Int64("reps")),
		})
	}
	return out
}

func exercisesToDoc(exercises []exercisePayload) []any {
	out := make([]any, 0, len(exercises))
	for _, e := range exercises {
		out = append(out, map[string]any{
			"exerciseId": e.ExerciseID,
			"name":       e.Name,
			"sets":       setsToDoc(e.Sets),
		})
	}
	return out
}

func exercisesFromDoc(items []remote.Document) []exercisePayload {
	out := make([]exercisePayload, 0, len(items))
	for _, d := range items {
		out = append(out, exercisePayload{
			ExerciseID: d.String("exerciseId"),
			Name:       d.String("name"),
			Sets:       setsFromDoc(d.List("sets")),
		})
	}
	return out
}
