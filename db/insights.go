package db

import (
	"database/sql"
	"math"
	"sort"
	"time"

	"github.com/rohanthewiz/serr"
)

const (
	peakHourCount     = 3
	noInsightData     = "No data"
	unspecifiedEnergy = "unspecified"
)

// Insights summarizes completed steps: how estimates compare to actual
// durations per energy level, and the hours when steps get finished most.
func (s *TaskStore) Insights() (*Insights, error) {
	efficiency, err := s.energyEfficiency()
	if err != nil {
		return nil, err
	}

	peaks, err := s.peakHours()
	if err != nil {
		return nil, err
	}

	best := noInsightData
	if len(peaks) > 0 {
		best = peaks[0]
	}

	return &Insights{
		EfficiencyLog:   efficiency,
		PeakHours:       peaks,
		BestTimeToStart: best,
	}, nil
}

func (s *TaskStore) energyEfficiency() ([]EnergyEfficiency, error) {
	rows, err := s.db.Query(`
		SELECT
			t.energy_level,
			AVG(s.actual_duration_seconds) AS avg_duration,
			AVG(s.estimated_seconds) AS avg_est,
			COUNT(s.id) AS step_count
		FROM tasks t
		JOIN steps s ON t.id = s.task_id
		WHERE s.completed = ? AND s.actual_duration_seconds IS NOT NULL
		GROUP BY t.energy_level
		ORDER BY t.energy_level
	`, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	log := []EnergyEfficiency{}
	for rows.Next() {
		var level sql.NullString
		var avgDuration, avgEst sql.NullFloat64
		var count int

		if err := rows.Scan(&level, &avgDuration, &avgEst, &count); err != nil {
			return nil, serr.Wrap(err, "failed to scan energy efficiency")
		}

		entry := EnergyEfficiency{Level: unspecifiedEnergy, Count: count}
		if level.Valid {
			entry.Level = level.String
		}
		if avgDuration.Float64 > 0 {
			entry.Efficiency = math.Round(avgEst.Float64/avgDuration.Float64*1000) / 10
		}
		log = append(log, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, serr.Wrap(err, "failed to iterate energy efficiency")
	}
	return log, nil
}

// peakHours buckets completion times by UTC hour in Go so the query stays
// the same on every driver
func (s *TaskStore) peakHours() ([]string, error) {
	rows, err := s.db.Query(
		"SELECT completed_at FROM steps WHERE completed = ? AND completed_at IS NOT NULL", true,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, serr.Wrap(err, "failed to scan completion time")
		}
		counts[at.UTC().Format("15")]++
	}
	if err := rows.Err(); err != nil {
		return nil, serr.Wrap(err, "failed to iterate completion times")
	}

	hours := make([]string, 0, len(counts))
	for h := range counts {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		if counts[hours[i]] != counts[hours[j]] {
			return counts[hours[i]] > counts[hours[j]]
		}
		return hours[i] < hours[j]
	})

	if len(hours) > peakHourCount {
		hours = hours[:peakHourCount]
	}
	return hours, nil
}
