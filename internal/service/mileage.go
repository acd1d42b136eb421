package service

import (
	"errors"
	"sort"

	"checkin-service/internal/model"
)

// ErrNoServiceIntervals means the recommendation payload carried no
// interval schedule to select from.
var ErrNoServiceIntervals = errors.New("no service intervals available")

// SelectMileageBucket picks the interval whose mileage is the highest value
// not exceeding the vehicle's mileage. A vehicle below every interval gets
// the lowest one.
func SelectMileageBucket(intervals []model.ServiceInterval, mileage int) (*model.ServiceInterval, error) {
	if len(intervals) == 0 {
		return nil, ErrNoServiceIntervals
	}

	sorted := make([]model.ServiceInterval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Mileage < sorted[j].Mileage
	})

	selected := sorted[0]
	for _, interval := range sorted {
		if interval.Mileage > mileage {
			break
		}
		selected = interval
	}

	return &selected, nil
}
