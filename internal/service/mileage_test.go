package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin-service/internal/model"
)

func intervals(mileages ...int) []model.ServiceInterval {
	out := make([]model.ServiceInterval, len(mileages))
	for i, m := range mileages {
		out[i] = model.ServiceInterval{Mileage: m}
	}
	return out
}

func TestSelectMileageBucket(t *testing.T) {
	schedule := intervals(30000, 60000, 90000)

	cases := []struct {
		name    string
		mileage int
		want    int
	}{
		{"below lowest gets lowest", 12000, 30000},
		{"exact boundary", 60000, 60000},
		{"between buckets rounds down", 75000, 60000},
		{"above highest gets highest", 250000, 90000},
		{"zero mileage", 0, 30000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bucket, err := SelectMileageBucket(schedule, tc.mileage)
			require.NoError(t, err)
			assert.Equal(t, tc.want, bucket.Mileage)
		})
	}
}

func TestSelectMileageBucketUnsortedInput(t *testing.T) {
	bucket, err := SelectMileageBucket(intervals(90000, 30000, 60000), 65000)
	require.NoError(t, err)
	assert.Equal(t, 60000, bucket.Mileage)
}

func TestSelectMileageBucketEmpty(t *testing.T) {
	_, err := SelectMileageBucket(nil, 50000)
	assert.ErrorIs(t, err, ErrNoServiceIntervals)
}

func TestSelectMileageBucketDoesNotMutateInput(t *testing.T) {
	schedule := intervals(90000, 30000, 60000)

	_, err := SelectMileageBucket(schedule, 65000)
	require.NoError(t, err)

	assert.Equal(t, intervals(90000, 30000, 60000), schedule)
}
