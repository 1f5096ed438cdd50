package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	recorddomain "github.com/smallbiznis/sparkload/internal/record/domain"
	"github.com/smallbiznis/sparkload/internal/runlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClassifyBatchReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: ReasonDeadlineExceeded},
		{name: "canceled", err: fmt.Errorf("load: %w", context.Canceled), want: ReasonCanceled},
		{name: "malformed", err: fmt.Errorf("a.json: %w", recorddomain.ErrMalformedRecord), want: ReasonMalformedRecord},
		{name: "missing_field", err: recorddomain.ErrMissingField, want: ReasonMissingField},
		{name: "invalid_value", err: recorddomain.ErrInvalidValue, want: ReasonInvalidValue},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: ReasonSerializationFailure},
		{name: "unique", err: gorm.ErrDuplicatedKey, want: ReasonUniqueViolation},
		{name: "lock", err: &pgconn.PgError{Code: "55P03"}, want: ReasonLocked},
		{name: "run_lock", err: fmt.Errorf("%w: sparkload:lock:song:data", runlock.ErrLocked), want: ReasonLocked},
		{name: "other_pg", err: &pgconn.PgError{Code: "42P01"}, want: ReasonDB},
		{name: "unknown", err: errors.New("boom"), want: ReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyBatchReason(tc.err))
		})
	}
}

func TestObserveBatch(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := New(registry, Config{ServiceName: "sparkload", Environment: "test"})
	require.NoError(t, err)

	finished := time.Date(2018, 11, 1, 0, 0, 0, 0, time.UTC)
	m.ObserveBatch("song", 3, time.Second, nil, finished)
	m.ObserveBatch("log", 0, time.Second, recorddomain.ErrMalformedRecord, finished)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.files.WithLabelValues("song")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batchRuns.WithLabelValues("song", "committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batchErrors.WithLabelValues("log", ReasonMalformedRecord)))
	assert.Equal(t, float64(finished.Unix()), testutil.ToFloat64(m.lastSuccess.WithLabelValues("song")))
}

func TestAddRowsAndSongplays(t *testing.T) {
	m, err := New(prometheus.NewRegistry(), Config{})
	require.NoError(t, err)

	m.AddRows("songs", 2)
	m.AddRows("songs", 0)
	m.AddSongplays(1, 4)
	m.AddRecords("log", 5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rowsLoaded.WithLabelValues("songs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.songplays.WithLabelValues("matched")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.songplays.WithLabelValues("unmatched")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.records.WithLabelValues("log")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *ETLMetrics
	assert.NotPanics(t, func() {
		m.ObserveBatch("song", 1, time.Second, nil, time.Now())
		m.AddRows("songs", 1)
		m.AddSongplays(1, 1)
	})
}

func TestNewRejectsDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := New(registry, Config{})
	require.NoError(t, err)
	_, err = New(registry, Config{})
	assert.Error(t, err)
}
