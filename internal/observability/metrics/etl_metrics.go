package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	recorddomain "github.com/smallbiznis/sparkload/internal/record/domain"
	"github.com/smallbiznis/sparkload/internal/runlock"
	"gorm.io/gorm"
)

// Batch failure reasons. Kept low-cardinality for alerting.
const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonCanceled             = "canceled"
	ReasonMalformedRecord      = "malformed_record"
	ReasonMissingField         = "missing_field"
	ReasonInvalidValue         = "invalid_value"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonLocked               = "locked"
	ReasonDB                   = "db"
	ReasonUnknown              = "unknown"
)

// Config labels every series produced by ETLMetrics.
type Config struct {
	ServiceName string
	Environment string
}

// ETLMetrics captures batch health for song and log loads.
type ETLMetrics struct {
	registry *prometheus.Registry

	batchRuns     *prometheus.CounterVec
	batchErrors   *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	files         *prometheus.CounterVec
	records       *prometheus.CounterVec
	rowsLoaded    *prometheus.CounterVec
	songplays     *prometheus.CounterVec
	lastSuccess   *prometheus.GaugeVec
}

// NewRegistry returns the registry that ETL metrics are registered on and pushed from.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// New registers the ETL collectors on registry.
func New(registry *prometheus.Registry, cfg Config) (*ETLMetrics, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "sparkload"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &ETLMetrics{
		registry: registry,
		batchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "sparkload_batch_runs_total",
			Help:        "Batch runs by file family and outcome.",
			ConstLabels: constLabels,
		}, []string{"family", "outcome"}),
		batchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "sparkload_batch_errors_total",
			Help:        "Batch failures by file family and low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"family", "reason"}),
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "sparkload_batch_duration_seconds",
			Help:        "Wall time of a batch from discovery to commit or rollback.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800},
			ConstLabels: constLabels,
		}, []string{"family"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "sparkload_files_processed_total",
			Help:        "Source files processed in committed batches.",
			ConstLabels: constLabels,
		}, []string{"family"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "sparkload_records_read_total",
			Help:        "Records decoded from source files.",
			ConstLabels: constLabels,
		}, []string{"family"}),
		rowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "sparkload_rows_loaded_total",
			Help:        "Rows written per warehouse table.",
			ConstLabels: constLabels,
		}, []string{"table"}),
		songplays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "sparkload_songplays_resolved_total",
			Help:        "Songplays by whether a song and artist were matched.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "sparkload_last_success_timestamp_seconds",
			Help:        "Unix time of the last committed batch per family.",
			ConstLabels: constLabels,
		}, []string{"family"}),
	}

	collectors := []prometheus.Collector{
		m.batchRuns, m.batchErrors, m.batchDuration, m.files,
		m.records, m.rowsLoaded, m.songplays, m.lastSuccess,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry returns the registry the collectors live on.
func (m *ETLMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveBatch records the outcome of one batch.
func (m *ETLMetrics) ObserveBatch(family string, files int, duration time.Duration, err error, finishedAt time.Time) {
	if m == nil {
		return
	}
	family = normalizeLabel(family)
	m.batchDuration.WithLabelValues(family).Observe(duration.Seconds())
	if err != nil {
		m.batchRuns.WithLabelValues(family, "failed").Inc()
		m.batchErrors.WithLabelValues(family, ClassifyBatchReason(err)).Inc()
		return
	}
	m.batchRuns.WithLabelValues(family, "committed").Inc()
	if files > 0 {
		m.files.WithLabelValues(family).Add(float64(files))
	}
	m.lastSuccess.WithLabelValues(family).Set(float64(finishedAt.Unix()))
}

// AddRecords counts decoded records for family.
func (m *ETLMetrics) AddRecords(family string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.records.WithLabelValues(normalizeLabel(family)).Add(float64(count))
}

// AddRows counts rows written to table.
func (m *ETLMetrics) AddRows(table string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.rowsLoaded.WithLabelValues(normalizeLabel(table)).Add(float64(count))
}

// AddSongplays counts matched and unmatched songplays.
func (m *ETLMetrics) AddSongplays(matched, unmatched int64) {
	if m == nil {
		return
	}
	if matched > 0 {
		m.songplays.WithLabelValues("matched").Add(float64(matched))
	}
	if unmatched > 0 {
		m.songplays.WithLabelValues("unmatched").Add(float64(unmatched))
	}
}

// ClassifyBatchReason maps a batch error to a low-cardinality reason label.
func ClassifyBatchReason(err error) string {
	switch {
	case err == nil:
		return ReasonUnknown
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, recorddomain.ErrMalformedRecord):
		return ReasonMalformedRecord
	case errors.Is(err, recorddomain.ErrMissingField):
		return ReasonMissingField
	case errors.Is(err, recorddomain.ErrInvalidValue):
		return ReasonInvalidValue
	case hasPGCode(err, "40001"):
		return ReasonSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505"):
		return ReasonUniqueViolation
	case errors.Is(err, runlock.ErrLocked) || hasPGCode(err, "55P03"):
		return ReasonLocked
	case isDBError(err):
		return ReasonDB
	default:
		return ReasonUnknown
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) ||
		errors.Is(err, gorm.ErrInvalidValue) ||
		errors.Is(err, gorm.ErrNotImplemented) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
