package metrics

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestObserveAnalysis(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusinessMetrics("biasradar", reg)

	m.ObserveAnalysis(context.Background(), 2*time.Second, 6.5, nil)
	m.ObserveAnalysis(context.Background(), time.Second, 0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("error")))

	count, err := testutil.GatherAndCount(reg, "biasradar_bias_score")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestObserveComparison(t *testing.T) {
	m := NewBusinessMetrics("biasradar", prometheus.NewRegistry())

	m.ObserveComparison(context.Background(), "success")
	m.ObserveComparison(context.Background(), "success")
	m.ObserveComparison(context.Background(), "validation_error")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ComparisonsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComparisonsTotal.WithLabelValues("validation_error")))
}

func TestUpdateDBStats(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Ping())

	m := NewDatabaseMetrics("biasradar", prometheus.NewRegistry())
	m.UpdateDBStats(db)

	assert.Equal(t, float64(db.Stats().OpenConnections), testutil.ToFloat64(m.OpenConnections))
}
