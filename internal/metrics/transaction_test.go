// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, gauge.Write(metric))
	return metric.GetGauge().GetValue()
}

func getHistogramCount(t *testing.T, hist prometheus.Histogram) uint64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, hist.Write(metric))
	return metric.GetHistogram().GetSampleCount()
}

func TestRecordStartedLabelsResult(t *testing.T) {
	okBefore := testutil.ToFloat64(TransactionsStartedTotal.WithLabelValues("resolve", "ok"))
	errBefore := testutil.ToFloat64(TransactionsStartedTotal.WithLabelValues("resolve", "error"))

	RecordStarted("resolve", nil)
	RecordStarted("resolve", errors.New("boom"))
	RecordStarted("resolve", errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(TransactionsStartedTotal.WithLabelValues("resolve", "ok")))
	assert.Equal(t, errBefore+2, testutil.ToFloat64(TransactionsStartedTotal.WithLabelValues("resolve", "error")))
}

func TestIncBusDropReasonDefaultsEmptyReason(t *testing.T) {
	before := testutil.ToFloat64(BusDroppedTotal.WithLabelValues("unknown"))
	IncBusDropReason("")
	assert.Equal(t, before+1, testutil.ToFloat64(BusDroppedTotal.WithLabelValues("unknown")))
}

func TestActiveTransactionsGauge(t *testing.T) {
	before := getGaugeValue(t, ActiveTransactions)
	ActiveTransactions.Inc()
	ActiveTransactions.Inc()
	ActiveTransactions.Dec()
	assert.Equal(t, before+1, getGaugeValue(t, ActiveTransactions))
	ActiveTransactions.Dec()
}

func TestRecordJournalWrite(t *testing.T) {
	count := getHistogramCount(t, JournalWriteDuration)
	failed := testutil.ToFloat64(JournalWritesTotal.WithLabelValues("error"))

	RecordJournalWrite(time.Now(), errors.New("locked"))

	assert.Equal(t, count+1, getHistogramCount(t, JournalWriteDuration))
	assert.Equal(t, failed+1, testutil.ToFloat64(JournalWritesTotal.WithLabelValues("error")))
}

func TestPromhttpExposure(t *testing.T) {
	RecordEvent("Finished")
	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	n, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "pkclient_events_total")
	require.NoError(t, err)
	assert.Positive(t, n)
}
