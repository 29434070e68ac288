package perf

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/taskhub/taskhub/internal/jobs"
	"github.com/taskhub/taskhub/jobs"
)

type fixedSource map[uuid.UUID]int

func (s fixedSource) OverdueCounts(context.Context, time.Time) (map[uuid.UUID]int, error) {
	return s, nil
}

func TestOverdueDigestThroughput(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	source := fixedSource{}
	for i := 0; i < 500; i++ {
		source[uuid.New()] = i%7 + 1
	}
	job := jobs.NewOverdueDigestJob(source, logger, metrics)
	task, err := jobs.NewOverdueDigestTask(1)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}

	for i := 0; i < 20; i++ {
		if err := job.Handle(context.Background(), task); err != nil {
			t.Fatalf("digest run %d: %v", i, err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	success := metricValue(t, families, "taskhub_jobs_total", map[string]string{"job": jobs.TaskOverdueDigest, "status": "success"})
	if success != 20 {
		t.Fatalf("expected 20 successful runs, got %f", success)
	}

	mean := histogramMean(t, families, "taskhub_job_duration_seconds", map[string]string{"job": jobs.TaskOverdueDigest})
	if mean > 0.5 {
		t.Fatalf("digest duration above budget: %f", mean)
	}
}

func BenchmarkWelcomeMailJob(b *testing.B) {
	job := jobs.NewWelcomeMailJob(slog.New(slog.NewTextHandler(io.Discard, nil)), jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := jobs.NewWelcomeMailTask(jobs.WelcomeMailPayload{Name: "Bench", Email: "bench@example.com"})
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := job.Handle(context.Background(), task); err != nil {
			b.Fatal(err)
		}
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	present := make(map[string]string, len(metric.GetLabel()))
	for _, lp := range metric.GetLabel() {
		present[lp.GetName()] = lp.GetValue()
	}
	for key, want := range labels {
		if got, ok := present[key]; !ok || got != want {
			return false
		}
	}
	return true
}
