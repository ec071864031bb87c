// Package telemetry exposes prometheus metrics for the tap and keeps a local
// tally of sync outcomes per configuration.
package telemetry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
)

const (
	namespace             = "tap_rest_api"
	syncMetricsFilePrefix = "sync_metrics_"
	shutdownTimeout       = 5 * time.Second
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests sent, by response status code",
	}, []string{"code"})

	RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Latency of HTTP requests",
		Buckets:   prometheus.DefBuckets,
	})

	RetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_retries_total",
		Help:      "Requests retried after a retryable failure",
	})

	RecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_emitted_total",
		Help:      "Records emitted, by stream",
	}, []string{"stream"})

	PagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_fetched_total",
		Help:      "Pages fetched, by stream",
	}, []string{"stream"})

	metricsLock sync.Mutex
)

// ObserveRequest records a completed HTTP exchange
func ObserveRequest(statusCode int, elapsed time.Duration) {
	RequestsTotal.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	RequestDuration.Observe(elapsed.Seconds())
}

// Serve exposes /metrics on addr until ctx is done
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Infof("serving metrics on %s/metrics", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %s", err)
	}
	return nil
}

type SyncMetrics struct {
	Total   int            `json:"total"`
	Success int            `json:"success"`
	Failed  int            `json:"failed"`
	Weeks   map[string]int `json:"weeks"` // Key format: "YYYY-Www" (e.g., "2023-W43")
}

// ComputeConfigHash identifies a tap configuration by its file contents
func ComputeConfigHash(configPath string) string {
	if configPath == "" {
		return ""
	}
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// TrackSyncResult updates the per configuration tally kept in the config folder
func TrackSyncResult(configHash string, success bool) *SyncMetrics {
	folder := viper.GetString(constants.ConfigFolder)
	if configHash == "" || folder == "" {
		return nil
	}

	metricsLock.Lock()
	defer metricsLock.Unlock()

	metricsPath := filepath.Join(folder, syncMetricsFilePrefix+configHash[:12]+".json")

	// best effort read
	metrics := SyncMetrics{Weeks: make(map[string]int)}
	if data, err := os.ReadFile(metricsPath); err == nil {
		_ = json.Unmarshal(data, &metrics)
		if metrics.Weeks == nil {
			metrics.Weeks = make(map[string]int)
		}
	}

	year, week := time.Now().ISOWeek()
	metrics.Total++
	if success {
		metrics.Success++
	} else {
		metrics.Failed++
	}
	metrics.Weeks[fmt.Sprintf("%d-W%02d", year, week)]++

	if data, err := json.Marshal(metrics); err == nil {
		if err := os.WriteFile(metricsPath, data, 0600); err != nil {
			logger.Warnf("failed to save sync metrics: %s", err)
		}
	}
	return &metrics
}
