// prometheus.go - /metrics in the Prometheus text exposition format
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

type promMetric struct {
	name  string
	help  string
	kind  string
	value string
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap := s.metrics.Snapshot()

	counter := func(name, help string, v int64) promMetric {
		return promMetric{name: name, help: help, kind: "counter", value: fmt.Sprintf("%d", v)}
	}

	metrics := []promMetric{
		{
			name:  "sharebox_info",
			help:  "Build information",
			kind:  "gauge",
			value: fmt.Sprintf("{version=\"%s\"} 1", prometheusLabel(s.cfg.Version)),
		},
		counter("sharebox_requests_total", "Total number of HTTP requests", snap.RequestsTotal),
		counter("sharebox_request_errors_4xx_total", "HTTP responses with a 4xx status", snap.RequestErrors4xx),
		counter("sharebox_request_errors_5xx_total", "HTTP responses with a 5xx status", snap.RequestErrors5xx),
		counter("sharebox_registrations_total", "Users registered", snap.RegistrationsTotal),
		counter("sharebox_login_success_total", "Successful logins", snap.LoginSuccessTotal),
		counter("sharebox_login_failures_total", "Failed logins", snap.LoginFailuresTotal),
		counter("sharebox_uploads_total", "Files uploaded", snap.UploadsTotal),
		counter("sharebox_upload_bytes_total", "Bytes of file content uploaded", snap.UploadBytesTotal),
		counter("sharebox_downloads_total", "Files downloaded", snap.DownloadsTotal),
		counter("sharebox_download_bytes_total", "Bytes of file content downloaded", snap.DownloadBytesTotal),
		counter("sharebox_shares_total", "Files shared", snap.SharesTotal),
		counter("sharebox_deletes_total", "Files deleted", snap.DeletesTotal),
		{
			name:  "sharebox_uptime_seconds",
			help:  "Seconds since the server started",
			kind:  "gauge",
			value: fmt.Sprintf("%.0f", time.Since(s.started).Seconds()),
		},
	}

	var out strings.Builder
	for _, m := range metrics {
		fmt.Fprintf(&out, "# HELP %s %s\n", m.name, m.help)
		fmt.Fprintf(&out, "# TYPE %s %s\n", m.name, m.kind)
		if strings.HasPrefix(m.value, "{") {
			fmt.Fprintf(&out, "%s%s\n", m.name, m.value)
		} else {
			fmt.Fprintf(&out, "%s %s\n", m.name, m.value)
		}
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out.String()))
}

// prometheusLabel escapes a label value.
func prometheusLabel(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	return strings.ReplaceAll(value, "\n", `\n`)
}
