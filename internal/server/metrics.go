package server

import (
	"sync"
)

// Metrics holds in-process counters for the API.
type Metrics struct {
	mu sync.RWMutex

	requestsTotal    int64
	requestErrors4xx int64
	requestErrors5xx int64

	registrationsTotal int64
	loginSuccessTotal  int64
	loginFailuresTotal int64

	uploadsTotal       int64
	uploadBytesTotal   int64
	downloadsTotal     int64
	downloadBytesTotal int64
	sharesTotal        int64
	deletesTotal       int64
}

// RecordRequest records an HTTP request by final status.
func (m *Metrics) RecordRequest(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestsTotal++
	if statusCode >= 500 {
		m.requestErrors5xx++
	} else if statusCode >= 400 {
		m.requestErrors4xx++
	}
}

func (m *Metrics) RecordRegistration() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registrationsTotal++
}

func (m *Metrics) RecordLoginAttempt(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.loginSuccessTotal++
	} else {
		m.loginFailuresTotal++
	}
}

func (m *Metrics) RecordUpload(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadsTotal++
	m.uploadBytesTotal += bytes
}

func (m *Metrics) RecordDownload(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadsTotal++
	m.downloadBytesTotal += bytes
}

func (m *Metrics) RecordShare() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sharesTotal++
}

func (m *Metrics) RecordDelete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletesTotal++
}

// Snapshot returns a consistent copy of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		RequestsTotal:      m.requestsTotal,
		RequestErrors4xx:   m.requestErrors4xx,
		RequestErrors5xx:   m.requestErrors5xx,
		RegistrationsTotal: m.registrationsTotal,
		LoginSuccessTotal:  m.loginSuccessTotal,
		LoginFailuresTotal: m.loginFailuresTotal,
		UploadsTotal:       m.uploadsTotal,
		UploadBytesTotal:   m.uploadBytesTotal,
		DownloadsTotal:     m.downloadsTotal,
		DownloadBytesTotal: m.downloadBytesTotal,
		SharesTotal:        m.sharesTotal,
		DeletesTotal:       m.deletesTotal,
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	RequestsTotal      int64 `json:"requests_total"`
	RequestErrors4xx   int64 `json:"request_errors_4xx"`
	RequestErrors5xx   int64 `json:"request_errors_5xx"`
	RegistrationsTotal int64 `json:"registrations_total"`
	LoginSuccessTotal  int64 `json:"login_success_total"`
	LoginFailuresTotal int64 `json:"login_failures_total"`
	UploadsTotal       int64 `json:"uploads_total"`
	UploadBytesTotal   int64 `json:"upload_bytes_total"`
	DownloadsTotal     int64 `json:"downloads_total"`
	DownloadBytesTotal int64 `json:"download_bytes_total"`
	SharesTotal        int64 `json:"shares_total"`
	DeletesTotal       int64 `json:"deletes_total"`
}
