package metrics

// Snapshot is the set of business gauges refreshed by the scheduled job
type Snapshot struct {
	ProjectsByStatus map[string]int64
	TasksByStatus    map[string]int64
	OverdueTasks     int64
	ActiveMembers    int64
}

// SetSnapshot replaces the business gauges with a fresh snapshot
func (m *Metrics) SetSnapshot(s Snapshot) {
	m.safeExecute("SetSnapshot", func() {
		m.ProjectsByStatus.Reset()
		for status, n := range s.ProjectsByStatus {
			m.ProjectsByStatus.WithLabelValues(status).Set(float64(n))
		}
		m.TasksByStatus.Reset()
		for status, n := range s.TasksByStatus {
			m.TasksByStatus.WithLabelValues(status).Set(float64(n))
		}
		m.OverdueTasks.Set(float64(s.OverdueTasks))
		m.ActiveMembers.Set(float64(s.ActiveMembers))
	})
}

func (m *Metrics) IncrementProjectCreated() {
	m.safeExecute("IncrementProjectCreated", func() {
		m.ProjectCreatedTotal.Inc()
	})
}

func (m *Metrics) IncrementTaskCompleted() {
	m.safeExecute("IncrementTaskCompleted", func() {
		m.TaskCompletedTotal.Inc()
	})
}

// RecordLogin counts a login attempt, result is "success", "invalid" or "disabled"
func (m *Metrics) RecordLogin(result string) {
	m.safeExecute("RecordLogin", func() {
		m.LoginAttemptsTotal.WithLabelValues(result).Inc()
	})
}

// RecordAuditFailure counts an activity log entry that could not be persisted
func (m *Metrics) RecordAuditFailure(action string) {
	m.safeExecute("RecordAuditFailure", func() {
		m.AuditFailuresTotal.WithLabelValues(action).Inc()
	})
}

func (m *Metrics) RecordReportExport(kind string) {
	m.safeExecute("RecordReportExport", func() {
		m.ReportExportsTotal.WithLabelValues(kind).Inc()
	})
}
