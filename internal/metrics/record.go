package metrics

import "time"

// RecordFeedFetch records a successful feed fetch
func RecordFeedFetch(feed, mode string, rounds, scanned int, duration time.Duration) {
	m := Get()
	m.FeedFetchDuration.WithLabelValues(feed, mode).Observe(duration.Seconds())
	m.FeedRounds.WithLabelValues(feed).Observe(float64(rounds))
	m.FeedScanned.WithLabelValues(feed).Observe(float64(scanned))
}

func RecordFeedSafeguard(feed, safeguard string) {
	Get().FeedSafeguardsTotal.WithLabelValues(feed, safeguard).Inc()
}

func RecordFeedError(feed, stage string) {
	Get().FeedErrorsTotal.WithLabelValues(feed, stage).Inc()
}

// RecordUpstreamRequest records one call to a partner platform
func RecordUpstreamRequest(service, operation string, duration time.Duration, err error) {
	m := Get()
	status := "success"
	if err != nil {
		status = "error"
	}
	m.UpstreamRequestsTotal.WithLabelValues(service, operation, status).Inc()
	m.UpstreamRequestDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func SetCircuitBreakerState(name string, state int) {
	Get().CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordVideoEvent counts plays, likes, favorites, shares and reports
func RecordVideoEvent(event string) {
	Get().VideoEventsTotal.WithLabelValues(event).Inc()
}

func RecordReportAlert(err error) {
	status := "queued"
	if err != nil {
		status = "error"
	}
	Get().ReportAlertsTotal.WithLabelValues(status).Inc()
}

func RecordDatabaseQuery(queryType, table string, duration time.Duration, err error) {
	m := Get()
	status := "success"
	if err != nil {
		status = "error"
	}
	m.DatabaseQueryDuration.WithLabelValues(queryType, table).Observe(duration.Seconds())
	m.DatabaseQueriesTotal.WithLabelValues(queryType, table, status).Inc()
}

func RecordRedisOperation(operation string, duration time.Duration, err error) {
	m := Get()
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RedisOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.RedisOperationsTotal.WithLabelValues(operation, status).Inc()
}

func RecordError(errorType, endpoint string) {
	Get().ErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}
