package newrelic

import (
	"errors"
	"os"
)

// ErrNoApp is returned when New Relic is not initialized
var ErrNoApp = errors.New("newrelic app not initialized")

// SendCustomEvent sends custom event to newrelic
func SendCustomEvent(metricName string, metric map[string]interface{}) error {
	if App == nil {
		return ErrNoApp
	}
	hostName, err := os.Hostname()
	if err != nil {
		return errors.New("Failed sending the metric. Hostname not found")
	}
	metric["host"] = hostName
	App.RecordCustomEvent(metricName, metric)
	return nil
}

// SendResponseTime records the latency of a collaborator call
func SendResponseTime(eventName, callID string, ms int64) error {
	return SendCustomEvent(eventName, map[string]interface{}{
		"call_id":       callID,
		"response_time": ms,
	})
}
