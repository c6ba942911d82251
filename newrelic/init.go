package newrelic

import (
	"github.com/newrelic/go-agent/v3/newrelic"
)

// App contains the newrelic application, nil when no license is configured
var App *newrelic.Application

// InitNewRelicApp initializes the New Relic app. Without a license key it is
// a no-op and custom events are dropped.
func InitNewRelicApp(appName, license string) error {
	if license == "" {
		return nil
	}
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(appName),
		newrelic.ConfigLicense(license),
	)
	if err != nil {
		return err
	}
	App = app
	return nil
}
