// Package logging builds the process-wide zap logger.
package logging

import "go.uber.org/zap"

// New returns a production logger for APP_ENV=production and a
// development logger otherwise.
func New(appEnv string) (*zap.Logger, error) {
	if appEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
