// SPDX-License-Identifier: MIT
package transport

import (
	"voicebox/internal/log"
)

// LoggingTransport implements Transport by writing events to the
// debug log. It is the default sink when nothing else is listening.
type LoggingTransport struct{}

func NewLoggingTransport() *LoggingTransport {
	return &LoggingTransport{}
}

// Send logs the event at debug level. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	log.Debugf("progress: %+v", data)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
