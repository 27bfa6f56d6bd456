package http

import (
	"github.com/GriffinCanCode/filedesk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/filedesk/internal/shared/types"
)

// HandlerMetrics wraps handlers with metrics tracking
type HandlerMetrics struct {
	metrics *monitoring.Metrics
}

// NewHandlerMetrics creates a metrics wrapper. A nil collector records
// nothing.
func NewHandlerMetrics(metrics *monitoring.Metrics) *HandlerMetrics {
	return &HandlerMetrics{metrics: metrics}
}

// Track starts timing operation. The returned func records the outcome,
// labelled "success" or with the error kind.
func (hm *HandlerMetrics) Track(operation string) func(err error) {
	if hm == nil || hm.metrics == nil {
		return func(error) {}
	}
	timer := monitoring.NewTimer(hm.metrics, operation)
	return func(err error) {
		status := "success"
		if err != nil {
			status = string(types.KindOf(err))
		}
		timer.Stop(status)
	}
}

// Transfer records bytes moved in direction.
func (hm *HandlerMetrics) Transfer(direction string, n int64) {
	if hm == nil || hm.metrics == nil {
		return
	}
	hm.metrics.RecordTransfer(direction, n)
}

// Archive records a built archive.
func (hm *HandlerMetrics) Archive(format string, size int64) {
	if hm == nil || hm.metrics == nil {
		return
	}
	hm.metrics.RecordArchive(format, size)
}
