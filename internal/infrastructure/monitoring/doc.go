/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

Metrics live on a private Prometheus registry owned by each Metrics value, so
several servers (or tests) can run in one process without colliding on
global registration.

# Features

- HTTP request metrics (latency, throughput, size)
- File operation metrics (count and duration per operation and outcome)
- Transfer volume (bytes uploaded and downloaded)
- Archive metrics (archives built per format, archive sizes)
- Go runtime and process collectors, uptime

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "move")
	// ... perform operation ...
	timer.Stop("success")
*/
package monitoring
