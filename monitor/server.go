// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package monitor provides an embedded HTTP server exposing pprof,
// expvar, a dynamic /debug/loglevel endpoint, and the
// prometheus.Collector(s) registered with it, so a run of allocsim can
// be inspected live instead of only after it finishes.
package monitor

import (
	_ "expvar" // Go documentation recommended usage
	"fmt"
	"net/http"
	_ "net/http/pprof" // Go documentation recommended usage

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aristanetworks/glog"
)

// Server represents a monitoring server
type Server interface {
	Run()
}

// server contains information for the monitoring server
type server struct {
	// Server name e.g. host[:port]
	serverName string
	metricsURL string
}

// NewMonitorServer creates a new server struct. Collectors registered
// with prometheus.MustRegister before Run is called are served at
// metricsURL; pass "" to use the default "/metrics".
func NewMonitorServer(serverName, metricsURL string, collectors ...prometheus.Collector) Server {
	if metricsURL == "" {
		metricsURL = "/metrics"
	}
	for _, c := range collectors {
		prometheus.MustRegister(c)
	}
	return &server{
		serverName: serverName,
		metricsURL: metricsURL,
	}
}

func (s *server) debugHandler(w http.ResponseWriter, r *http.Request) {
	indexTmpl := `<html>
	<head>
	<title>/debug</title>
	</head>
	<body>
	<p>/debug</p>
	<div><a href="/debug/vars">vars</a></div>
	<div><a href="/debug/pprof">pprof</a></div>
	<div><a href="%s">metrics</a></div>
	<p>POST to /debug/loglevel to change glog verbosity.</p>
	</body>
	</html>
	`
	fmt.Fprintf(w, indexTmpl, s.metricsURL)
}

// Run sets up the HTTP server and any handlers
func (s *server) Run() {
	http.HandleFunc("/debug", s.debugHandler)
	http.Handle("/debug/loglevel", newLogsetSrv())
	http.Handle(s.metricsURL, promhttp.Handler())

	if err := http.ListenAndServe(s.serverName, nil); err != nil {
		glog.Errorf("monitor: could not start server: %s", err)
	}
}
