/*
 * Copyright 2024 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rulego/rulepipe/engine"
	"github.com/rulego/rulepipe/utils/json"
)

type status struct {
	Version   uint64   `json:"version"`
	Rules     []string `json:"rules"`
	Pipelines []string `json:"pipelines"`
	Errors    []string `json:"errors"`
}

// newRouter serves the Prometheus metrics of reg and the state of the active snapshot.
func newRouter(reg *prometheus.Registry, source engine.SnapshotSource) *httprouter.Router {
	router := httprouter.New()
	router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.GET("/status", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s, err := source.Acquire()
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		defer s.Release()
		st := status{
			Version:   s.Version(),
			Rules:     s.RuleNames(),
			Pipelines: s.PipelineIDs(),
			Errors:    make([]string, 0, len(s.Errors())),
		}
		for _, e := range s.Errors() {
			st.Errors = append(st.Errors, e.Error())
		}
		b, err := json.Marshal(st)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	})
	return router
}
