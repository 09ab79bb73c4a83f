package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating a manager with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("test_prefix"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(false),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test_namespace")
				So(manager.subsystem, ShouldEqual, "test_subsystem")
				So(manager.metricPrefix, ShouldEqual, "test_prefix")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.enabled, ShouldBeFalse)
				So(manager.constLabels["env"], ShouldEqual, "test")
			})

			Convey("Then metric names should carry the prefix", func() {
				manager.resultsRecorded.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_test_prefix_results_recorded_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When passing empty values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then the defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "winstate")
				So(manager.subsystem, ShouldEqual, "leaderboard")
				So(manager.histogramBuckets, ShouldNotBeEmpty)
			})
		})
	})
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration should panic", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})

		Convey("When using separate registries", func() {
			Convey("Then both managers should be created", func() {
				So(NewManager(WithPrometheusRegistry(prometheus.NewRegistry())), ShouldNotBeNil)
				So(NewManager(WithPrometheusRegistry(prometheus.NewRegistry())), ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording leaderboard metrics", func() {
			before := testutil.ToFloat64(globalManager.resultsRecorded)
			RecordResultRecorded()
			RecordResultRecorded()
			RecordResultDuplicate()
			RecordResultRejected()
			RecordQueryServed()
			RecordQueryNotFound()

			Convey("Then counters should advance", func() {
				So(testutil.ToFloat64(globalManager.resultsRecorded), ShouldEqual, before+2)
				So(testutil.ToFloat64(globalManager.resultsDuplicate), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.resultsRejected), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.queriesServed), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.queriesNotFound), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateResultsTotal(42)
			UpdateGamesTotal(3)
			UpdateDedupeSize(7)
			UpdateSystemMemoryUsage(1024)
			UpdateSystemGoroutineCount(12)

			Convey("Then gauges should hold the latest value", func() {
				So(testutil.ToFloat64(globalManager.resultsTotal), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.gamesTotal), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.dedupeSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.systemMemoryUsage), ShouldEqual, 1024)
				So(testutil.ToFloat64(globalManager.systemGoroutineCount), ShouldEqual, 12)
			})
		})

		Convey("When recording labelled metrics", func() {
			RecordHTTPRequest("/api/win_states", "GET", "200")
			RecordErrorByComponent("store", "timeout")
			RecordErrorByType("timeout", "error")
			RecordErrorByEndpoint("/api/win_state", "POST", "invalid_input")

			Convey("Then the labelled series should exist", func() {
				So(testutil.ToFloat64(globalManager.httpRequests.WithLabelValues("/api/win_states", "GET", "200")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.errorRateByComponent.WithLabelValues("store", "timeout")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.errorRateByType.WithLabelValues("timeout", "error")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.errorRateByEndpoint.WithLabelValues("/api/win_state", "POST", "invalid_input")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When observing histograms", func() {
			Convey("Then it should not panic", func() {
				So(func() {
					RecordStoreWriteLatency("memory", 0.2)
					RecordStoreQueryLatency("sqlite", 1.5)
					RecordHTTPRequestDuration("/api/win_states", "GET", "200", 3)
					RecordErrorLatency("store", "timeout", 5000)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
			})
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given a disabled global manager", t, func() {
		saved := globalManager
		globalManager = NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))
		Reset(func() { globalManager = saved })

		Convey("When recording metrics", func() {
			RecordResultRecorded()
			UpdateResultsTotal(9)

			Convey("Then nothing should be recorded", func() {
				So(testutil.ToFloat64(globalManager.resultsRecorded), ShouldEqual, 0)
				So(testutil.ToFloat64(globalManager.resultsTotal), ShouldEqual, 0)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the package registry", t, func() {
		Convey("When gathering", func() {
			RecordQueryServed()
			families, err := GetRegistry().Gather()

			Convey("Then winstate metrics should be present", func() {
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
			})
		})
	})
}
