package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager()

			Convey("Then it should use the dashboard namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "poirisk")
				So(manager.subsystem, ShouldEqual, "dashboard")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithRowBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test_namespace")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.rowBuckets, ShouldResemble, []float64{1, 10})
			})

			Convey("And metrics should land on the given registry", func() {
				manager.categoryCount.Set(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
			})
		})

		Convey("When empty options are given", func() {
			manager := NewManager(WithNamespace(""), WithHistogramBuckets(nil), WithPrometheusRegistry(nil))

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "poirisk")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.registry, ShouldNotBeNil)
			})
		})
	})
}

func TestDatasetMetrics(t *testing.T) {
	Convey("Given dataset metrics", t, func() {
		Convey("When recording row counts", func() {
			UpdateDatasetRows("risk", 70)
			UpdateDatasetRows("poi", 10)

			Convey("Then gauges should hold the latest values", func() {
				So(testutil.ToFloat64(globalManager.datasetRows.WithLabelValues("risk")), ShouldEqual, 70)
				So(testutil.ToFloat64(globalManager.datasetRows.WithLabelValues("poi")), ShouldEqual, 10)
			})
		})

		Convey("When recording a weekday assembly", func() {
			UpdateWeekdayRecords("Thur", 8, 2)

			Convey("Then kept and dropped should be split", func() {
				So(testutil.ToFloat64(globalManager.weekdayRecords.WithLabelValues("Thur")), ShouldEqual, 8)
				So(testutil.ToFloat64(globalManager.weekdayDropped.WithLabelValues("Thur")), ShouldEqual, 2)
			})
		})

		Convey("When recording categories", func() {
			UpdateCategoryCount(12, 1)
			So(testutil.ToFloat64(globalManager.categoryCount), ShouldEqual, 12)
			So(testutil.ToFloat64(globalManager.staleCategories), ShouldEqual, 1)
		})

		Convey("When recording the load duration", func() {
			RecordDatasetLoadDuration(42)
			So(testutil.ToFloat64(globalManager.datasetLoadDuration), ShouldEqual, 42)
		})
	})
}

func TestViewMetrics(t *testing.T) {
	Convey("Given view metrics", t, func() {
		Convey("When an empty render is recorded", func() {
			before := testutil.ToFloat64(globalManager.viewEmpty.WithLabelValues("map"))
			RecordViewRender("map", 0, 1.5)

			Convey("Then the empty counter should grow", func() {
				So(testutil.ToFloat64(globalManager.viewEmpty.WithLabelValues("map")), ShouldEqual, before+1)
			})
		})

		Convey("When a non-empty render is recorded", func() {
			before := testutil.ToFloat64(globalManager.viewEmpty.WithLabelValues("histogram"))
			renders := testutil.ToFloat64(globalManager.viewRenders.WithLabelValues("histogram"))
			RecordViewRender("histogram", 5, 0.2)

			Convey("Then only the render counter should grow", func() {
				So(testutil.ToFloat64(globalManager.viewRenders.WithLabelValues("histogram")), ShouldEqual, renders+1)
				So(testutil.ToFloat64(globalManager.viewEmpty.WithLabelValues("histogram")), ShouldEqual, before)
			})
		})

		Convey("When cache lookups are recorded", func() {
			hits := testutil.ToFloat64(globalManager.viewCacheHits.WithLabelValues("map"))
			misses := testutil.ToFloat64(globalManager.viewCacheMisses.WithLabelValues("map"))
			RecordViewCache("map", true)
			RecordViewCache("map", false)
			RecordViewCache("map", false)

			So(testutil.ToFloat64(globalManager.viewCacheHits.WithLabelValues("map")), ShouldEqual, hits+1)
			So(testutil.ToFloat64(globalManager.viewCacheMisses.WithLabelValues("map")), ShouldEqual, misses+2)
		})

		Convey("When chart errors are recorded", func() {
			So(func() {
				RecordChartRenderError("histogram", "png")
			}, ShouldNotPanic)
		})
	})
}

func TestHTTPAndSystemMetrics(t *testing.T) {
	Convey("Given HTTP and system metrics", t, func() {
		Convey("Then recording should not panic", func() {
			So(func() {
				RecordHTTPRequest("/api/histogram", "GET", "200")
				RecordHTTPRequestDuration("/api/histogram", "GET", "200", 3.0)
				RecordErrorByEndpoint("/api/map", "GET", "client_error")
				RecordErrorByType("client_error", "medium")
				RecordErrorLatency("http", "client_error", 1.0)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
		})

		Convey("And the registry should expose them", func() {
			RecordHTTPRequest("/healthz", "GET", "200")
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			So(names, ShouldContain, "poirisk_dashboard_http_requests_total")
		})
	})
}

func TestWarmMetrics(t *testing.T) {
	Convey("Given warm-up metrics", t, func() {
		Convey("When the queue size and workers are set", func() {
			UpdateWarmQueueSize(14)
			UpdateWarmWorkers(3)

			Convey("Then the gauges should hold the values", func() {
				So(testutil.ToFloat64(globalManager.warmQueueSize), ShouldEqual, 14)
				So(testutil.ToFloat64(globalManager.warmWorkers), ShouldEqual, 3)
			})
		})

		Convey("When jobs and rejects are recorded", func() {
			before := testutil.ToFloat64(globalManager.warmJobs.WithLabelValues("map", "ok"))
			RecordWarmJob("map", "ok")
			RecordWarmQueueReject("full")

			Convey("Then the counters should grow", func() {
				So(testutil.ToFloat64(globalManager.warmJobs.WithLabelValues("map", "ok")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.warmQueueRejects.WithLabelValues("full")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})
	})
}
