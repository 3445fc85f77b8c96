package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/poirisk/internal/adapters/http/api"
	"github.com/okian/poirisk/internal/adapters/render"
	"github.com/okian/poirisk/internal/domain/interaction"
	"github.com/okian/poirisk/internal/domain/model"
	"github.com/okian/poirisk/internal/domain/types"
	"github.com/okian/poirisk/internal/domain/view"
)

// mockDependencies serves views over a fixed in-memory table.
type mockDependencies struct {
	ready     bool
	records   map[types.Weekday][]model.RiskRecord
	renderErr error
	calls     map[string]int
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		ready: true,
		records: map[types.Weekday][]model.RiskRecord{
			types.Monday: {
				{Weekday: types.Monday, RiskScore: 5, Name: "Shop A", Category: "Grocery Stores", Latitude: 34, Longitude: -118},
				{Weekday: types.Monday, RiskScore: 3, Name: "Rx B", Category: "Pharmacy", Latitude: 34.1, Longitude: -118.1},
			},
			types.Thursday: {
				{Weekday: types.Thursday, RiskScore: 7, Name: "Shop A", Category: "Grocery Stores", Latitude: 34, Longitude: -118},
			},
		},
		calls: map[string]int{},
	}
}

func (m *mockDependencies) Ready() bool { return m.ready }

func (m *mockDependencies) DefaultSelection() model.Selection {
	return interaction.DefaultSelection()
}

func (m *mockDependencies) Options(context.Context) (model.DashboardOptions, error) {
	return model.DashboardOptions{
		Title:      "Risk Scores of POIs in Los Angeles",
		Weekdays:   types.WeekdayOptions(),
		Categories: []string{"Grocery Stores", "Pharmacy"},
	}, nil
}

func (m *mockDependencies) Histogram(_ context.Context, sel model.Selection) (view.Histogram, error) {
	m.calls["histogram"]++
	return view.BuildHistogram(m.records[sel.Weekday], sel), nil
}

func (m *mockDependencies) ScatterMap(_ context.Context, sel model.Selection) (view.ScatterMap, error) {
	m.calls["map"]++
	return view.BuildScatterMap(m.records[sel.Weekday], sel, view.DefaultMapSettings()), nil
}

func (m *mockDependencies) Image(ctx context.Context, w io.Writer, v interaction.ViewID, sel model.Selection, f render.Format) error {
	if m.renderErr != nil {
		return m.renderErr
	}
	r := render.New(render.WithSize(320, 240))
	if v == interaction.ViewHistogram {
		h, _ := m.Histogram(ctx, sel)
		return r.Histogram(w, h, f)
	}
	sm, _ := m.ScatterMap(ctx, sel)
	return r.ScatterMap(w, sm, f)
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies) http.Handler {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, nil)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return api.RequestIDMiddleware(mux)
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder, v any) {
	So(json.Unmarshal(w.Body.Bytes(), v), ShouldBeNil)
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := newMockDependencies()
		h := newMux(deps)

		Convey("Then health endpoint should expose metrics", func() {
			w := serve(h, "GET", "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("And readiness should follow the service", func() {
			So(serve(h, "GET", "/readyz", "").Code, ShouldEqual, http.StatusOK)
			deps.ready = false
			So(serve(h, "GET", "/readyz", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("And stats endpoint should be accessible", func() {
			w := serve(h, "GET", "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			decode(w, &stats)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("And unknown paths should not be found", func() {
			So(serve(h, "GET", "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And every response should carry a request id", func() {
			w := serve(h, "GET", "/stats", "")
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
		})

		Convey("And a caller's request id should be propagated", func() {
			req := httptest.NewRequest("GET", "/stats", nil)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
		})

		Convey("And a nil mux should panic", func() {
			server := api.NewServer(deps, &mockStatsProvider{}, nil)
			So(func() { server.Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}

func TestOptionsHandler(t *testing.T) {
	Convey("Given the options endpoint", t, func() {
		deps := newMockDependencies()
		h := newMux(deps)

		Convey("When requesting options", func() {
			w := serve(h, "GET", "/api/options", "")

			Convey("Then weekdays and categories should be listed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var opts model.DashboardOptions
				decode(w, &opts)
				So(opts.Weekdays, ShouldHaveLength, 7)
				So(opts.Weekdays[3].Value, ShouldEqual, "Thur")
				So(opts.Categories, ShouldResemble, []string{"Grocery Stores", "Pharmacy"})
			})
		})

		Convey("When the service is still loading", func() {
			deps.ready = false
			w := serve(h, "GET", "/api/options", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When using the wrong method", func() {
			w := serve(h, "POST", "/api/options", "{}")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, http.MethodGet)
		})
	})
}

func TestViewHandler(t *testing.T) {
	Convey("Given the view endpoints", t, func() {
		deps := newMockDependencies()
		h := newMux(deps)

		Convey("When requesting the histogram without parameters", func() {
			w := serve(h, "GET", "/api/histogram", "")

			Convey("Then the default selection should be used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out view.Histogram
				decode(w, &out)
				So(out.Selection, ShouldResemble, model.Selection{Weekday: types.Monday, Category: "Grocery Stores"})
				So(out.Count, ShouldEqual, 1)
			})
		})

		Convey("When Thursday is requested by its full name", func() {
			w := serve(h, "GET", "/api/map?weekday=Thursday&category=Grocery", "")

			Convey("Then the Thur table should be used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out view.ScatterMap
				decode(w, &out)
				So(out.Selection.Weekday, ShouldEqual, types.Thursday)
				So(out.Count, ShouldEqual, 1)
				So(out.Center, ShouldResemble, view.Center{Lat: 34, Lon: -118})
			})
		})

		Convey("When the category is explicitly empty", func() {
			w := serve(h, "GET", "/api/histogram?category=", "")
			var out view.Histogram
			decode(w, &out)
			So(out.Count, ShouldEqual, 2)
		})

		Convey("When nothing matches", func() {
			w := serve(h, "GET", "/api/map?weekday=Sun", "")

			Convey("Then an empty map should still be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out view.ScatterMap
				decode(w, &out)
				So(out.Count, ShouldEqual, 0)
				So(out.Zoom, ShouldEqual, 8)
			})
		})

		Convey("When the weekday is unknown", func() {
			w := serve(h, "GET", "/api/histogram?weekday=monday", "")

			Convey("Then a 400 should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var out map[string]string
				decode(w, &out)
				So(out["code"], ShouldEqual, "unknown_weekday")
			})
		})

		Convey("When requesting the histogram image", func() {
			w := serve(h, "GET", "/api/histogram.png", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "image/png")
			So(w.Body.Len(), ShouldBeGreaterThan, 0)
		})

		Convey("When requesting the map as SVG", func() {
			w := serve(h, "GET", "/api/map.png?format=svg", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "image/svg+xml")
			So(w.Body.String(), ShouldContainSubstring, "<svg")
		})

		Convey("When the image format is unknown", func() {
			w := serve(h, "GET", "/api/map.png?format=gif", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When rendering fails", func() {
			deps.renderErr = errors.New("boom")
			w := serve(h, "GET", "/api/histogram.png", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
		})

		Convey("When using the wrong method", func() {
			So(serve(h, "DELETE", "/api/map", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestDispatchHandler(t *testing.T) {
	Convey("Given the dispatch endpoint", t, func() {
		deps := newMockDependencies()
		h := newMux(deps)

		Convey("When the histogram selection changes", func() {
			w := serve(h, "POST", "/api/dispatch", `{"view":"histogram","weekday":"Thur","category":"Grocery Stores"}`)

			Convey("Then only the histogram should be recomputed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out map[string]json.RawMessage
				decode(w, &out)
				So(string(out["view"]), ShouldEqual, `"histogram"`)
				So(out, ShouldContainKey, "histogram")
				So(out, ShouldNotContainKey, "map")
				So(deps.calls["histogram"], ShouldEqual, 1)
				So(deps.calls["map"], ShouldEqual, 0)
			})
		})

		Convey("When the map selection omits the weekday", func() {
			w := serve(h, "POST", "/api/dispatch", `{"view":"map","category":"Pharmacy"}`)

			Convey("Then the default weekday should be used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out struct {
					Map view.ScatterMap `json:"map"`
				}
				decode(w, &out)
				So(out.Map.Selection.Weekday, ShouldEqual, types.Monday)
				So(out.Map.Count, ShouldEqual, 1)
				So(deps.calls["histogram"], ShouldEqual, 0)
			})
		})

		Convey("When the view is unknown", func() {
			w := serve(h, "POST", "/api/dispatch", `{"view":"table"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			var out map[string]string
			decode(w, &out)
			So(out["code"], ShouldEqual, "unknown_view")
		})

		Convey("When the weekday is unknown", func() {
			w := serve(h, "POST", "/api/dispatch", `{"view":"map","weekday":"Funday"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the body is not JSON", func() {
			w := serve(h, "POST", "/api/dispatch", `not json`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the body has unknown fields", func() {
			w := serve(h, "POST", "/api/dispatch", `{"view":"map","zoom":3}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When using GET", func() {
			w := serve(h, "GET", "/api/dispatch", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, http.MethodPost)
		})
	})
}
