package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/poirisk/internal/app"
	"github.com/okian/poirisk/internal/domain/interaction"
	"github.com/okian/poirisk/internal/domain/model"
	"github.com/okian/poirisk/internal/domain/types"
	"github.com/okian/poirisk/internal/domain/view"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service driven by a selector controller", t, func() {
		svc := newTestService(t)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		ctrl := interaction.NewController(svc.DefaultSelection())

		Convey("When the histogram weekday changes", func() {
			target, sel, err := ctrl.Apply(interaction.Command{
				View:     interaction.ViewHistogram,
				Selector: interaction.SelectWeekday,
				Value:    "Tue",
			})
			So(err, ShouldBeNil)

			out, err := svc.Render(ctx, target, sel)
			So(err, ShouldBeNil)

			Convey("Then only the histogram is recomputed with the new weekday", func() {
				So(target, ShouldEqual, interaction.ViewHistogram)
				h := out.(view.Histogram)
				So(h.Selection.Weekday, ShouldEqual, types.Tuesday)
				So(h.Count, ShouldEqual, 2)
			})

			Convey("And the map selection is untouched", func() {
				mapSel, err := ctrl.Selection(interaction.ViewMap)
				So(err, ShouldBeNil)
				So(mapSel, ShouldResemble, svc.DefaultSelection())
			})
		})

		Convey("When the map category changes to one missing from the selector", func() {
			target, sel, err := ctrl.Apply(interaction.Command{
				View:     interaction.ViewMap,
				Selector: interaction.SelectCategory,
				Value:    "Zoos",
			})
			So(err, ShouldBeNil)
			So(target, ShouldEqual, interaction.ViewMap)

			Convey("Then Monday yields an empty map", func() {
				m, err := svc.ScatterMap(ctx, sel)
				So(err, ShouldBeNil)
				So(m.Empty(), ShouldBeTrue)
			})

			Convey("And Tuesday still finds the row", func() {
				_, sel, err := ctrl.Apply(interaction.Command{
					View:     interaction.ViewMap,
					Selector: interaction.SelectWeekday,
					Value:    "Tue",
				})
				So(err, ShouldBeNil)

				m, err := svc.ScatterMap(ctx, sel)
				So(err, ShouldBeNil)
				So(m.Count, ShouldEqual, 1)
				So(m.Markers[0].Name, ShouldEqual, "Zoo D")
			})
		})

		Convey("When every weekday and category is walked", func() {
			opts, err := svc.Options(ctx)
			So(err, ShouldBeNil)

			Convey("Then histogram and map always agree on row counts", func() {
				for _, w := range opts.Weekdays {
					for _, c := range opts.Categories {
						sel := model.Selection{Weekday: types.Weekday(w.Value), Category: c}
						h, err := svc.Histogram(ctx, sel)
						So(err, ShouldBeNil)
						m, err := svc.ScatterMap(ctx, sel)
						So(err, ShouldBeNil)
						So(h.Count, ShouldEqual, m.Count)
					}
				}
			})
		})

		Convey("When views are requested concurrently", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 64)
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					sel := model.Selection{Weekday: types.Weekdays()[i%7], Category: "Grocery"}
					if _, err := svc.Histogram(ctx, sel); err != nil {
						errs <- err
					}
					if _, err := svc.ScatterMap(ctx, sel); err != nil {
						errs <- err
					}
				}(i)
			}
			wg.Wait()
			close(errs)

			Convey("Then no request should fail", func() {
				So(len(errs), ShouldEqual, 0)
			})
		})

		Convey("When restarting the service", func() {
			svc.Stop()
			So(svc.GetStats()["started"], ShouldEqual, false)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it should serve views again", func() {
				_, err := svc.Histogram(ctx, svc.DefaultSelection())
				So(err, ShouldBeNil)
			})
		})
	})

	Convey("Given a service with caching disabled", t, func() {
		svc := newTestService(t, service.WithCacheSize(0))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("Then views are still served", func() {
			h, err := svc.Histogram(context.Background(), svc.DefaultSelection())
			So(err, ShouldBeNil)
			So(h.Count, ShouldEqual, 2)
			So(svc.GetStats(), ShouldNotContainKey, "histogramCacheLen")
		})
	})

	Convey("Given a started service with warm-up workers", t, func() {
		ctx := context.Background()

		Convey("When the caches are warmed", func() {
			svc := newTestService(t)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			n, err := svc.Warm(ctx, 3)

			Convey("Then both views of every selection should be cached", func() {
				So(err, ShouldBeNil)
				// Default plus 7 weekdays x 2 Monday categories, minus the duplicate default.
				So(n, ShouldEqual, 2*14)
				stats := svc.GetStats()
				So(stats["histogramCacheLen"], ShouldEqual, 14)
				So(stats["mapCacheLen"], ShouldEqual, 14)
				So(stats["warmedViews"], ShouldEqual, 28)
			})
		})

		Convey("When the cache is smaller than the selections", func() {
			svc := newTestService(t, service.WithCacheSize(5))
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			n, err := svc.Warm(ctx, 2)

			Convey("Then only as many selections as fit should be warmed", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 10)
				So(svc.GetStats()["histogramCacheLen"], ShouldEqual, 5)
			})
		})

		Convey("When caching is disabled", func() {
			svc := newTestService(t, service.WithCacheSize(0))
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			n, err := svc.Warm(ctx, 2)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("When the service is not started", func() {
			_, err := newTestService(t).Warm(ctx, 2)
			So(err, ShouldEqual, service.ErrNotStarted)
		})
	})
}
