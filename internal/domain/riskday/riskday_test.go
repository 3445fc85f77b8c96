package riskday

import (
	"testing"

	"github.com/okian/poirisk/internal/domain/model"
	"github.com/okian/poirisk/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func poi(name, category string, lat, lon float64) model.POIRow {
	return model.POIRow{
		Name: name, Address: name + " address", Category: category,
		Latitude: lat, Longitude: lon, HasLat: true, HasLon: true,
	}
}

func risk(weekday string, score float64) model.RiskRow {
	return model.RiskRow{Weekday: weekday, RiskScore: score, HasScore: true}
}

func TestAssembleScenario(t *testing.T) {
	Convey("Given one Monday risk row and one aligned POI row", t, func() {
		a := New(
			[]model.RiskRow{risk("Mon", 5)},
			[]model.POIRow{poi("Shop A", "Grocery Stores", 34.0, -118.0)},
		)

		Convey("When assembling Monday", func() {
			recs := a.Assemble(types.Monday)

			Convey("Then exactly one joined record should be returned", func() {
				So(recs, ShouldHaveLength, 1)
				So(recs[0].RiskScore, ShouldEqual, 5)
				So(recs[0].Name, ShouldEqual, "Shop A")
				So(recs[0].Category, ShouldEqual, "Grocery Stores")
				So(recs[0].Latitude, ShouldEqual, 34.0)
				So(recs[0].Longitude, ShouldEqual, -118.0)
				So(recs[0].Weekday, ShouldEqual, types.Monday)
			})
		})

		Convey("When assembling a weekday with no rows", func() {
			recs := a.Assemble(types.Sunday)

			Convey("Then an empty collection should be returned", func() {
				So(recs, ShouldNotBeNil)
				So(recs, ShouldBeEmpty)
			})
		})
	})
}

func TestAssemblePositional(t *testing.T) {
	Convey("Given interleaved weekdays and a POI table per location", t, func() {
		rows := []model.RiskRow{
			risk("Mon", 1), risk("Tue", 10),
			risk("Mon", 2), risk("Tue", 20),
			risk("Mon", 3), risk("Tue", 30),
		}
		pois := []model.POIRow{
			poi("A", "Grocery Stores", 34.1, -118.1),
			poi("B", "Pharmacy", 34.2, -118.2),
			poi("C", "Grocery Stores", 34.3, -118.3),
		}
		a := New(rows, pois)

		Convey("When assembling Tuesday", func() {
			recs := a.Assemble(types.Tuesday)

			Convey("Then the i-th Tuesday row should pair with POI row i", func() {
				So(recs, ShouldHaveLength, 3)
				So(recs[0].RiskScore, ShouldEqual, 10)
				So(recs[0].Name, ShouldEqual, "A")
				So(recs[1].Name, ShouldEqual, "B")
				So(recs[2].RiskScore, ShouldEqual, 30)
				So(recs[2].Name, ShouldEqual, "C")
			})
		})

		Convey("When the risk table has more rows than the POI table", func() {
			a := New(append(rows, risk("Mon", 4)), pois)
			rep := a.Report(types.Monday)

			Convey("Then unpaired rows should be dropped", func() {
				So(a.Assemble(types.Monday), ShouldHaveLength, 3)
				So(rep.Matched, ShouldEqual, 4)
				So(rep.Kept, ShouldEqual, 3)
				So(rep.Dropped, ShouldEqual, 1)
			})
		})
	})
}

func TestAssembleDropsIncomplete(t *testing.T) {
	Convey("Given rows with missing fields", t, func() {
		missingName := poi("", "Pharmacy", 34, -118)
		missingLat := poi("D", "Pharmacy", 0, -118)
		missingLat.HasLat = false
		noScore := model.RiskRow{Weekday: "Wed"}

		a := New(
			[]model.RiskRow{risk("Wed", 1), noScore, risk("Wed", 3), risk("Wed", 4)},
			[]model.POIRow{missingName, poi("B", "Pharmacy", 34, -118), missingLat, poi("E", "Pharmacy", 34, -118)},
		)

		Convey("When assembling", func() {
			recs := a.Assemble(types.Wednesday)

			Convey("Then only complete rows should survive in source order", func() {
				So(recs, ShouldHaveLength, 1)
				So(recs[0].Name, ShouldEqual, "E")
				So(recs[0].RiskScore, ShouldEqual, 4)
			})
		})
	})
}

func TestAssembleThursdaySpellings(t *testing.T) {
	Convey("Given Thursday rows spelled differently", t, func() {
		a := New(
			[]model.RiskRow{risk("Thu", 1), risk("Thur", 2), risk("Thursday", 3)},
			[]model.POIRow{poi("A", "X", 1, 1), poi("B", "X", 1, 1), poi("C", "X", 1, 1)},
		)

		Convey("Then all of them should land in the Thur table", func() {
			recs := a.Assemble(types.Thursday)
			So(recs, ShouldHaveLength, 3)
			for _, r := range recs {
				So(r.Weekday, ShouldEqual, types.Thursday)
			}
		})

		Convey("And no other weekday should pick them up", func() {
			So(a.Assemble(types.Tuesday), ShouldBeEmpty)
		})
	})
}

func TestAssembleProperties(t *testing.T) {
	Convey("Given a mixed dataset", t, func() {
		rows := []model.RiskRow{
			risk("Mon", 1), risk("Sat", 2), risk("Sun", 3), risk("Fri", 4),
			{Weekday: "Mon"}, risk("Wed", 6), risk("Thur", 7), risk("mon", 8),
		}
		pois := make([]model.POIRow, 0, len(rows))
		for range rows {
			pois = append(pois, poi("P", "Grocery Stores", 34, -118))
		}
		a := New(rows, pois)

		Convey("Then every weekday should hold only its own complete rows", func() {
			for _, w := range types.Weekdays() {
				for _, r := range a.Assemble(w) {
					So(r.Weekday, ShouldEqual, w)
					So(r.Name, ShouldNotBeEmpty)
					So(r.Address, ShouldNotBeEmpty)
					So(r.Category, ShouldNotBeEmpty)
				}
				So(a.Report(w).Kept, ShouldBeLessThanOrEqualTo, a.Report(w).Matched)
			}
		})

		Convey("And assembling twice should be idempotent", func() {
			for _, w := range types.Weekdays() {
				So(a.Assemble(w), ShouldResemble, a.Assemble(w))
			}
		})

		Convey("And lowercase source values should not match", func() {
			So(a.Report(types.Monday).Matched, ShouldEqual, 2)
		})
	})
}

func TestAssembleByKey(t *testing.T) {
	Convey("Given tables sharing a join key in different orders", t, func() {
		rows := []model.RiskRow{
			{Weekday: "Mon", RiskScore: 1, HasScore: true, Key: "k2"},
			{Weekday: "Mon", RiskScore: 2, HasScore: true, Key: "k1"},
			{Weekday: "Mon", RiskScore: 3, HasScore: true, Key: "missing"},
			{Weekday: "Mon", RiskScore: 4, HasScore: true},
		}
		p1 := poi("One", "Pharmacy", 1, 1)
		p1.Key = "k1"
		p2 := poi("Two", "Pharmacy", 2, 2)
		p2.Key = "k2"
		dup := poi("Dup", "Pharmacy", 3, 3)
		dup.Key = "k1"
		a := New(rows, []model.POIRow{p1, p2, dup}, WithJoinMode(JoinKey))

		Convey("When assembling Monday", func() {
			recs := a.Assemble(types.Monday)

			Convey("Then rows should pair by key and keep risk order", func() {
				So(a.Mode(), ShouldEqual, JoinKey)
				So(recs, ShouldHaveLength, 2)
				So(recs[0].Name, ShouldEqual, "Two")
				So(recs[1].Name, ShouldEqual, "One")
			})

			Convey("And unknown or empty keys should be dropped", func() {
				So(a.Report(types.Monday).Dropped, ShouldEqual, 2)
			})
		})
	})
}

func TestBuildTableAndCategoryIndex(t *testing.T) {
	Convey("Given a week of data", t, func() {
		rows := []model.RiskRow{risk("Mon", 1), risk("Mon", 2), risk("Mon", 3), risk("Tue", 4), risk("Tue", 5), risk("Tue", 6)}
		pois := []model.POIRow{
			poi("A", "Grocery Stores", 34, -118),
			poi("B", "Grocery Stores", 34, -118),
			poi("C", "Pharmacy", 34, -118),
		}
		a := New(rows, pois)
		table, reports := a.BuildTable()

		Convey("Then all seven weekdays should be assembled", func() {
			So(reports, ShouldHaveLength, 7)
			So(table.Len(types.Monday), ShouldEqual, 3)
			So(table.Len(types.Tuesday), ShouldEqual, 3)
			So(table.Len(types.Sunday), ShouldEqual, 0)
		})

		Convey("And the category index should be de-duplicated in first-seen order", func() {
			set := CategoryIndex(types.Monday, table.Get(types.Monday))
			So(set.Labels(), ShouldResemble, []string{"Grocery Stores", "Pharmacy"})
		})
	})
}

func TestStaleness(t *testing.T) {
	Convey("Given a category only present on Saturday", t, func() {
		table := model.NewWeekdayTable(map[types.Weekday][]model.RiskRecord{
			types.Monday:   {{Category: "Grocery Stores"}},
			types.Saturday: {{Category: "Grocery Stores"}, {Category: "Bars"}, {Category: "Bars"}},
		})
		set := CategoryIndex(types.Monday, table.Get(types.Monday))

		Convey("Then the staleness report should name it once", func() {
			stale := Staleness(table, set)
			So(stale, ShouldHaveLength, 1)
			So(stale[types.Saturday], ShouldResemble, []string{"Bars"})
		})
	})
}
