// Package dataset loads the risk score and POI tables from CSV files.
package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/m-mizutani/goerr/v2"

	"github.com/okian/poirisk/internal/domain/model"
	"github.com/okian/poirisk/pkg/metrics"
)

// Column names.
const (
	ColWeekday       = "weekday"
	ColRiskScore     = "risk_score"
	ColLocationName  = "location_name"
	ColStreetAddress = "street_address"
	ColTopCategory   = "top_category"
	ColLatitude      = "latitude"
	ColLongitude     = "longitude"
)

// Default file names.
const (
	DefaultRiskPath = "risk_score.csv"
	DefaultPOIPath  = "POI_comm_rates.csv"
)

// headerRows is added to a zero-based data index to report the file line.
const headerRows = 2

// RiskColumns and POIColumns list the required columns of each table.
var (
	RiskColumns = []string{ColWeekday, ColRiskScore}
	POIColumns  = []string{ColLocationName, ColStreetAddress, ColTopCategory, ColLatitude, ColLongitude}
)

// naValues are read as missing, mirroring the usual dataframe NA tokens.
var naValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-NaN", "-nan", "<NA>", "N/A", "NA",
	"NULL", "NaN", "None", "n/a", "nan", "null",
}

// Source holds both tables converted to typed rows.
type Source struct {
	Risk     []model.RiskRow
	POI      []model.POIRow
	LoadedIn time.Duration
}

// Loader reads the two CSV files.
type Loader struct {
	riskPath string
	poiPath  string
	joinKey  string
}

// NewLoader creates a Loader with default paths.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{riskPath: DefaultRiskPath, poiPath: DefaultPOIPath}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads and validates both files. Any error is fatal for the caller.
func (l *Loader) Load(ctx context.Context) (*Source, error) {
	start := time.Now()

	riskCols := RiskColumns
	poiCols := POIColumns
	if l.joinKey != "" {
		riskCols = append(append([]string{}, riskCols...), l.joinKey)
		poiCols = append(append([]string{}, poiCols...), l.joinKey)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	riskDF, err := readTable(l.riskPath, riskCols)
	if err != nil {
		return nil, err
	}
	risk, err := l.riskRows(riskDF)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	poiDF, err := readTable(l.poiPath, poiCols)
	if err != nil {
		return nil, err
	}
	poi, err := l.poiRows(poiDF)
	if err != nil {
		return nil, err
	}

	metrics.UpdateDatasetRows("risk", len(risk))
	metrics.UpdateDatasetRows("poi", len(poi))

	elapsed := time.Since(start)
	metrics.RecordDatasetLoadDuration(float64(elapsed.Milliseconds()))
	return &Source{Risk: risk, POI: poi, LoadedIn: elapsed}, nil
}

func readTable(path string, required []string) (dataframe.DataFrame, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return dataframe.DataFrame{}, goerr.Wrap(ErrFileNotFound, "cannot open dataset", goerr.V("path", path))
		}
		return dataframe.DataFrame{}, goerr.Wrap(ErrUnreadable, "cannot open dataset", goerr.V("path", path), goerr.V("cause", err.Error()))
	}

	header, hasRows, err := peekHeader(data)
	if err != nil {
		return dataframe.DataFrame{}, goerr.Wrap(ErrMalformed, "cannot parse dataset", goerr.V("path", path), goerr.V("cause", err.Error()))
	}

	names := make(map[string]struct{}, len(header))
	for _, n := range header {
		names[n] = struct{}{}
	}
	for _, col := range required {
		if _, ok := names[col]; !ok {
			return dataframe.DataFrame{}, goerr.Wrap(ErrMissingColumn, "required column not found",
				goerr.V("path", path), goerr.V("column", col))
		}
	}

	// gota refuses a header without records; such a file is an empty table.
	if !hasRows {
		cols := make([]series.Series, 0, len(header))
		for _, n := range header {
			cols = append(cols, series.New([]string{}, series.String, n))
		}
		return dataframe.New(cols...), nil
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(naValues),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, goerr.Wrap(ErrMalformed, "cannot parse dataset", goerr.V("path", path), goerr.V("cause", df.Err.Error()))
	}
	return df, nil
}

// peekHeader returns the header row and whether any record follows it.
func peekHeader(data []byte) ([]string, bool, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, false, errors.New("missing header row")
		}
		return nil, false, err
	}
	if _, err := r.Read(); errors.Is(err, io.EOF) {
		return header, false, nil
	}
	return header, true, nil
}

func (l *Loader) riskRows(df dataframe.DataFrame) ([]model.RiskRow, error) {
	weekday := df.Col(ColWeekday)
	score, present, err := floatColumn(df, ColRiskScore, l.riskPath)
	if err != nil {
		return nil, err
	}
	keys := l.keyColumn(df)

	rows := make([]model.RiskRow, df.Nrow())
	for i := range rows {
		rows[i] = model.RiskRow{
			Weekday:   stringAt(weekday, i),
			RiskScore: score[i],
			HasScore:  present[i],
			Key:       keys[i],
		}
	}
	return rows, nil
}

func (l *Loader) poiRows(df dataframe.DataFrame) ([]model.POIRow, error) {
	lat, hasLat, err := floatColumn(df, ColLatitude, l.poiPath)
	if err != nil {
		return nil, err
	}
	lon, hasLon, err := floatColumn(df, ColLongitude, l.poiPath)
	if err != nil {
		return nil, err
	}
	name := df.Col(ColLocationName)
	addr := df.Col(ColStreetAddress)
	cat := df.Col(ColTopCategory)
	keys := l.keyColumn(df)

	rows := make([]model.POIRow, df.Nrow())
	for i := range rows {
		rows[i] = model.POIRow{
			Name:      stringAt(name, i),
			Address:   stringAt(addr, i),
			Category:  stringAt(cat, i),
			Latitude:  lat[i],
			Longitude: lon[i],
			HasLat:    hasLat[i],
			HasLon:    hasLon[i],
			Key:       keys[i],
		}
	}
	return rows, nil
}

func (l *Loader) keyColumn(df dataframe.DataFrame) []string {
	keys := make([]string, df.Nrow())
	if l.joinKey == "" {
		return keys
	}
	col := df.Col(l.joinKey)
	for i := range keys {
		keys[i] = stringAt(col, i)
	}
	return keys
}

// stringAt returns the cell value, or "" when missing.
func stringAt(s series.Series, i int) string {
	e := s.Elem(i)
	if e.IsNA() {
		return ""
	}
	return e.String()
}

// floatColumn parses a numeric column. Missing and NaN cells are reported
// through present; infinities and other non-numeric cells make the file
// malformed.
func floatColumn(df dataframe.DataFrame, name, path string) ([]float64, []bool, error) {
	col := df.Col(name)
	n := df.Nrow()
	values := make([]float64, n)
	present := make([]bool, n)
	for i := 0; i < n; i++ {
		raw := strings.TrimSpace(stringAt(col, i))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, nil, goerr.Wrap(ErrMalformed, "non-numeric value",
				goerr.V("path", path), goerr.V("column", name),
				goerr.V("line", i+headerRows), goerr.V("value", raw))
		}
		if math.IsNaN(v) {
			continue
		}
		if math.IsInf(v, 0) {
			return nil, nil, goerr.Wrap(ErrMalformed, "non-finite value",
				goerr.V("path", path), goerr.V("column", name),
				goerr.V("line", i+headerRows), goerr.V("value", raw))
		}
		values[i] = v
		present[i] = true
	}
	return values, present, nil
}
