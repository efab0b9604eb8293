package results

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
	"github.com/HarshCasper/gcbmanimation/pkg/layer"
	"github.com/HarshCasper/gcbmanimation/pkg/raster"
)

func createResultsDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "compiled_gcbm_output.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	stmts := []string{
		"CREATE TABLE v_age_indicators (year INTEGER)",
		"CREATE TABLE v_flux_indicators (indicator TEXT, year INTEGER, flux_tc REAL)",
		"CREATE TABLE v_flux_indicator_aggregates (indicator TEXT, year INTEGER, flux_tc REAL)",
		"CREATE TABLE v_pool_indicators (indicator TEXT, year INTEGER, pool_tc REAL)",
		"CREATE TABLE v_stock_change_indicators (indicator TEXT, year INTEGER, flux_tc REAL)",
		"INSERT INTO v_age_indicators VALUES (2018), (2019), (2020)",
		"INSERT INTO v_flux_indicators VALUES ('NPP', 2018, 1000), ('NPP', 2018, 500), ('NPP', 2020, 2000)",
		"INSERT INTO v_pool_indicators VALUES ('Total Biomass', 2018, 3000)",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return path
}

func TestOpenDatabaseMissingFile(t *testing.T) {
	_, err := OpenDatabase(filepath.Join(t.TempDir(), "nope.db"))
	if !errs.Is(err, errs.InvalidConfig) {
		t.Errorf("missing database should be INVALID_CONFIG, got %v", err)
	}
}

func TestSimulationYears(t *testing.T) {
	db, err := OpenDatabase(createResultsDB(t))
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	defer db.Close()

	start, end, err := db.SimulationYears(context.Background())
	if err != nil {
		t.Fatalf("SimulationYears: %v", err)
	}
	if start != 2018 || end != 2020 {
		t.Errorf("years = %d..%d, want 2018..2020", start, end)
	}
}

func TestAnnualResultSumsAndFillsMissingYears(t *testing.T) {
	db, err := OpenDatabase(createResultsDB(t))
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	defer db.Close()

	series, err := db.AnnualResult(context.Background(), "NPP", layer.UnitsTc, nil)
	if err != nil {
		t.Fatalf("AnnualResult: %v", err)
	}
	want := Series{{2018, 1500}, {2019, 0}, {2020, 2000}}
	if len(series) != len(want) {
		t.Fatalf("got %d points, want %d", len(series), len(want))
	}
	for i := range want {
		if series[i] != want[i] {
			t.Errorf("point %d = %+v, want %+v", i, series[i], want[i])
		}
	}
}

func TestAnnualResultScalesToUnits(t *testing.T) {
	db, err := OpenDatabase(createResultsDB(t))
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	defer db.Close()

	series, err := db.AnnualResult(context.Background(), "NPP", layer.UnitsKtc, nil)
	if err != nil {
		t.Fatalf("AnnualResult: %v", err)
	}
	if series[0].Value != 1.5 {
		t.Errorf("2018 in KtC = %v, want 1.5", series[0].Value)
	}
}

func TestAnnualResultSearchesAllTables(t *testing.T) {
	db, err := OpenDatabase(createResultsDB(t))
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	defer db.Close()

	series, err := db.AnnualResult(context.Background(), "Total Biomass", layer.UnitsTc, nil)
	if err != nil {
		t.Fatalf("AnnualResult: %v", err)
	}
	if series[0].Value != 3000 {
		t.Errorf("pool indicator 2018 = %v, want 3000", series[0].Value)
	}
}

func TestAnnualResultUnknownIndicator(t *testing.T) {
	db, err := OpenDatabase(createResultsDB(t))
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	defer db.Close()

	if _, err := db.AnnualResult(context.Background(), "Sasquatch", layer.UnitsTc, nil); !errs.Is(err, errs.InvalidConfig) {
		t.Errorf("unknown indicator should be INVALID_CONFIG, got %v", err)
	}
}

func writeSpatialOutput(t *testing.T, path string, nodata float64, rows [][]float64) {
	t.Helper()
	height := len(rows)
	width := len(rows[0])
	r := raster.New(width, height, raster.GeoTransform{0, 100, 0, float64(height * 100), 0, -100}, nodata)
	for y, row := range rows {
		for x, v := range row {
			r.Set(x, y, v)
		}
	}
	if err := r.Write(path); err != nil {
		t.Fatalf("write raster %s: %v", path, err)
	}
}

func TestSpatialProviderDiscoversYears(t *testing.T) {
	dir := t.TempDir()
	writeSpatialOutput(t, filepath.Join(dir, "NPP_2018.asc"), -9999, [][]float64{{1, 2}})
	writeSpatialOutput(t, filepath.Join(dir, "NPP_2020.asc"), -9999, [][]float64{{3, 4}})

	p := NewSpatialProvider(filepath.Join(dir, "NPP_*.asc"), layer.UnitsTc)
	start, end, err := p.SimulationYears(context.Background())
	if err != nil {
		t.Fatalf("SimulationYears: %v", err)
	}
	if start != 2018 || end != 2020 {
		t.Errorf("years = %d..%d, want 2018..2020", start, end)
	}
}

func TestSpatialProviderNoMatches(t *testing.T) {
	p := NewSpatialProvider(filepath.Join(t.TempDir(), "NPP_*.asc"), layer.UnitsTc)
	if _, _, err := p.SimulationYears(context.Background()); !errs.Is(err, errs.DiscoveryEmpty) {
		t.Errorf("empty discovery should be DISCOVERY_EMPTY, got %v", err)
	}
}

func TestSpatialProviderSumsPixels(t *testing.T) {
	dir := t.TempDir()
	writeSpatialOutput(t, filepath.Join(dir, "NPP_2018.asc"), -9999, [][]float64{{1, -9999}, {2, 3}})
	writeSpatialOutput(t, filepath.Join(dir, "NPP_2020.asc"), -9999, [][]float64{{10, 10}, {-9999, -9999}})

	p := NewSpatialProvider(filepath.Join(dir, "NPP_*.asc"), layer.UnitsTc)
	series, err := p.AnnualResult(context.Background(), "", layer.UnitsTc, nil)
	if err != nil {
		t.Fatalf("AnnualResult: %v", err)
	}
	if len(series) != 3 {
		t.Fatalf("got %d points, want 3 (2018-2020)", len(series))
	}
	if series[0].Value != 6 {
		t.Errorf("2018 sum = %v, want 6 (nodata excluded)", series[0].Value)
	}
	if series[1].Year != 2019 || series[1].Value != 0 {
		t.Errorf("missing year = %+v, want zero-valued 2019", series[1])
	}
	if series[2].Value != 20 {
		t.Errorf("2020 sum = %v, want 20", series[2].Value)
	}
}

func TestSpatialProviderConvertsUnits(t *testing.T) {
	dir := t.TempDir()
	// 100m cells, so each pixel covers exactly one hectare: per-hectare
	// and absolute sums coincide.
	writeSpatialOutput(t, filepath.Join(dir, "NPP_2018.asc"), -9999, [][]float64{{2000}})

	p := NewSpatialProvider(filepath.Join(dir, "NPP_*.asc"), layer.UnitsTcPerHa)
	series, err := p.AnnualResult(context.Background(), "", layer.UnitsKtc, nil)
	if err != nil {
		t.Fatalf("AnnualResult: %v", err)
	}
	if math.Abs(series[0].Value-2) > 1e-9 {
		t.Errorf("2018 in KtC = %v, want 2", series[0].Value)
	}
}
