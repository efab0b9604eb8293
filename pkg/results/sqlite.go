package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
	"github.com/HarshCasper/gcbmanimation/pkg/layer"
)

// resultsTables maps each known results view to its value column.
// Lookup order matters: an indicator is served from the first view
// that knows it.
var resultsTables = []struct {
	table    string
	valueCol string
}{
	{"v_flux_indicator_aggregates", "flux_tc"},
	{"v_flux_indicators", "flux_tc"},
	{"v_pool_indicators", "pool_tc"},
	{"v_stock_change_indicators", "flux_tc"},
}

// Database reads annual indicator values from a compiled GCBM results
// database.
type Database struct {
	db   *sql.DB
	path string
}

// OpenDatabase opens a results database. The file must already exist;
// this package never creates or migrates simulation output.
func OpenDatabase(path string) (*Database, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errs.Wrap(errs.InvalidConfig, err, "results database not found: %s", path)
	}
	db, err := sql.Open("sqlite", path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errs.Wrap(errs.InvalidConfig, err, "failed to open results database")
	}
	return &Database{db: db, path: path}, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.path
}

// SimulationYears returns the first and last simulation year.
func (d *Database) SimulationYears(ctx context.Context) (start, end int, err error) {
	row := d.db.QueryRowContext(ctx, "SELECT MIN(year), MAX(year) FROM v_age_indicators")
	if err := row.Scan(&start, &end); err != nil {
		return 0, 0, errs.Wrap(errs.Internal, err, "failed to read simulation years")
	}
	return start, end, nil
}

// AnnualResult returns one value per simulation year for the named
// indicator, scaled to the given units. Years with no rows for the
// indicator report zero. The bounding box is ignored: database values
// are already aggregated over the whole simulation area.
func (d *Database) AnnualResult(ctx context.Context, indicator string, units layer.Units, _ *layer.BoundingBox) (Series, error) {
	table, valueCol, err := d.findIndicatorTable(ctx, indicator)
	if err != nil {
		return nil, err
	}

	// table and valueCol come from the fixed resultsTables list, never
	// from user input.
	query := fmt.Sprintf(`
		SELECT years.year, COALESCE(SUM(i.%s), 0) / ? AS value
		FROM (SELECT DISTINCT year FROM v_age_indicators ORDER BY year) AS years
		LEFT JOIN %s i
			ON years.year = i.year AND i.indicator = ?
		GROUP BY years.year
		ORDER BY years.year`, valueCol, table)

	rows, err := d.db.QueryContext(ctx, query, units.Scale(), indicator)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "failed to read annual results for %q", indicator)
	}
	defer rows.Close()

	var series Series
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.Year, &p.Value); err != nil {
			return nil, errs.Wrap(errs.Internal, err, "failed to scan annual result")
		}
		series = append(series, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Internal, err, "failed to read annual results for %q", indicator)
	}
	return series, nil
}

func (d *Database) findIndicatorTable(ctx context.Context, indicator string) (table, valueCol string, err error) {
	for _, rt := range resultsTables {
		query := fmt.Sprintf("SELECT 1 FROM %s WHERE indicator = ? LIMIT 1", rt.table)
		var one int
		err := d.db.QueryRowContext(ctx, query, indicator).Scan(&one)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			continue
		case err != nil:
			// Older databases may not carry every view.
			continue
		default:
			return rt.table, rt.valueCol, nil
		}
	}
	return "", "", errs.New(errs.InvalidConfig,
		"indicator %q not found in any results table", indicator)
}
