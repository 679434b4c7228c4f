// Package spatialite provides the SpatiaLite-backed spatial store.
package spatialite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/chizu-dev/chizu/internal/domain"
	"github.com/chizu-dev/chizu/internal/ports/output"
)

// Ensure sqlite3 driver is registered with extension support.
func init() {
	sql.Register("sqlite3_with_extensions", &sqlite3.SQLiteDriver{
		Extensions: getSpatiaLiteLibraryPaths(),
	})
}

// getSpatiaLiteLibraryPaths returns a list of paths to try for loading SpatiaLite.
// The order is important: environment variable first, then platform-specific paths.
func getSpatiaLiteLibraryPaths() []string {
	var paths []string

	// First, check environment variable (set by Nix shell or Docker)
	// The env var should point to the exact library path
	if envPath := os.Getenv("SPATIALITE_LIBRARY_PATH"); envPath != "" {
		paths = append(paths, envPath)
		return paths
	}

	// Fallback: Platform-specific paths
	// Order matters - more specific paths first, then generic names
	paths = append(paths,
		// Alpine Linux (Docker containers)
		"/usr/lib/mod_spatialite.so",
		"/usr/lib/mod_spatialite.so.8",

		// Debian/Ubuntu amd64
		"/usr/lib/x86_64-linux-gnu/mod_spatialite.so",
		"/usr/lib/x86_64-linux-gnu/mod_spatialite.so.8",

		// Debian/Ubuntu arm64
		"/usr/lib/aarch64-linux-gnu/mod_spatialite.so",
		"/usr/lib/aarch64-linux-gnu/mod_spatialite.so.8",

		// macOS Homebrew (Intel)
		"/usr/local/lib/mod_spatialite.dylib",

		// macOS Homebrew (Apple Silicon)
		"/opt/homebrew/lib/mod_spatialite.dylib",

		// Generic names (let the system find them via LD_LIBRARY_PATH)
		"mod_spatialite.so",    // Linux
		"mod_spatialite",       // System default
		"mod_spatialite.dylib", // macOS
	)

	return paths
}

// fragmentSelect maps each polygon layer to the SQL expression producing
// its pre-rendered GeoJSON Feature fragment. Property order inside the
// fragment is fixed by json_object argument order.
var fragmentSelect = map[domain.LayerName]string{
	domain.LayerRegions: `json_object(
		'type', 'Feature',
		'properties', json_object('code', code, 'name', name),
		'geometry', json(AsGeoJSON(geom)))`,
	domain.LayerMunicipalities: `json_object(
		'type', 'Feature',
		'properties', json_object('code', code, 'area', area, 'name', name),
		'geometry', json(AsGeoJSON(geom)))`,
}

// Store implements the SpatialStore port on a single SpatiaLite database.
type Store struct {
	db      *sql.DB
	metrics output.MetricsCollector
}

// Open opens (and if necessary initializes) the store database at path.
func Open(ctx context.Context, path string, metrics output.MetricsCollector) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_foreign_keys=1", path)
	db, err := sql.Open("sqlite3_with_extensions", dsn)
	if err != nil {
		return nil, &domain.StorageError{Operation: "open", Key: path, Err: err}
	}

	// SQLite allows one writer; a second connection would hit
	// "database is locked" during replace transactions.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &domain.StorageError{Operation: "open", Key: path, Err: err}
	}

	// Verify SpatiaLite is loaded by checking its version
	var version string
	if err := db.QueryRowContext(ctx, "SELECT spatialite_version()").Scan(&version); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("SpatiaLite extension not available: %w", err)
	}

	s := &Store{db: db, metrics: metrics}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the store connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ensureSchema creates the layer tables, geometry columns and spatial
// indexes on first open. Re-running against an initialized database is a
// no-op.
func (s *Store) ensureSchema(ctx context.Context) error {
	var initialized int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='regions'",
	).Scan(&initialized)
	if err != nil {
		return &domain.StorageError{Operation: "init", Err: err}
	}
	if initialized > 0 {
		return nil
	}

	// InitSpatialMetaData populates spatial_ref_sys; required before
	// AddGeometryColumn.
	statements := []string{
		"SELECT InitSpatialMetaData(1)",

		`CREATE TABLE regions (
			id   TEXT PRIMARY KEY,
			code TEXT NOT NULL,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE municipalities (
			id   TEXT PRIMARY KEY,
			code TEXT NOT NULL,
			area TEXT,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE facilities (
			id               TEXT PRIMARY KEY,
			city_code        TEXT NOT NULL,
			category_code    INTEGER NOT NULL,
			subcategory_code INTEGER NOT NULL,
			post_office_code TEXT NOT NULL,
			name             TEXT NOT NULL,
			address          TEXT NOT NULL
		)`,

		fmt.Sprintf("SELECT AddGeometryColumn('regions', 'geom', %d, 'MULTIPOLYGON', 'XY')", domain.SRIDStore),
		fmt.Sprintf("SELECT AddGeometryColumn('municipalities', 'geom', %d, 'MULTIPOLYGON', 'XY')", domain.SRIDStore),
		fmt.Sprintf("SELECT AddGeometryColumn('facilities', 'geom', %d, 'POINT', 'XY')", domain.SRIDStore),

		"SELECT CreateSpatialIndex('regions', 'geom')",
		"SELECT CreateSpatialIndex('municipalities', 'geom')",
		"SELECT CreateSpatialIndex('facilities', 'geom')",

		"CREATE INDEX idx_regions_code ON regions (code)",
		"CREATE INDEX idx_municipalities_code ON municipalities (code)",
		"CREATE INDEX idx_facilities_city_code ON facilities (city_code)",
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return &domain.StorageError{Operation: "init", Key: stmt, Err: err}
		}
	}
	return nil
}

// observe reports one storage operation to the metrics collector.
func (s *Store) observe(operation string, start time.Time, err error) {
	s.metrics.IncStorageOperations(operation, err == nil)
	s.metrics.ObserveStorageDuration(operation, time.Since(start))
}

// QueryFragments returns pre-rendered GeoJSON fragments for every row of
// the layer intersecting the polygon. The SpatialIndex virtual table
// pre-filters candidates by bounding box before the exact intersection
// test runs.
func (s *Store) QueryFragments(ctx context.Context, layer domain.LayerName, polygonWKT string, srid int) (fragments []json.RawMessage, err error) {
	defer func(start time.Time) { s.observe("query_fragments", start, err) }(time.Now())

	sel, ok := fragmentSelect[layer]
	if !ok {
		return nil, domain.ErrLayerNotFound
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM "%s"
		WHERE rowid IN (
			SELECT rowid FROM SpatialIndex
			WHERE f_table_name = ? AND search_frame = GeomFromText(?, ?)
		)
		AND ST_Intersects(geom, GeomFromText(?, ?))
	`, sel, layer) //#nosec G201 -- layer names come from the fixed registry

	rows, qerr := s.db.QueryContext(ctx, query,
		string(layer), polygonWKT, srid,
		polygonWKT, srid,
	)
	if qerr != nil {
		err = &domain.QueryError{Layer: string(layer), Err: qerr}
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanFragments(rows)
}

// QueryAllFragments returns fragments for every row of the layer.
func (s *Store) QueryAllFragments(ctx context.Context, layer domain.LayerName) (fragments []json.RawMessage, err error) {
	defer func(start time.Time) { s.observe("query_fragments", start, err) }(time.Now())

	sel, ok := fragmentSelect[layer]
	if !ok {
		return nil, domain.ErrLayerNotFound
	}

	query := fmt.Sprintf(`SELECT %s FROM "%s" ORDER BY code`, sel, layer) //#nosec G201
	rows, qerr := s.db.QueryContext(ctx, query)
	if qerr != nil {
		err = &domain.QueryError{Layer: string(layer), Err: qerr}
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanFragments(rows)
}

func scanFragments(rows *sql.Rows) ([]json.RawMessage, error) {
	var fragments []json.RawMessage
	for rows.Next() {
		var fragment []byte
		if err := rows.Scan(&fragment); err != nil {
			return nil, err
		}
		fragments = append(fragments, json.RawMessage(fragment))
	}
	return fragments, rows.Err()
}

const facilityColumns = `
	id, city_code, category_code, subcategory_code,
	post_office_code, name, address, ST_AsBinary(geom)`

// QueryFacilities returns typed facility rows intersecting the polygon.
func (s *Store) QueryFacilities(ctx context.Context, polygonWKT string, srid int) (facilities []domain.Facility, err error) {
	defer func(start time.Time) { s.observe("query_facilities", start, err) }(time.Now())

	query := fmt.Sprintf(`
		SELECT %s
		FROM facilities
		WHERE rowid IN (
			SELECT rowid FROM SpatialIndex
			WHERE f_table_name = 'facilities' AND search_frame = GeomFromText(?, ?)
		)
		AND ST_Intersects(geom, GeomFromText(?, ?))
	`, facilityColumns)

	rows, qerr := s.db.QueryContext(ctx, query, polygonWKT, srid, polygonWKT, srid)
	if qerr != nil {
		err = &domain.QueryError{Layer: string(domain.LayerFacilities), Err: qerr}
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanFacilities(rows)
}

// QueryAllFacilities returns every facility row.
func (s *Store) QueryAllFacilities(ctx context.Context) (facilities []domain.Facility, err error) {
	defer func(start time.Time) { s.observe("query_facilities", start, err) }(time.Now())

	query := fmt.Sprintf("SELECT %s FROM facilities ORDER BY city_code, post_office_code", facilityColumns)
	rows, qerr := s.db.QueryContext(ctx, query)
	if qerr != nil {
		err = &domain.QueryError{Layer: string(domain.LayerFacilities), Err: qerr}
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanFacilities(rows)
}

func scanFacilities(rows *sql.Rows) ([]domain.Facility, error) {
	var facilities []domain.Facility
	for rows.Next() {
		var f domain.Facility
		var wkb []byte
		err := rows.Scan(
			&f.ID, &f.CityCode, &f.CategoryCode, &f.SubcategoryCode,
			&f.PostOfficeCode, &f.Name, &f.Address, &wkb,
		)
		if err != nil {
			return nil, err
		}
		f.Geometry = domain.Geometry{Type: "POINT", WKB: wkb, SRID: domain.SRIDStore}
		facilities = append(facilities, f)
	}
	return facilities, rows.Err()
}

// CountMatching counts rows of a layer whose key column prefix-matches
// the dataset key.
func (s *Store) CountMatching(ctx context.Context, layer domain.LayerName, key domain.DatasetKey) (int64, error) {
	def, ok := domain.Layers[layer]
	if !ok {
		return 0, domain.ErrLayerNotFound
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM "%s" WHERE "%s" LIKE ?`, layer, def.KeyColumn) //#nosec G201
	var count int64
	if err := s.db.QueryRowContext(ctx, query, key.PrefixPattern()).Scan(&count); err != nil {
		return 0, &domain.QueryError{Layer: string(layer), Err: err}
	}
	return count, nil
}

// CountLayer counts all rows of a layer.
func (s *Store) CountLayer(ctx context.Context, layer domain.LayerName) (int64, error) {
	if _, ok := domain.Layers[layer]; !ok {
		return 0, domain.ErrLayerNotFound
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, layer) //#nosec G201
	var count int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, &domain.QueryError{Layer: string(layer), Err: err}
	}
	return count, nil
}

// Begin opens a write transaction.
func (s *Store) Begin(ctx context.Context) (output.StoreTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &domain.StorageError{Operation: "begin", Err: err}
	}
	return &storeTx{tx: tx, store: s}, nil
}

// storeTx implements output.StoreTx on one sql.Tx.
type storeTx struct {
	tx        *sql.Tx
	store     *Store
	committed bool
}

func (t *storeTx) DeleteMatching(ctx context.Context, layer domain.LayerName, key domain.DatasetKey) (n int64, err error) {
	defer func(start time.Time) { t.store.observe("delete", start, err) }(time.Now())

	def, ok := domain.Layers[layer]
	if !ok {
		return 0, domain.ErrLayerNotFound
	}

	query := fmt.Sprintf(`DELETE FROM "%s" WHERE "%s" LIKE ?`, layer, def.KeyColumn) //#nosec G201
	res, execErr := t.tx.ExecContext(ctx, query, key.PrefixPattern())
	if execErr != nil {
		err = &domain.StorageError{Operation: "delete", Key: string(layer), Err: execErr}
		return 0, err
	}
	return res.RowsAffected()
}

func (t *storeTx) InsertFeature(ctx context.Context, feature domain.Feature) (err error) {
	defer func(start time.Time) { t.store.observe("insert", start, err) }(time.Now())

	id := feature.ID
	if id == "" {
		id = uuid.NewString()
	}

	switch domain.LayerName(feature.LayerName) {
	case domain.LayerRegions:
		// CastToMultiPolygon lifts single polygons into the declared
		// geometry type.
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO regions (id, code, name, geom)
			VALUES (?, ?, ?, CastToMultiPolygon(GeomFromWKB(?, ?)))`,
			id,
			feature.GetStringProperty("code"),
			feature.GetStringProperty("name"),
			feature.Geometry.WKB, feature.Geometry.SRID,
		)
	case domain.LayerMunicipalities:
		var area interface{}
		if v, ok := feature.GetProperty("area"); ok && v != nil {
			area = v
		}
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO municipalities (id, code, area, name, geom)
			VALUES (?, ?, ?, ?, CastToMultiPolygon(GeomFromWKB(?, ?)))`,
			id,
			feature.GetStringProperty("code"),
			area,
			feature.GetStringProperty("name"),
			feature.Geometry.WKB, feature.Geometry.SRID,
		)
	case domain.LayerFacilities:
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO facilities (
				id, city_code, category_code, subcategory_code,
				post_office_code, name, address, geom
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, GeomFromWKB(?, ?))`,
			id,
			feature.GetStringProperty("city_code"),
			feature.GetIntProperty("category_code"),
			feature.GetIntProperty("subcategory_code"),
			feature.GetStringProperty("post_office_code"),
			feature.GetStringProperty("name"),
			feature.GetStringProperty("address"),
			feature.Geometry.WKB, feature.Geometry.SRID,
		)
	default:
		return domain.ErrLayerNotFound
	}

	if err != nil {
		err = &domain.StorageError{Operation: "insert", Key: feature.LayerName, Err: err}
	}
	return err
}

func (t *storeTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return &domain.StorageError{Operation: "commit", Err: err}
	}
	t.committed = true
	return nil
}

// Rollback discards the transaction. After Commit it is a no-op, which
// lets callers keep a deferred Rollback on every path.
func (t *storeTx) Rollback() error {
	if t.committed {
		return nil
	}
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return &domain.StorageError{Operation: "rollback", Err: err}
	}
	return nil
}
