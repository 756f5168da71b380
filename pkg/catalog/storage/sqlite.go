package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/tabula/pkg/catalog"
)

// timestampLayout is fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// maxInParams bounds the number of placeholders in one IN list.
const maxInParams = 900

// SQLiteConfig contains configuration for the SQLite catalog backend.
type SQLiteConfig struct {
	// Driver is the database/sql driver name: "sqlite3" (cgo) or "sqlite"
	// (pure Go).
	// Default: "sqlite3"
	Driver string

	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging so exports can read while
	// writers update the catalog.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Driver:       "sqlite3",
		Path:         "data/catalog.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements catalog.Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens the database and creates the schema if needed.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = "sqlite3"
	}

	logger := slog.Default().With("component", "catalog.storage.sqlite")

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, catalog.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite catalog initialized",
		"driver", config.Driver,
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return catalog.NewStorageError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return catalog.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return catalog.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return catalog.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return catalog.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return catalog.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// IDsAfter returns matching ids greater than after in ascending order.
func (s *SQLiteStore) IDsAfter(ctx context.Context, query *catalog.Query, after int64, limit int) ([]int64, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, catalog.NewStorageError("sqlite", "ids_after", fmt.Errorf("limit must be positive, got %d", limit))
	}

	table, whereClause, args := buildWhereClause(query)
	sqlQuery := fmt.Sprintf("SELECT t.id FROM %s t WHERE t.id > ?", table)
	args = append([]interface{}{after}, args...)
	if whereClause != "" {
		sqlQuery += " AND " + whereClause
	}
	sqlQuery += " ORDER BY t.id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, catalog.NewStorageError("sqlite", "ids_after", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, catalog.NewStorageError("sqlite", "scan", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, catalog.NewStorageError("sqlite", "ids_after", err)
	}

	return ids, nil
}

// Count returns the number of records matching query.
func (s *SQLiteStore) Count(ctx context.Context, query *catalog.Query) (int64, error) {
	if err := query.Validate(); err != nil {
		return 0, err
	}

	table, whereClause, args := buildWhereClause(query)
	sqlQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s t", table)
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, catalog.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

const productColumns = `id, name, slug, description, product_type, category,
	price_amount, price_currency, weight,
	collections, media, attributes, variants, channels,
	created_at, updated_at`

// Products loads products by id, ordered by id.
func (s *SQLiteStore) Products(ctx context.Context, ids []int64) ([]*catalog.Product, error) {
	ids = sortedIDs(ids)
	products := make([]*catalog.Product, 0, len(ids))
	for _, chunk := range chunkIDs(ids, maxInParams) {
		placeholders, args := inList(chunk)
		sqlQuery := "SELECT " + productColumns + " FROM products WHERE id IN (" + placeholders + ") ORDER BY id ASC"

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			return nil, catalog.NewStorageError("sqlite", "products", err)
		}
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				rows.Close()
				return nil, catalog.NewStorageError("sqlite", "scan", err)
			}
			products = append(products, p)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, catalog.NewStorageError("sqlite", "products", err)
		}
	}
	return products, nil
}

const orderColumns = `id, number, status, created_at,
	customer_email, customer_first_name, customer_last_name,
	has_shipping_address, ship_street, ship_city, ship_country,
	total_amount, total_currency`

// Orders loads orders by id, ordered by id.
func (s *SQLiteStore) Orders(ctx context.Context, ids []int64) ([]*catalog.Order, error) {
	ids = sortedIDs(ids)
	orders := make([]*catalog.Order, 0, len(ids))
	for _, chunk := range chunkIDs(ids, maxInParams) {
		placeholders, args := inList(chunk)
		sqlQuery := "SELECT " + orderColumns + " FROM orders WHERE id IN (" + placeholders + ") ORDER BY id ASC"

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			return nil, catalog.NewStorageError("sqlite", "orders", err)
		}
		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				rows.Close()
				return nil, catalog.NewStorageError("sqlite", "scan", err)
			}
			orders = append(orders, o)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, catalog.NewStorageError("sqlite", "orders", err)
		}
	}
	return orders, nil
}

// PutProduct inserts or replaces a product and its filter side tables.
func (s *SQLiteStore) PutProduct(ctx context.Context, product *catalog.Product) error {
	if product == nil || product.ID <= 0 {
		return catalog.NewStorageError("sqlite", "put_product", fmt.Errorf("product must have a positive id"))
	}
	p := normalizeProduct(product)

	collections, _ := json.Marshal(p.Collections)
	media, _ := json.Marshal(p.Media)
	attributes, _ := json.Marshal(p.Attributes)
	variants, _ := json.Marshal(p.Variants)
	channels, _ := json.Marshal(p.Channels)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return catalog.NewStorageError("sqlite", "put_product", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Slug, nullString(p.Description), p.ProductType, nullString(p.Category),
		p.Price.Amount, p.Price.Currency, p.Weight,
		string(collections), string(media), string(attributes), string(variants), string(channels),
		p.CreatedAt.Format(timestampLayout), p.UpdatedAt.Format(timestampLayout),
	)
	if err != nil {
		return catalog.NewStorageError("sqlite", "put_product", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM product_collections WHERE product_id = ?", p.ID); err != nil {
		return catalog.NewStorageError("sqlite", "put_product", err)
	}
	for _, slug := range p.Collections {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO product_collections (product_id, slug) VALUES (?, ?)", p.ID, slug); err != nil {
			return catalog.NewStorageError("sqlite", "put_product", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM product_attribute_values WHERE product_id = ?", p.ID); err != nil {
		return catalog.NewStorageError("sqlite", "put_product", err)
	}
	for _, a := range p.Attributes {
		for _, v := range a.Values {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO product_attribute_values (product_id, slug, input_type, value) VALUES (?, ?, ?, ?)",
				p.ID, a.Slug, string(a.InputType), v); err != nil {
				return catalog.NewStorageError("sqlite", "put_product", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return catalog.NewStorageError("sqlite", "put_product", err)
	}
	return nil
}

// PutOrder inserts or replaces an order.
func (s *SQLiteStore) PutOrder(ctx context.Context, order *catalog.Order) error {
	if order == nil || order.ID <= 0 {
		return catalog.NewStorageError("sqlite", "put_order", fmt.Errorf("order must have a positive id"))
	}
	o := normalizeOrder(order)

	var email, first, last interface{}
	if o.User != nil {
		email, first, last = o.User.Email, o.User.FirstName, o.User.LastName
	}
	var street, city, country interface{}
	hasAddress := o.ShippingAddress != nil
	if hasAddress {
		street, city, country = o.ShippingAddress.StreetAddress1, o.ShippingAddress.City, o.ShippingAddress.Country
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO orders (
			id, number, status, created_at, created_date,
			customer_email, customer_first_name, customer_last_name,
			has_shipping_address, ship_street, ship_city, ship_country,
			total_amount, total_currency
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Number, o.Status, o.CreatedAt.Format(timestampLayout), o.CreatedAt.Format(catalog.DateLayout),
		email, first, last,
		hasAddress, street, city, country,
		o.Total.Amount, o.Total.Currency,
	)
	if err != nil {
		return catalog.NewStorageError("sqlite", "put_order", err)
	}
	return nil
}

// Delete removes a record.
func (s *SQLiteStore) Delete(ctx context.Context, kind catalog.Kind, id int64) (bool, error) {
	var statements []string
	switch kind {
	case catalog.KindProduct:
		statements = []string{
			"DELETE FROM product_collections WHERE product_id = ?",
			"DELETE FROM product_attribute_values WHERE product_id = ?",
			"DELETE FROM products WHERE id = ?",
		}
	case catalog.KindOrder:
		statements = []string{"DELETE FROM orders WHERE id = ?"}
	default:
		return false, catalog.NewStorageError("sqlite", "delete", fmt.Errorf("unknown record kind %q", kind))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, catalog.NewStorageError("sqlite", "delete", err)
	}
	defer tx.Rollback()

	var affected int64
	for _, stmt := range statements {
		result, err := tx.ExecContext(ctx, stmt, id)
		if err != nil {
			return false, catalog.NewStorageError("sqlite", "delete", err)
		}
		affected, err = result.RowsAffected()
		if err != nil {
			return false, catalog.NewStorageError("sqlite", "delete", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, catalog.NewStorageError("sqlite", "delete", err)
	}
	// The last statement deletes the record itself.
	return affected > 0, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return catalog.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return catalog.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite catalog closed")
	return nil
}

// buildWhereClause builds a SQL WHERE clause from query filters. The record
// table is aliased as t. Returns the table name, the clause (without
// "WHERE") and the query arguments.
func buildWhereClause(query *catalog.Query) (string, string, []interface{}) {
	var conditions []string
	var args []interface{}

	addIn := func(column string, n int, values any) {
		if n == 0 {
			conditions = append(conditions, "0")
			return
		}
		cond, arg := jsonIn(column, values)
		conditions = append(conditions, cond)
		args = append(args, arg)
	}

	if query.ByID {
		addIn("t.id", len(query.IDs), query.IDs)
	}

	if query.Kind == catalog.KindOrder {
		if f := query.Orders; f != nil {
			if f.IDs != nil {
				addIn("t.id", len(f.IDs), f.IDs)
			}
			if f.Numbers != nil {
				addIn("t.number", len(f.Numbers), f.Numbers)
			}
			if f.Status != nil {
				addIn("t.status", len(f.Status), f.Status)
			}
			if f.Customer != "" {
				needle := strings.ToLower(f.Customer)
				conditions = append(conditions, `(t.customer_email IS NOT NULL AND (
					instr(LOWER(t.customer_email), ?) > 0 OR
					instr(LOWER(COALESCE(t.customer_first_name, '')), ?) > 0 OR
					instr(LOWER(COALESCE(t.customer_last_name, '')), ?) > 0))`)
				args = append(args, needle, needle, needle)
			}
			if f.Created != nil && f.Created.Gte != nil {
				conditions = append(conditions, "t.created_date >= ?")
				args = append(args, f.Created.Gte.UTC().Format(catalog.DateLayout))
			}
			if f.Created != nil && f.Created.Lte != nil {
				conditions = append(conditions, "t.created_date <= ?")
				args = append(args, f.Created.Lte.UTC().Format(catalog.DateLayout))
			}
		}
		return "orders", strings.Join(conditions, " AND "), args
	}

	if f := query.Products; f != nil {
		if f.Search != "" {
			conditions = append(conditions, "instr(LOWER(t.name), ?) > 0")
			args = append(args, strings.ToLower(f.Search))
		}
		if f.IDs != nil {
			addIn("t.id", len(f.IDs), f.IDs)
		}
		if f.Categories != nil {
			addIn("t.category", len(f.Categories), f.Categories)
		}
		if f.ProductTypes != nil {
			addIn("t.product_type", len(f.ProductTypes), f.ProductTypes)
		}
		if f.Collections != nil {
			if len(f.Collections) == 0 {
				conditions = append(conditions, "0")
			} else {
				cond, arg := jsonIn("pc.slug", f.Collections)
				conditions = append(conditions, "EXISTS (SELECT 1 FROM product_collections pc WHERE pc.product_id = t.id AND "+cond+")")
				args = append(args, arg)
			}
		}
		if f.Price != nil && f.Price.Gte != nil {
			conditions = append(conditions, "t.price_amount >= ?")
			args = append(args, *f.Price.Gte)
		}
		if f.Price != nil && f.Price.Lte != nil {
			conditions = append(conditions, "t.price_amount <= ?")
			args = append(args, *f.Price.Lte)
		}
		if f.UpdatedAt != nil && f.UpdatedAt.Gte != nil {
			conditions = append(conditions, "t.updated_at >= ?")
			args = append(args, f.UpdatedAt.Gte.UTC().Format(timestampLayout))
		}
		if f.UpdatedAt != nil && f.UpdatedAt.Lte != nil {
			conditions = append(conditions, "t.updated_at <= ?")
			args = append(args, f.UpdatedAt.Lte.UTC().Format(timestampLayout))
		}
		for _, a := range f.Attributes {
			cond, attrArgs := attributeCondition(a)
			conditions = append(conditions, cond)
			args = append(args, attrArgs...)
		}
	}

	return "products", strings.Join(conditions, " AND "), args
}

// attributeCondition matches products having at least one value of the
// attribute within the filter.
func attributeCondition(a catalog.AttributeFilter) (string, []interface{}) {
	var valueConds []string
	args := []interface{}{a.Slug}

	switch {
	case a.Values != nil:
		if len(a.Values) == 0 {
			return "0", nil
		}
		cond, arg := jsonIn("pa.value", a.Values)
		valueConds = append(valueConds, cond)
		args = append(args, arg)
	case a.Date != nil:
		valueConds = append(valueConds, "length(pa.value) = 10")
		if a.Date.Gte != nil {
			valueConds = append(valueConds, "pa.value >= ?")
			args = append(args, a.Date.Gte.UTC().Format(catalog.DateLayout))
		}
		if a.Date.Lte != nil {
			valueConds = append(valueConds, "pa.value <= ?")
			args = append(args, a.Date.Lte.UTC().Format(catalog.DateLayout))
		}
	case a.DateTime != nil:
		valueConds = append(valueConds, "pa.input_type = ?", "length(pa.value) = ?")
		args = append(args, string(catalog.InputDateTime), len(catalog.DateTimeLayout))
		if a.DateTime.Gte != nil {
			valueConds = append(valueConds, "pa.value >= ?")
			args = append(args, a.DateTime.Gte.UTC().Format(catalog.DateTimeLayout))
		}
		if a.DateTime.Lte != nil {
			valueConds = append(valueConds, "pa.value <= ?")
			args = append(args, a.DateTime.Lte.UTC().Format(catalog.DateTimeLayout))
		}
	}

	cond := "EXISTS (SELECT 1 FROM product_attribute_values pa WHERE pa.product_id = t.id AND pa.slug = ?"
	for _, c := range valueConds {
		cond += " AND " + c
	}
	return cond + ")", args
}

// scanProduct scans a products row.
func scanProduct(rows *sql.Rows) (*catalog.Product, error) {
	var (
		p                                                  catalog.Product
		description, category                              sql.NullString
		weight                                             sql.NullFloat64
		collections, media, attributes, variants, channels sql.NullString
		createdAt, updatedAt                               string
	)
	err := rows.Scan(
		&p.ID, &p.Name, &p.Slug, &description, &p.ProductType, &category,
		&p.Price.Amount, &p.Price.Currency, &weight,
		&collections, &media, &attributes, &variants, &channels,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	p.Category = category.String
	if weight.Valid {
		w := weight.Float64
		p.Weight = &w
	}
	for _, col := range []struct {
		raw  sql.NullString
		dest interface{}
	}{
		{collections, &p.Collections},
		{media, &p.Media},
		{attributes, &p.Attributes},
		{variants, &p.Variants},
		{channels, &p.Channels},
	} {
		if col.raw.Valid && col.raw.String != "" && col.raw.String != "null" {
			if err := json.Unmarshal([]byte(col.raw.String), col.dest); err != nil {
				return nil, fmt.Errorf("product %d: %w", p.ID, err)
			}
		}
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("product %d created_at: %w", p.ID, err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("product %d updated_at: %w", p.ID, err)
	}
	return &p, nil
}

// scanOrder scans an orders row.
func scanOrder(rows *sql.Rows) (*catalog.Order, error) {
	var (
		o                     catalog.Order
		createdAt             string
		email, first, last    sql.NullString
		hasAddress            bool
		street, city, country sql.NullString
	)
	err := rows.Scan(
		&o.ID, &o.Number, &o.Status, &createdAt,
		&email, &first, &last,
		&hasAddress, &street, &city, &country,
		&o.Total.Amount, &o.Total.Currency,
	)
	if err != nil {
		return nil, err
	}

	if o.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("order %d created_at: %w", o.ID, err)
	}
	if email.Valid {
		o.User = &catalog.User{Email: email.String, FirstName: first.String, LastName: last.String}
	}
	if hasAddress {
		o.ShippingAddress = &catalog.Address{
			StreetAddress1: street.String,
			City:           city.String,
			Country:        country.String,
		}
	}
	return &o, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// jsonIn matches column against a list bound as one JSON array parameter,
// so the list length is not limited by SQLITE_MAX_VARIABLE_NUMBER.
func jsonIn(column string, values any) (string, interface{}) {
	b, err := json.Marshal(values)
	if err != nil {
		// values is always a []int64 or []string
		panic(err)
	}
	return column + " IN (SELECT value FROM json_each(?))", string(b)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func inList(ids []int64) (string, []interface{}) {
	return placeholders(len(ids)), int64Args(ids)
}

func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func sortedIDs(ids []int64) []int64 {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}

// chunkIDs splits ids into slices of at most size elements.
func chunkIDs(ids []int64, size int) [][]int64 {
	var chunks [][]int64
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}
