package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the catalog schema.
//
// Related entities that are only ever read together with their product
// (media, variants, channel listings, attributes) are stored as JSON
// columns. Collections and attribute values are additionally indexed in
// side tables so filters can match them.
const Schema = `
-- Products
CREATE TABLE IF NOT EXISTS products (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    slug TEXT NOT NULL,
    description TEXT,
    product_type TEXT NOT NULL,
    category TEXT,
    price_amount REAL NOT NULL DEFAULT 0,
    price_currency TEXT NOT NULL DEFAULT '',
    weight REAL,
    collections TEXT,
    media TEXT,
    attributes TEXT,
    variants TEXT,
    channels TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS product_collections (
    product_id INTEGER NOT NULL,
    slug TEXT NOT NULL,
    PRIMARY KEY (product_id, slug)
);

CREATE TABLE IF NOT EXISTS product_attribute_values (
    product_id INTEGER NOT NULL,
    slug TEXT NOT NULL,
    input_type TEXT NOT NULL,
    value TEXT NOT NULL
);

-- Orders, with customer and shipping address inlined
CREATE TABLE IF NOT EXISTS orders (
    id INTEGER PRIMARY KEY,
    number TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at TEXT NOT NULL,
    created_date TEXT NOT NULL,
    customer_email TEXT,
    customer_first_name TEXT,
    customer_last_name TEXT,
    ship_street TEXT,
    ship_city TEXT,
    ship_country TEXT,
    has_shipping_address BOOLEAN NOT NULL DEFAULT 0,
    total_amount REAL NOT NULL DEFAULT 0,
    total_currency TEXT NOT NULL DEFAULT ''
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common filters
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
CREATE INDEX IF NOT EXISTS idx_products_product_type ON products(product_type);
CREATE INDEX IF NOT EXISTS idx_products_updated_at ON products(updated_at);
CREATE INDEX IF NOT EXISTS idx_product_collections_slug ON product_collections(slug);
CREATE INDEX IF NOT EXISTS idx_product_attribute_values_slug ON product_attribute_values(slug, value);
CREATE INDEX IF NOT EXISTS idx_product_attribute_values_product ON product_attribute_values(product_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_date ON orders(created_date);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
