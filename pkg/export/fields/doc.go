// Package fields projects catalog records into fixed-schema export rows.
//
// Each export kind has a static registry of field descriptors keyed by
// field identifier. Build resolves the identifiers requested in an
// export.ExportInfo against the registry once per export and appends the
// dynamic columns generated from attribute, warehouse and channel slugs.
// The resulting Projector has a fixed header; every row it produces has
// exactly one value per header column.
//
// Optional columns degrade instead of failing: when the data behind a
// column is absent, or its projection fails, the cell holds export.Missing
// and the failure is counted. Only required columns and records of the
// wrong type abort an export.
package fields
