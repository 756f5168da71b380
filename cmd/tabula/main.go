// Tabula exports catalog records (products and gift-card orders) to CSV or
// XLSX files, saves them to a file store and notifies the requester.
//
// Usage:
//
//	# Export three products with their names and prices
//	tabula export --kind products --ids 1,2,3 --fields name,price
//
//	# Run an export described by a JSON task payload
//	tabula export --payload task.json
//
//	# Serve the job API, scheduled exports, metrics and health probes
//	tabula serve --config config.yaml
//
//	# Load fixture records into the catalog
//	tabula seed fixtures.json
//
//	# Show version information
//	tabula version
package main

func main() {
	Execute()
}
