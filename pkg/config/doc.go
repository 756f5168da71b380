// Package config provides configuration management for tabula.
//
// Configuration is loaded from a YAML file, decoded on top of the defaults,
// and then overridden by environment variables. A .env file in the working
// directory is loaded first when present.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention TABULA_SECTION_FIELD:
//
//   - TABULA_EXPORT_BATCH_SIZE overrides export.batch_size
//   - TABULA_FILES_S3_BUCKET overrides files.s3.bucket
//   - TABULA_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// EnvKeys lists every supported variable.
//
// # Singleton
//
//	if err := config.Initialize("tabula.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// A Watcher reloads the file on change while `tabula serve` runs; components
// that depend on reloadable sections register with OnReload.
//
// # Example Configuration
//
//	catalog:
//	  driver: sqlite3
//	  path: data/catalog.db
//
//	export:
//	  batch_size: 10000
//	  unknown_fields: reject
//
//	files:
//	  backend: s3
//	  s3:
//	    bucket: exports
//
//	notify:
//	  backend: sendgrid
//	  sendgrid:
//	    api_key: "..."
//	    from_email: exports@example.com
//
//	schedules:
//	  - name: daily-gift-cards
//	    cron: "0 6 * * *"
//	    kind: gift_cards
//	    created_today: true
//	    recipient: ops@example.com
package config
