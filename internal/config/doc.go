// Package config provides configuration loading for slotledger.
//
// # Configuration Sources
//
// Configuration is resolved in the following order, later sources winning:
//
//  1. Built-in defaults (Default)
//  2. A YAML file named by SLOT_CONFIG_FILE
//  3. Environment variables
//
// # Environment Variables
//
// Variables follow the pattern SLOT_<SECTION>_<FIELD>:
//
//	SLOT_SERVER_PORT=8080
//	SLOT_STORE_DIR=data/snapshots
//	SLOT_STORE_ENCODING=shift_jis
//	SLOT_WORKBOOK_FILE=out/aggregate.xlsx
//	SLOT_UPLOAD_ENABLED=true
//	SLOT_UPLOAD_PROVIDER=drive
//
// The resulting Config is passed explicitly into the pipeline at
// construction; nothing in this package holds process-wide state.
package config
