// Package metrics provides constants used across metric definitions.
package metrics

// Operation names passed to Recorder methods.
const (
	// OpRealizeRow is one (lens, epoch) realization.
	OpRealizeRow = "realize_row"
	// OpSourceTable is a whole source table build.
	OpSourceTable = "source_table"
	// OpObjectRecord is one aggregated object record.
	OpObjectRecord = "object_record"
	// OpObjectTable is a whole object table build.
	OpObjectTable = "object_table"
	// OpDbInsert is a batch insert, written "db_insert:<table>".
	OpDbInsert = "db_insert"
	// OpDbMigrate is a schema migration.
	OpDbMigrate = "db_migrate"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusError   = "error"
	StatusWritten = "written"
	StatusDropped = "dropped"
)

// Histogram bucket configuration constants.
const (
	// BucketStart100us is the starting bucket for 0.1ms histograms.
	BucketStart100us = 0.0001
	// BucketStart1ms is the starting bucket for 1ms histograms.
	BucketStart1ms = 0.001
	// BucketStart100ms is the starting bucket for 100ms histograms.
	BucketStart100ms = 0.1

	// BucketFactor2 is the common exponential growth factor.
	BucketFactor2 = 2

	// BucketCount12 covers 12 doublings.
	BucketCount12 = 12
	// BucketCount15 covers 15 doublings.
	BucketCount15 = 15
)

// SplitPartsCount is the number of parts in an "operation:table" name
const SplitPartsCount = 2
