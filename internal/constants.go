package internal

const (
	DotEnvPath    = "./.env"
	MigrationsDir = "migrations"

	// en-US locale timestamp layout used in CSV exports.
	ExportTimestampLayout = "1/2/2006, 3:04:05 PM"
)
