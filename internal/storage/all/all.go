// Package all registers every storage backend with the storage factory.
// Configuration picks one at runtime, so the binary links all of them.
package all

import (
	_ "senkyo/internal/storage/mssql"
	_ "senkyo/internal/storage/postgres"
	_ "senkyo/internal/storage/sqlite"
)
