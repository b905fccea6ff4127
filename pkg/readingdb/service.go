// ReadingDB stores multimeter readings and their aggregates.
// Only one process should write to it; any service may read.
package readingdb

import (
	"database/sql"
	"embed"
	"sync"

	"github.com/NotCoffee418/dbmigrator"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/pathing"
	log "github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

var (
	db   *sql.DB
	once sync.Once
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Initialize must be called manually on startup
func InitializeDatabase() {
	// Create DB before migrations
	db := GetDB()
	_, err := db.Exec("SELECT 1;")
	if err != nil {
		log.Printf("Warning: Could not create DB: %v", err)
	}

	// Apply migrations
	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(
		db,
		migrationFS,
		"migrations",
	)
}

func GetDB() *sql.DB {
	once.Do(func() {
		var err error
		db, err = sql.Open("sqlite", pathing.GetReadingDbPath())
		if err != nil {
			log.Fatal(err)
		}
		// single writer, avoids SQLITE_BUSY between goroutines
		db.SetMaxOpenConns(1)
		if err = db.Ping(); err != nil {
			log.Fatal(err)
		}
	})
	return db
}
