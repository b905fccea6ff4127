package readingdb

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "readingdb")
	if err != nil {
		panic(err)
	}
	os.Setenv("DMM_DATA_DIR", dir)
	InitializeDatabase()

	code := m.Run()
	GetDB().Close()
	os.RemoveAll(dir)
	os.Exit(code)
}
