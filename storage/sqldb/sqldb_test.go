package sqldb

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db := Open(filepath.Join(t.TempDir(), "test.db"),
		`CREATE TABLE IF NOT EXISTS things (id INTEGER PRIMARY KEY, name TEXT NOT NULL, weight REAL)`)
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestLazyOpenAndUpdate(t *testing.T) {
	db := testDB(t)
	if got := db.Update(`INSERT INTO things (name, weight) VALUES (?, ?)`, "anvil", 42.5); got != 1 {
		t.Fatalf("got %d affected rows, want 1", got)
	}
	if got := db.Update(`UPDATE things SET weight = ? WHERE name = ?`, 43.0, "anvil"); got != 1 {
		t.Errorf("got %d affected rows, want 1", got)
	}
	if got := db.Update(`UPDATE things SET weight = ? WHERE name = ?`, 1.0, "missing"); got != 0 {
		t.Errorf("got %d affected rows, want 0", got)
	}
}

func TestQueryCallbackPerRow(t *testing.T) {
	db := testDB(t)
	for _, name := range []string{"a", "b", "c"} {
		db.Update(`INSERT INTO things (name) VALUES (?)`, name)
	}
	var names []string
	db.Query(`SELECT name FROM things ORDER BY name`, func(row Row) bool {
		names = append(names, row["name"].(string))
		return true
	})
	if len(names) != 3 || names[0] != "a" || names[2] != "c" {
		t.Errorf("got %v, want [a b c]", names)
	}

	// Early stop.
	count := 0
	db.Query(`SELECT name FROM things ORDER BY name`, func(row Row) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("got %d callbacks after early stop, want 1", count)
	}
}

func TestQueryRow(t *testing.T) {
	db := testDB(t)
	db.Update(`INSERT INTO things (name, weight) VALUES (?, ?)`, "anvil", 42.5)
	row, found := db.QueryRow(`SELECT name, weight FROM things WHERE name = ?`, "anvil")
	if !found {
		t.Fatal("row not found")
	}
	if got := row["weight"].(float64); got != 42.5 {
		t.Errorf("got weight %v, want 42.5", got)
	}
	if _, found := db.QueryRow(`SELECT name FROM things WHERE name = ?`, "missing"); found {
		t.Error("found a row that should not exist")
	}
}

func TestQueryScalar(t *testing.T) {
	db := testDB(t)
	db.Update(`INSERT INTO things (name) VALUES (?)`, "a")
	db.Update(`INSERT INTO things (name) VALUES (?)`, "b")
	if got, found := db.QueryScalar(`SELECT COUNT(*) FROM things`); !found || got != "2" {
		t.Errorf("got %q, %v, want \"2\", true", got, found)
	}
	if _, found := db.QueryScalar(`SELECT name FROM things WHERE name = ?`, "missing"); found {
		t.Error("found a scalar that should not exist")
	}
}

func TestStatementFailureSwallowed(t *testing.T) {
	db := testDB(t)
	if got := db.Update(`INSERT INTO nonsense (nope) VALUES (?)`, 1); got != 0 {
		t.Errorf("got %d affected rows from a bad statement, want 0", got)
	}
	called := false
	db.Query(`SELECT * FROM nonsense`, func(row Row) bool {
		called = true
		return true
	})
	if called {
		t.Error("callback invoked for a failing query")
	}
	if _, found := db.QueryScalar(`SELECT nope FROM nonsense`); found {
		t.Error("scalar found for a failing query")
	}
}

func TestBindRuntimeTypes(t *testing.T) {
	db := testDB(t)
	// bool and float32 params must map onto storable types.
	db.Update(`CREATE TABLE IF NOT EXISTS flags (id INTEGER PRIMARY KEY, up INTEGER, ratio REAL)`)
	if got := db.Update(`INSERT INTO flags (up, ratio) VALUES (?, ?)`, true, float32(0.5)); got != 1 {
		t.Fatalf("got %d affected rows, want 1", got)
	}
	row, found := db.QueryRow(`SELECT up, ratio FROM flags`)
	if !found {
		t.Fatal("row not found")
	}
	if got := row["up"].(int64); got != 1 {
		t.Errorf("got up=%v, want 1", got)
	}
}

func TestSchemaIdempotentAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	schema := `CREATE TABLE IF NOT EXISTS things (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`

	db := Open(path, schema)
	if db.Update(`INSERT INTO things (name) VALUES (?)`, "keep") != 1 {
		t.Fatal("insert failed")
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db = Open(path, schema)
	defer db.Close()
	if got, found := db.QueryScalar(`SELECT name FROM things`); !found || got != "keep" {
		t.Errorf("got %q, %v after reopen, want \"keep\", true", got, found)
	}
}
