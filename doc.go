/*
Package liteorm is a schema-aware object/relational mapping engine for SQLite.

Liteorm (Lite ORM) maps plain Go structs to SQLite tables: it infers a table
schema from a struct type, generates the CREATE TABLE statement and the CRUD
statements for it, binds typed field values into those statements, and
materializes result rows back into struct instances.

Key Features:
  - Schema Inference: Derive a Table (columns, types, primary key) from any struct type, cached per type for the process lifetime.
  - Statement Synthesis: Parameterized INSERT/UPDATE/DELETE/SELECT statements built from the inferred schema and a live instance.
  - Row Materialization: Result rows are scanned back into new struct instances by column name; unknown columns are skipped.
  - File And Memory Stores: Work against an on-disk database file or a shared in-memory database.
  - Statement Caching: Prepared statements are cached in an LRU cache for repeated execution.
  - Schema Recovery: Read table definitions back out of an existing database and generate Go model structs from them.

Basic Usage:

	type User struct {
		Id   int64
		Name string
		Age  *int
	}

	store, err := liteorm.Open("app.db")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	if err := liteorm.CreateTable[User](store); err != nil {
		log.Fatal(err)
	}

	u := User{Id: 1, Name: "John"}
	if err := liteorm.Insert(store, &u); err != nil {
		log.Fatal(err)
	}

	got, err := liteorm.SelectByID[User](store, int64(1))

Struct fields map to columns under their field names. The `db` tag controls
the mapping: `db:"-"` excludes a field, `db:",pk"` marks the primary key and
`db:"other_name"` renames the column. Without an explicit marker, a column
named Id (or {TypeName}Id) is picked up as the primary key automatically.
*/
package liteorm
