package database

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenSQLite opens a SQLite database limited to one connection, so an
// in-memory database is shared by every goroutine and transaction.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// CreateSQLiteTables creates the schema with SQLite-compatible DDL.
func CreateSQLiteTables(db *gorm.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS "users" (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"email" TEXT NOT NULL UNIQUE,
			"password" TEXT NOT NULL,
			"first_name" TEXT,
			"last_name" TEXT,
			"phone" TEXT,
			"address" TEXT,
			"city" TEXT,
			"role" TEXT DEFAULT 'customer',
			"created_at" DATETIME,
			"updated_at" DATETIME,
			"deleted_at" DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS "products" (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"name" TEXT NOT NULL,
			"price" NUMERIC(10,2) NOT NULL,
			"description" TEXT,
			"created_at" DATETIME,
			"updated_at" DATETIME,
			"deleted_at" DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS "carts" (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"user_id" INTEGER NOT NULL UNIQUE,
			"created_at" DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS "cart_items" (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"cart_id" INTEGER NOT NULL,
			"product_id" INTEGER NOT NULL,
			"quantity" INTEGER NOT NULL DEFAULT 1,
			UNIQUE ("cart_id", "product_id")
		)`,
		`CREATE TABLE IF NOT EXISTS "orders" (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"user_id" INTEGER,
			"serial_number" TEXT UNIQUE,
			"full_name" TEXT NOT NULL,
			"address" TEXT NOT NULL,
			"phone" TEXT NOT NULL,
			"user_email" TEXT,
			"is_accepted" BOOLEAN NOT NULL DEFAULT 0,
			"is_sent" BOOLEAN NOT NULL DEFAULT 0,
			"created_at" DATETIME,
			"updated_at" DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS "order_items" (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"order_id" INTEGER NOT NULL,
			"product_id" INTEGER,
			"product_name" TEXT NOT NULL,
			"quantity" INTEGER NOT NULL,
			"price" NUMERIC(10,2) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS "inquiries" (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"email" TEXT NOT NULL,
			"message" TEXT NOT NULL,
			"created_at" DATETIME
		)`,
	}

	for _, ddl := range tables {
		if err := db.Exec(ddl).Error; err != nil {
			return err
		}
	}
	return nil
}

// ResetSQLite deletes every row, children first.
func ResetSQLite(db *gorm.DB) {
	for _, table := range []string{"order_items", "orders", "cart_items", "carts", "inquiries", "products", "users"} {
		db.Exec(`DELETE FROM "` + table + `"`)
	}
	db.Exec(`DELETE FROM sqlite_sequence`)
}
