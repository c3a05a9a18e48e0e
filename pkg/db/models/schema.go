package models

import "gorm.io/gorm"

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&SequenceCounter{},
		&User{},
		&Seller{},
		&Product{},
		&InventoryReservation{},
		&CartRecord{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&OutboxEvent{},
	}
}

// AutoMigrate creates the schema through GORM. The goose migrations remain the source of
// truth for Postgres; this path serves SQLite dev databases and tests.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(All()...)
}
