package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		contact VARCHAR(64) NOT NULL DEFAULT '',
		role VARCHAR(16) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uniq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		unit_price DECIMAL(12,2) NOT NULL,
		stock_quantity INT NOT NULL,
		image_url VARCHAR(1024) NOT NULL DEFAULT '',
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		CONSTRAINT chk_products_stock CHECK (stock_quantity >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		buyer_id BIGINT NOT NULL,
		status VARCHAR(20) NOT NULL,
		delivery_address VARCHAR(1024) NOT NULL,
		placed_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		KEY idx_orders_buyer_placed (buyer_id, placed_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	// order_items has no foreign key to products: items are snapshots and
	// must survive catalogue deletes.
	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		unit_price DECIMAL(12,2) NOT NULL,
		image_url VARCHAR(1024) NOT NULL DEFAULT '',
		quantity INT NOT NULL,
		KEY idx_order_items_order (order_id),
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// AutoMigrate creates the schema if it does not exist.
func AutoMigrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
