// Package dbtest opens throwaway SQLite databases carrying the storefront
// schema for repository and service tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// schema mirrors pkg/migrate/migrations in SQLite syntax.
var schema = []string{
	`CREATE TABLE categories (
		id text PRIMARY KEY,
		name text NOT NULL,
		is_listed boolean NOT NULL DEFAULT 1,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE products (
		id text PRIMARY KEY,
		category_id text NOT NULL,
		name text NOT NULL,
		description text,
		is_listed boolean NOT NULL DEFAULT 1,
		is_blocked boolean NOT NULL DEFAULT 0,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE variants (
		id text PRIMARY KEY,
		product_id text NOT NULL,
		sku text NOT NULL,
		size text NOT NULL,
		color text NOT NULL,
		price_paise integer NOT NULL,
		discount_price_paise integer,
		stock integer NOT NULL DEFAULT 0 CHECK (stock >= 0),
		is_blocked boolean NOT NULL DEFAULT 0,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE carts (
		id text PRIMARY KEY,
		user_id text NOT NULL UNIQUE,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE cart_items (
		id text PRIMARY KEY,
		cart_id text NOT NULL,
		variant_id text NOT NULL,
		quantity integer NOT NULL,
		unit_price_paise integer NOT NULL,
		line_total_paise integer NOT NULL,
		created_at datetime,
		updated_at datetime,
		UNIQUE (cart_id, variant_id)
	)`,
	`CREATE TABLE addresses (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		name text NOT NULL,
		phone text NOT NULL,
		line1 text NOT NULL,
		line2 text,
		landmark text,
		city text NOT NULL,
		state text NOT NULL,
		postal_code text NOT NULL,
		country text NOT NULL DEFAULT 'IN',
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE wallets (
		id text PRIMARY KEY,
		user_id text NOT NULL UNIQUE,
		balance_paise integer NOT NULL DEFAULT 0 CHECK (balance_paise >= 0),
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE wallet_transactions (
		id text PRIMARY KEY,
		wallet_id text NOT NULL,
		user_id text NOT NULL,
		type text NOT NULL,
		amount_paise integer NOT NULL,
		balance_after_paise integer NOT NULL,
		description text NOT NULL,
		order_ref text,
		created_at datetime
	)`,
	`CREATE TABLE coupons (
		id text PRIMARY KEY,
		code text NOT NULL UNIQUE,
		description text NOT NULL DEFAULT '',
		discount_type text NOT NULL,
		discount_value integer NOT NULL,
		min_order_amount_paise integer NOT NULL DEFAULT 0,
		start_date datetime NOT NULL,
		end_date datetime NOT NULL,
		is_expired boolean NOT NULL DEFAULT 0,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE coupon_redemptions (
		id text PRIMARY KEY,
		coupon_id text NOT NULL,
		user_id text NOT NULL,
		order_id text NOT NULL,
		created_at datetime,
		CONSTRAINT coupon_redemptions_coupon_user_key UNIQUE (coupon_id, user_id)
	)`,
	`CREATE TABLE offers (
		id text PRIMARY KEY,
		name text NOT NULL,
		scope text NOT NULL,
		percentage integer NOT NULL,
		start_date datetime NOT NULL,
		end_date datetime NOT NULL,
		is_active boolean NOT NULL DEFAULT 1,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE offer_items (
		offer_id text NOT NULL REFERENCES offers(id) ON DELETE CASCADE,
		ref_id text NOT NULL,
		PRIMARY KEY (offer_id, ref_id)
	)`,
	`CREATE TABLE orders (
		id text PRIMARY KEY,
		order_number text NOT NULL UNIQUE,
		user_id text NOT NULL,
		status text NOT NULL DEFAULT 'pending',
		payment_method text NOT NULL,
		payment_status text NOT NULL DEFAULT 'pending',
		payment_amount_paise integer NOT NULL,
		gateway_payment_id text,
		subtotal_paise integer NOT NULL,
		product_discount_paise integer NOT NULL DEFAULT 0,
		coupon_discount_paise integer NOT NULL DEFAULT 0,
		shipping_paise integer NOT NULL DEFAULT 0,
		total_paise integer NOT NULL,
		coupon_id text,
		coupon_code text,
		shipping_address text NOT NULL,
		cancel_reason text,
		cancelled_at datetime,
		shipped_at datetime,
		delivered_at datetime,
		version integer NOT NULL DEFAULT 1,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE order_items (
		id text PRIMARY KEY,
		order_id text NOT NULL,
		variant_id text NOT NULL,
		product_id text NOT NULL,
		product_name text NOT NULL,
		size text NOT NULL,
		color text NOT NULL,
		quantity integer NOT NULL,
		unit_price_paise integer NOT NULL,
		final_unit_price_paise integer NOT NULL,
		discount_paise integer NOT NULL DEFAULT 0,
		final_price_paise integer NOT NULL,
		status text NOT NULL DEFAULT 'active',
		cancel_reason text,
		return_status text NOT NULL DEFAULT 'none',
		return_reason text,
		return_details text,
		return_requested_at datetime,
		return_decided_at datetime,
		return_processed boolean NOT NULL DEFAULT 0,
		refund_amount_paise integer,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE payments (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		checkout_id text NOT NULL UNIQUE,
		gateway_order_id text NOT NULL UNIQUE,
		gateway_payment_id text,
		amount_paise integer NOT NULL,
		currency text NOT NULL DEFAULT 'INR',
		status text NOT NULL DEFAULT 'created',
		failure_reason text,
		address_id text NOT NULL,
		coupon_code text,
		order_id text,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE outbox_events (
		id text PRIMARY KEY,
		event_type text NOT NULL,
		aggregate_type text NOT NULL,
		aggregate_id text NOT NULL,
		payload blob NOT NULL,
		created_at datetime,
		published_at datetime,
		attempt_count integer NOT NULL DEFAULT 0,
		last_error text
	)`,
	`CREATE TABLE outbox_dlq (
		id text PRIMARY KEY,
		event_id text NOT NULL,
		event_type text NOT NULL,
		aggregate_type text NOT NULL,
		aggregate_id text NOT NULL,
		payload_json blob NOT NULL,
		error_reason text NOT NULL,
		error_message text,
		attempt_count integer NOT NULL DEFAULT 0,
		failed_at datetime,
		created_at datetime
	)`,
	`CREATE TABLE notifications (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		event_id text NOT NULL,
		type text NOT NULL,
		title text NOT NULL,
		message text NOT NULL,
		link text,
		order_id text,
		read_at datetime,
		created_at datetime,
		UNIQUE (user_id, event_id)
	)`,
}

// Open returns a private in-memory database with the full schema. The pool is
// pinned to one connection so concurrent transactions serialize the way row
// locks would on Postgres.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:storefront_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}
