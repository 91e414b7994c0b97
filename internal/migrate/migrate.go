package migrate

import (
	"context"

	"rental-inventory/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateChecks           bool // CHECK constraints on counters and enums
	CreateIndexes          bool // composite and case-insensitive indexes
	CreateFKsViaSQL        bool // FKs via Exec after AutoMigrate
	CreateUpdatedAtTrigger bool
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
	}
}

type step struct {
	name string
	sql  string
}

func exec(db *gorm.DB, log *zap.Logger, steps []step) error {
	for _, s := range steps {
		if err := db.Exec(s.sql).Error; err != nil {
			log.Error(s.name, zap.Error(err))
			return err
		}
	}
	return nil
}

func MigrateLedgerDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	db = db.WithContext(ctx)
	log.Info("Starting ledger database migration")

	log.Info("Creating tables: products, customers, orders, order_items, inventory_logs")
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Customer{},
		&models.Order{},
		&models.OrderItem{},
		&models.InventoryLog{},
	); err != nil {
		log.Error("AutoMigrate error", zap.Error(err))
		return err
	}
	log.Info("Tables created")

	if opt.CreateUpdatedAtTrigger {
		log.Info("Creating updated_at triggers")
		if err := exec(db, log, []step{{"triggers error", `
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_products_updated ON products;
CREATE TRIGGER trg_products_updated BEFORE UPDATE ON products
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_orders_updated ON orders;
CREATE TRIGGER trg_orders_updated BEFORE UPDATE ON orders
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_order_items_updated ON order_items;
CREATE TRIGGER trg_order_items_updated BEFORE UPDATE ON order_items
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`}}); err != nil {
			return err
		}
		log.Info("Triggers created")
	}

	if opt.CreateChecks {
		log.Info("Creating CHECK constraints")
		if err := exec(db, log, []step{
			{"chk products counters", `
ALTER TABLE products
	DROP CONSTRAINT IF EXISTS chk_products_counters_non_negative,
	ADD CONSTRAINT chk_products_counters_non_negative
	CHECK (total_owned >= 0 AND current_physical_stock >= 0 AND price_per_day >= 0);
`},
			{"chk orders status", `
ALTER TABLE orders
	DROP CONSTRAINT IF EXISTS chk_orders_status_allowed,
	ADD CONSTRAINT chk_orders_status_allowed
	CHECK (status IN ('BOOKED','ACTIVE','COMPLETED','CANCELLED'));
`},
			{"chk orders dates", `
ALTER TABLE orders
	DROP CONSTRAINT IF EXISTS chk_orders_date_range,
	ADD CONSTRAINT chk_orders_date_range
	CHECK (expected_return_date >= rental_start_date);
`},
			// returned <= exported <= quantity
			{"chk order_items counters", `
ALTER TABLE order_items
	DROP CONSTRAINT IF EXISTS chk_order_items_counters,
	ADD CONSTRAINT chk_order_items_counters
	CHECK (quantity > 0 AND returned_quantity >= 0
		AND returned_quantity <= exported_quantity
		AND exported_quantity <= quantity);
`},
			{"chk inventory_logs action", `
ALTER TABLE inventory_logs
	DROP CONSTRAINT IF EXISTS chk_inventory_logs_action_allowed,
	ADD CONSTRAINT chk_inventory_logs_action_allowed
	CHECK (action_type IN ('EXPORT','IMPORT','ADJUST','CLEAN'));
`},
		}); err != nil {
			return err
		}
		log.Info("CHECK constraints created")
	}

	if opt.CreateIndexes {
		log.Info("Creating indexes")
		if err := exec(db, log, []step{
			{"ux products code", `
CREATE UNIQUE INDEX IF NOT EXISTS ux_products_code_lower
ON products (lower(code));
`},
			{"ix orders status_dates", `
CREATE INDEX IF NOT EXISTS ix_orders_status_dates
ON orders (status, rental_start_date, expected_return_date);
`},
			{"ix inventory_logs product_ts", `
CREATE INDEX IF NOT EXISTS ix_inventory_logs_product_ts
ON inventory_logs (product_id, timestamp DESC);
`},
		}); err != nil {
			return err
		}
		log.Info("Indexes created")
	}

	if opt.CreateFKsViaSQL {
		log.Info("Creating foreign keys")
		if err := exec(db, log, []step{
			{"fk orders.customer_id", `
ALTER TABLE orders
  DROP CONSTRAINT IF EXISTS fk_orders_customer,
  ADD CONSTRAINT fk_orders_customer
    FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE RESTRICT;
`},
			{"fk order_items.product_id", `
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS fk_order_items_product,
  ADD CONSTRAINT fk_order_items_product
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT;
`},
		}); err != nil {
			return err
		}
		log.Info("Foreign keys created")
	}

	log.Info("Ledger database migration finished")
	return nil
}
