package database

// Order queries
const (
	// InsertOrderSQL persists the order header. The NOT EXISTS guard
	// enforces the submission cooldown inside the insert statement
	// itself: when a prior order from the same network address or
	// contact number falls inside the trailing window, no row is
	// inserted and the caller sees pgx.ErrNoRows.
	InsertOrderSQL = `
		INSERT INTO orders (customer_name, contact_number, service_type, address, pickup_time,
			party_size, dine_in_time, payment_method, reference_number, notes, total, status,
			ip_address, receipt_url)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		WHERE NOT EXISTS (
			SELECT 1 FROM orders o
			WHERE o.created_at > NOW() - make_interval(secs => $15)
			  AND (($13::text IS NOT NULL AND o.ip_address = $13)
			    OR (NULLIF($2::text, '') IS NOT NULL AND o.contact_number = $2))
		)
		RETURNING id, created_at`

	InsertOrderItemSQL = `
		INSERT INTO order_items (order_id, item_id, name, variation, add_ons, unit_price, quantity, subtotal)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, $7, $8)`

	CountRecentOrdersSQL = `
		SELECT COUNT(*) FROM orders
		WHERE created_at > NOW() - make_interval(secs => $3)
		  AND ((NULLIF($1::text, '') IS NOT NULL AND ip_address = $1)
		    OR (NULLIF($2::text, '') IS NOT NULL AND contact_number = $2))`

	orderColumns = `id, customer_name, contact_number, service_type, address, pickup_time,
			party_size, dine_in_time, payment_method, reference_number, notes, total, status,
			ip_address, receipt_url, created_at`

	// FindOrderByFragmentSQL matches the opaque order identifier by
	// substring. The uuid column is cast to text once here because the
	// ILIKE operator does not apply to the native uuid type.
	FindOrderByFragmentSQL = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id::text ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT 1`

	FindOrderByContactSQL = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE contact_number = $1
		ORDER BY created_at DESC
		LIMIT 1`

	GetOrderItemsSQL = `
		SELECT id, order_id, item_id, name, variation, add_ons, unit_price, quantity, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC`
)

// Stock queries
const (
	stockColumns = `id, name, track_stock, stock_quantity, low_stock_threshold, is_available`

	GetTrackedStockSQL = `
		SELECT ` + stockColumns + `
		FROM menu_items
		WHERE id = ANY($1) AND track_stock`

	GetStockRecordSQL = `
		SELECT ` + stockColumns + `
		FROM menu_items
		WHERE id = $1`

	// DecrementStockSQL performs the clamped decrement as a single
	// read-modify-write inside the storage engine. Untracked items are
	// untouched. Availability is recomputed here because a stock field
	// changes.
	DecrementStockSQL = `
		UPDATE menu_items
		SET stock_quantity = GREATEST(stock_quantity - $2, 0),
		    is_available = GREATEST(stock_quantity - $2, 0) > low_stock_threshold,
		    updated_at = NOW()
		WHERE id = $1 AND track_stock`

	// ApplyStockUpdateSQL merges an admin partial update in one
	// statement. NULL parameters leave the column untouched, so a
	// customer decrement landing concurrently is never overwritten by
	// stale values read earlier. Availability recomputes only when a
	// stock column actually changes; an explicit $5 wins as the manual
	// override.
	ApplyStockUpdateSQL = `
		UPDATE menu_items
		SET track_stock = COALESCE($2::boolean, track_stock),
		    stock_quantity = GREATEST(COALESCE($3::integer, stock_quantity), 0),
		    low_stock_threshold = GREATEST(COALESCE($4::integer, low_stock_threshold), 0),
		    is_available = CASE
		        WHEN $5::boolean IS NOT NULL THEN $5::boolean
		        WHEN COALESCE($2::boolean, track_stock) IS DISTINCT FROM track_stock
		          OR GREATEST(COALESCE($3::integer, stock_quantity), 0) IS DISTINCT FROM stock_quantity
		          OR GREATEST(COALESCE($4::integer, low_stock_threshold), 0) IS DISTINCT FROM low_stock_threshold
		        THEN GREATEST(COALESCE($3::integer, stock_quantity), 0) > GREATEST(COALESCE($4::integer, low_stock_threshold), 0)
		        ELSE is_available
		    END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + stockColumns

	SetAvailabilitySQL = `
		UPDATE menu_items
		SET is_available = $2, updated_at = NOW()
		WHERE id = $1`
)
