package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"doacoes/internal"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("duplicate record")
	ErrReferenced = errors.New("record is still referenced")
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Pragmas are per connection.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL; PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE COLLATE NOCASE,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL,
  donationType TEXT NOT NULL CHECK (donationType IN ('monetary', 'physical')),
  targetAmount INTEGER,
  currentAmount INTEGER NOT NULL DEFAULT 0,
  isFulfilled INTEGER NOT NULL DEFAULT 0,
  isPublished INTEGER NOT NULL DEFAULT 1,
  imagePath TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_published ON products(isPublished);

CREATE TABLE IF NOT EXISTS product_categories (
  productId TEXT NOT NULL,
  categoryId TEXT NOT NULL,
  PRIMARY KEY (productId, categoryId),
  FOREIGN KEY(productId) REFERENCES products(id) ON DELETE CASCADE,
  FOREIGN KEY(categoryId) REFERENCES categories(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_product_categories_category ON product_categories(categoryId);

CREATE TABLE IF NOT EXISTS donations (
  id TEXT PRIMARY KEY,
  productId TEXT NOT NULL,
  donationType TEXT NOT NULL,
  amount INTEGER,
  donorName TEXT,
  donorPhone TEXT,
  donorEmail TEXT,
  receiptPath TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(productId) REFERENCES products(id)
);
CREATE INDEX IF NOT EXISTS idx_donations_product ON donations(productId);

CREATE TABLE IF NOT EXISTS pix_settings (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  qrCodeImagePath TEXT,
  copiaECola TEXT,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS receipts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  storagePath TEXT,
  detectedAmount INTEGER,
  status TEXT NOT NULL DEFAULT 'pending',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS import_runs (
  id TEXT PRIMARY KEY,
  total INTEGER NOT NULL,
  succeeded INTEGER NOT NULL,
  failed INTEGER NOT NULL,
  reportPath TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", ErrReferenced, err)
	default:
		return err
	}
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Categories

func (d *DB) InsertCategory(id, name string) (internal.Category, error) {
	if _, err := d.conn.Exec(`INSERT INTO categories (id, name) VALUES (?, ?)`, id, name); err != nil {
		return internal.Category{}, classify(err)
	}
	return d.GetCategory(id)
}

func (d *DB) RenameCategory(id, name string) error {
	result, err := d.conn.Exec(`UPDATE categories SET name = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, name, id)
	if err != nil {
		return classify(err)
	}
	return requireAffected(result)
}

func (d *DB) DeleteCategory(id string) error {
	result, err := d.conn.Exec(`DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return classify(err)
	}
	return requireAffected(result)
}

func (d *DB) GetCategory(id string) (internal.Category, error) {
	var c internal.Category
	err := d.conn.QueryRow(`SELECT id, name, createdAt, updatedAt FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.Category{}, ErrNotFound
	}
	return c, err
}

func (d *DB) ListCategories() ([]internal.Category, error) {
	rows, err := d.conn.Query(`SELECT id, name, createdAt, updatedAt FROM categories ORDER BY createdAt ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Category
	for rows.Next() {
		var c internal.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Products

const productColumns = `id, name, description, donationType, targetAmount, currentAmount, isFulfilled, isPublished, imagePath, createdAt, updatedAt`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (internal.Product, error) {
	var p internal.Product
	var donationType string
	var targetAmount sql.NullInt64
	var imagePath sql.NullString
	var fulfilled, published int
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &donationType, &targetAmount, &p.CurrentAmount,
		&fulfilled, &published, &imagePath, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return internal.Product{}, err
	}
	p.DonationType = internal.DonationType(donationType)
	if targetAmount.Valid {
		v := targetAmount.Int64
		p.TargetAmount = &v
	}
	if imagePath.Valid {
		v := imagePath.String
		p.ImagePath = &v
	}
	p.IsFulfilled = fulfilled == 1
	p.IsPublished = published == 1
	return p, nil
}

func linkCategories(tx *sql.Tx, productID string, categoryIDs []string) error {
	if _, err := tx.Exec(`DELETE FROM product_categories WHERE productId = ?`, productID); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO product_categories (productId, categoryId) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range categoryIDs {
		if _, err := stmt.Exec(productID, id); err != nil {
			return classify(err)
		}
	}
	return nil
}

// InsertProduct writes the product and its category links in one transaction.
func (d *DB) InsertProduct(p internal.Product) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
INSERT INTO products (id, name, description, donationType, targetAmount, currentAmount, isFulfilled, isPublished, imagePath)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, p.ID, p.Name, p.Description, string(p.DonationType), p.TargetAmount, p.CurrentAmount,
		boolInt(p.IsFulfilled), boolInt(p.IsPublished), p.ImagePath); err != nil {
		return classify(err)
	}
	if err := linkCategories(tx, p.ID, p.CategoryIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateProduct replaces the editable fields and the category links.
// currentAmount and isFulfilled are owned by donations and left untouched.
func (d *DB) UpdateProduct(p internal.Product) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(`
UPDATE products SET
  name = ?, description = ?, donationType = ?, targetAmount = ?, isPublished = ?, imagePath = ?,
  updatedAt = CURRENT_TIMESTAMP
WHERE id = ?
`, p.Name, p.Description, string(p.DonationType), p.TargetAmount, boolInt(p.IsPublished), p.ImagePath, p.ID)
	if err != nil {
		return classify(err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	if err := linkCategories(tx, p.ID, p.CategoryIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) SetProductPublished(id string, published bool) error {
	result, err := d.conn.Exec(`UPDATE products SET isPublished = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, boolInt(published), id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (d *DB) DeleteProduct(id string) error {
	result, err := d.conn.Exec(`DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return classify(err)
	}
	return requireAffected(result)
}

func (d *DB) GetProduct(id string) (internal.Product, error) {
	p, err := scanProduct(d.conn.QueryRow(`SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return internal.Product{}, ErrNotFound
	}
	if err != nil {
		return internal.Product{}, err
	}
	ids, err := d.categoryIDs(p.ID)
	if err != nil {
		return internal.Product{}, err
	}
	p.CategoryIDs = ids
	return p, nil
}

func (d *DB) ListProducts(publishedOnly bool) ([]internal.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if publishedOnly {
		query += ` WHERE isPublished = 1`
	}
	query += ` ORDER BY createdAt DESC, rowid DESC`
	return d.queryProducts(query)
}

func (d *DB) ListProductsByCategory(categoryID string, publishedOnly bool) ([]internal.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
WHERE id IN (SELECT productId FROM product_categories WHERE categoryId = ?)`
	if publishedOnly {
		query += ` AND isPublished = 1`
	}
	query += ` ORDER BY createdAt DESC, rowid DESC`
	return d.queryProducts(query, categoryID)
}

func (d *DB) queryProducts(query string, args ...any) ([]internal.Product, error) {
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}

	var out []internal.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	links, err := d.allCategoryLinks()
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].CategoryIDs = links[out[i].ID]
	}
	return out, nil
}

func (d *DB) categoryIDs(productID string) ([]string, error) {
	rows, err := d.conn.Query(`SELECT categoryId FROM product_categories WHERE productId = ? ORDER BY rowid`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (d *DB) allCategoryLinks() (map[string][]string, error) {
	rows, err := d.conn.Query(`SELECT productId, categoryId FROM product_categories ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var productID, categoryID string
		if err := rows.Scan(&productID, &categoryID); err != nil {
			return nil, err
		}
		out[productID] = append(out[productID], categoryID)
	}
	return out, rows.Err()
}

// Donations

// ApplyDonation loads the product, lets check veto the donation, then
// inserts it and updates the product totals, all in one transaction.
// Monetary donations add to currentAmount; physical pledges mark the
// product fulfilled.
func (d *DB) ApplyDonation(donation internal.Donation, check func(internal.Product) error) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	product, err := scanProduct(tx.QueryRow(`SELECT `+productColumns+` FROM products WHERE id = ?`, donation.ProductID))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if check != nil {
		if err := check(product); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`
INSERT INTO donations (id, productId, donationType, amount, donorName, donorPhone, donorEmail, receiptPath)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, donation.ID, donation.ProductID, string(donation.DonationType), donation.Amount,
		donation.DonorName, donation.DonorPhone, donation.DonorEmail, donation.ReceiptPath); err != nil {
		return classify(err)
	}

	switch donation.DonationType {
	case internal.DonationMonetary:
		var amount int64
		if donation.Amount != nil {
			amount = *donation.Amount
		}
		_, err = tx.Exec(`UPDATE products SET currentAmount = currentAmount + ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, amount, product.ID)
	case internal.DonationPhysical:
		_, err = tx.Exec(`UPDATE products SET isFulfilled = 1, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, product.ID)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) ListDonations(productID string) ([]internal.Donation, error) {
	rows, err := d.conn.Query(`
SELECT id, productId, donationType, amount, donorName, donorPhone, donorEmail, receiptPath, createdAt
FROM donations WHERE productId = ? ORDER BY createdAt ASC, rowid ASC
`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Donation
	for rows.Next() {
		var dn internal.Donation
		var donationType string
		var amount sql.NullInt64
		var name, phone, email, receipt sql.NullString
		if err := rows.Scan(&dn.ID, &dn.ProductID, &donationType, &amount, &name, &phone, &email, &receipt, &dn.CreatedAt); err != nil {
			return nil, err
		}
		dn.DonationType = internal.DonationType(donationType)
		if amount.Valid {
			v := amount.Int64
			dn.Amount = &v
		}
		dn.DonorName = nullString(name)
		dn.DonorPhone = nullString(phone)
		dn.DonorEmail = nullString(email)
		dn.ReceiptPath = nullString(receipt)
		out = append(out, dn)
	}
	return out, rows.Err()
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func (d *DB) DashboardStats() (internal.DashboardStats, error) {
	var stats internal.DashboardStats
	err := d.conn.QueryRow(`
SELECT
  COALESCE((SELECT SUM(amount) FROM donations WHERE donationType = 'monetary'), 0),
  (SELECT COUNT(*) FROM products WHERE donationType = 'physical' AND isFulfilled = 1),
  (SELECT COUNT(*) FROM products WHERE donationType = 'physical' AND isFulfilled = 0),
  (SELECT COUNT(*) FROM products WHERE isPublished = 1)
`).Scan(&stats.TotalMonetary, &stats.PhysicalFulfilled, &stats.PhysicalPending, &stats.PublishedCount)
	return stats, err
}

// PIX settings

func (d *DB) GetPixSettings() (internal.PixSettings, error) {
	var s internal.PixSettings
	var qr, copia sql.NullString
	err := d.conn.QueryRow(`SELECT qrCodeImagePath, copiaECola, updatedAt FROM pix_settings WHERE id = 1`).Scan(&qr, &copia, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.PixSettings{}, nil
	}
	if err != nil {
		return internal.PixSettings{}, err
	}
	s.QRCodeImagePath = nullString(qr)
	s.CopiaECola = nullString(copia)
	return s, nil
}

func (d *DB) UpsertPixSettings(qrCodeImagePath, copiaECola *string) error {
	_, err := d.conn.Exec(`
INSERT INTO pix_settings (id, qrCodeImagePath, copiaECola) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  qrCodeImagePath = excluded.qrCodeImagePath,
  copiaECola = excluded.copiaECola,
  updatedAt = CURRENT_TIMESTAMP
`, qrCodeImagePath, copiaECola)
	return err
}

// Receipts

const receiptColumns = `id, provider, messageId, subject, sender, receivedAt, hash, storagePath, detectedAmount, status`

func scanReceipt(s rowScanner) (internal.ReceiptRow, error) {
	var r internal.ReceiptRow
	var subject, sender, receivedAt, storagePath sql.NullString
	var amount sql.NullInt64
	if err := s.Scan(&r.ID, &r.Provider, &r.MessageID, &subject, &sender, &receivedAt, &r.Hash, &storagePath, &amount, &r.Status); err != nil {
		return internal.ReceiptRow{}, err
	}
	r.Subject = subject.String
	r.Sender = sender.String
	r.ReceivedAt = receivedAt.String
	r.StoragePath = nullString(storagePath)
	if amount.Valid {
		v := amount.Int64
		r.DetectedAmount = &v
	}
	return r, nil
}

// UpsertReceipt inserts a receipt or refreshes the mailbox fields of an
// existing one. The reconciliation status of an existing row is kept.
func (d *DB) UpsertReceipt(r internal.ReceiptRow) (internal.ReceiptRow, error) {
	status := r.Status
	if status == "" {
		status = "pending"
	}
	_, err := d.conn.Exec(`
INSERT INTO receipts (provider, messageId, subject, sender, receivedAt, hash, storagePath, detectedAmount, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject = excluded.subject,
  sender = excluded.sender,
  receivedAt = excluded.receivedAt,
  hash = excluded.hash,
  storagePath = COALESCE(excluded.storagePath, receipts.storagePath),
  detectedAmount = COALESCE(excluded.detectedAmount, receipts.detectedAmount),
  updatedAt = CURRENT_TIMESTAMP
`, r.Provider, r.MessageID, r.Subject, r.Sender, r.ReceivedAt, r.Hash, r.StoragePath, r.DetectedAmount, status)
	if err != nil {
		return internal.ReceiptRow{}, err
	}

	row, err := d.GetReceipt(r.Provider, r.MessageID)
	if err != nil {
		return internal.ReceiptRow{}, err
	}
	if row == nil {
		return internal.ReceiptRow{}, errors.New("failed to upsert receipt")
	}
	return *row, nil
}

func (d *DB) GetReceipt(provider, messageID string) (*internal.ReceiptRow, error) {
	row, err := scanReceipt(d.conn.QueryRow(`SELECT `+receiptColumns+` FROM receipts WHERE provider = ? AND messageId = ?`, provider, messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListReceiptsByStatus(status string, limit int) ([]internal.ReceiptRow, error) {
	rows, err := d.conn.Query(`SELECT `+receiptColumns+` FROM receipts WHERE status = ? ORDER BY receivedAt ASC, id ASC LIMIT ?`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ReceiptRow
	for rows.Next() {
		row, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateReceiptStatus(id int, status string) error {
	result, err := d.conn.Exec(`UPDATE receipts SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// Import runs

func (d *DB) InsertImportRun(run internal.ImportRun) error {
	_, err := d.conn.Exec(`INSERT INTO import_runs (id, total, succeeded, failed, reportPath) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Total, run.Succeeded, run.Failed, run.ReportPath)
	return classify(err)
}

func (d *DB) SetImportRunReport(id, reportPath string) error {
	result, err := d.conn.Exec(`UPDATE import_runs SET reportPath = ? WHERE id = ?`, reportPath, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (d *DB) ListImportRuns(limit int) ([]internal.ImportRun, error) {
	rows, err := d.conn.Query(`SELECT id, total, succeeded, failed, reportPath, createdAt FROM import_runs ORDER BY createdAt DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ImportRun
	for rows.Next() {
		var run internal.ImportRun
		var report sql.NullString
		if err := rows.Scan(&run.ID, &run.Total, &run.Succeeded, &run.Failed, &report, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.ReportPath = nullString(report)
		out = append(out, run)
	}
	return out, rows.Err()
}

// Metadata

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
