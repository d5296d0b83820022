package repository

import (
	"claimed-world/internal/biddingerrors"
	model "claimed-world/internal/models"
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"
)

//go:embed schema.sql
var schemaSQL string

const bidColumns = `id, item_code, bidder_id, amount, created_at, is_winning, custom_message, custom_color, confirmation_id`

const itemColumns = `code, name, current_amount, current_bidder_id, current_bid_id, custom_message, custom_color, version`

// SQLStore is a database/sql implementation of AuctionDB for PostgreSQL and SQLite.
// Per-item consistency relies on a compare-and-swap of items.version inside each commit
// transaction, so several processes may share one database.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQLStore opens the database, verifies the connection and applies the schema.
func OpenSQLStore(ctx context.Context, driverName, dsn string) (*SQLStore, error) {
	d, err := dialectFor(driverName)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w: %v", biddingerrors.ErrStorageUnavailable, err)
	}

	db.SetMaxOpenConns(d.maxOpenConns)
	db.SetMaxIdleConns(d.maxOpenConns)
	if d.driver == DriverPostgres {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	for _, pragma := range d.pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLStore{db: db, dialect: d}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the ledger tables and indexes. Safe to run repeatedly.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// wrap classifies driver errors so the settlement retry policy can tell transient failures apart.
func (s *SQLStore) wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case s.dialect.isUnique(err):
		return fmt.Errorf("%s: %w: %v", op, biddingerrors.ErrVersionConflict, err)
	case s.dialect.isTransient(err):
		return fmt.Errorf("%s: %w: %v", op, biddingerrors.ErrStorageUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// SeedItems inserts items that do not exist yet
func (s *SQLStore) SeedItems(ctx context.Context, items []model.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap("seed items", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		if item.Code == "" {
			return fmt.Errorf("seed items: %w - empty item code", biddingerrors.ErrInvalidBid)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO items (code, name) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`,
			item.Code, item.Name,
		); err != nil {
			return s.wrap("seed item "+item.Code, err)
		}
	}
	return s.wrap("seed items", tx.Commit())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (model.Item, error) {
	var item model.Item
	var color int64
	err := row.Scan(&item.Code, &item.Name, &item.CurrentAmount, &item.CurrentBidderID,
		&item.CurrentBidID, &item.Customization.Message, &color, &item.Version)
	item.Customization.Color = model.Color(color)
	return item, err
}

func scanBid(row rowScanner) (model.Bid, error) {
	var bid model.Bid
	var createdAt, color int64
	err := row.Scan(&bid.BidID, &bid.ItemCode, &bid.BidderID, &bid.Amount, &createdAt,
		&bid.IsWinning, &bid.Customization.Message, &color, &bid.ConfirmationID)
	bid.CreatedAt = time.UnixMicro(createdAt).UTC()
	bid.Customization.Color = model.Color(color)
	return bid, err
}

func (s *SQLStore) queryBids(ctx context.Context, op, query string, args ...any) ([]model.Bid, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.wrap(op, err)
	}
	defer rows.Close()

	var bids []model.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, s.wrap(op, err)
		}
		bids = append(bids, bid)
	}
	return bids, s.wrap(op, rows.Err())
}

// GetItem returns an item with its winner projection
func (s *SQLStore) GetItem(ctx context.Context, itemCode string) (model.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE code = $1`, itemCode))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, fmt.Errorf("get item %s: %w", itemCode, biddingerrors.ErrItemNotFound)
	}
	return item, s.wrap("get item "+itemCode, err)
}

// ListItems returns all items ordered by current amount, highest first
func (s *SQLStore) ListItems(ctx context.Context) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY current_amount DESC, code ASC`)
	if err != nil {
		return nil, s.wrap("list items", err)
	}
	defer rows.Close()

	items := make([]model.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, s.wrap("list items", err)
		}
		items = append(items, item)
	}
	return items, s.wrap("list items", rows.Err())
}

// GetConfirmation returns the recorded outcome of a confirmation id
func (s *SQLStore) GetConfirmation(ctx context.Context, confirmationID string) (model.Confirmation, error) {
	var c model.Confirmation
	var outcome string
	var processedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, item_code, bidder_id, amount, outcome, reason, bid_id, processed_at
		FROM confirmations WHERE id = $1`, confirmationID,
	).Scan(&c.ConfirmationID, &c.ItemCode, &c.BidderID, &c.Amount, &outcome, &c.Reason, &c.BidID, &processedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Confirmation{}, fmt.Errorf("get confirmation %s: %w", confirmationID, biddingerrors.ErrConfirmationNotFound)
	}
	if err != nil {
		return model.Confirmation{}, s.wrap("get confirmation "+confirmationID, err)
	}
	c.Outcome = model.Outcome(outcome)
	c.ProcessedAt = time.UnixMicro(processedAt).UTC()
	return c, nil
}

func insertConfirmation(ctx context.Context, tx *sql.Tx, c model.Confirmation) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO confirmations (id, item_code, bidder_id, amount, outcome, reason, bid_id, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ConfirmationID, c.ItemCode, c.BidderID, c.Amount, string(c.Outcome), c.Reason, c.BidID, c.ProcessedAt.UnixMicro(),
	)
	return err
}

// CommitBid atomically flips the previous winner, inserts the new winning bid, advances the item
// projection and records the confirmation. A stale ExpectedVersion yields ErrVersionConflict.
func (s *SQLStore) CommitBid(ctx context.Context, commit model.Commit) error {
	bid := commit.Bid
	op := fmt.Sprintf("commit bid for item %s", bid.ItemCode)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap(op, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE items
		SET current_amount = $1,
		    current_bidder_id = $2,
		    current_bid_id = $3,
		    custom_message = $4,
		    custom_color = $5,
		    version = version + 1
		WHERE code = $6 AND version = $7 AND current_bid_id = $8`,
		bid.Amount, bid.BidderID, bid.BidID, bid.Customization.Message, int64(bid.Customization.Color),
		bid.ItemCode, commit.ExpectedVersion, commit.PreviousBidID,
	)
	if err != nil {
		return s.wrap(op, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return s.wrap(op, err)
	} else if n == 0 {
		if _, err := s.getItemTx(ctx, tx, bid.ItemCode); err != nil {
			return err
		}
		return fmt.Errorf("%s at version %d: %w", op, commit.ExpectedVersion, biddingerrors.ErrVersionConflict)
	}

	if commit.PreviousBidID != "" {
		res, err := tx.ExecContext(ctx,
			`UPDATE bids SET is_winning = FALSE WHERE id = $1 AND is_winning = TRUE`, commit.PreviousBidID)
		if err != nil {
			return s.wrap(op, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return s.wrap(op, err)
		} else if n != 1 {
			return fmt.Errorf("%s: previous winner %s already superseded: %w", op, commit.PreviousBidID, biddingerrors.ErrVersionConflict)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bids (`+bidColumns+`)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7, $8)`,
		bid.BidID, bid.ItemCode, bid.BidderID, bid.Amount, bid.CreatedAt.UnixMicro(),
		bid.Customization.Message, int64(bid.Customization.Color), bid.ConfirmationID,
	); err != nil {
		return s.wrap(op, err)
	}

	if err := insertConfirmation(ctx, tx, commit.Confirmation); err != nil {
		return s.wrap(op, err)
	}

	return s.wrap(op, tx.Commit())
}

func (s *SQLStore) getItemTx(ctx context.Context, tx *sql.Tx, itemCode string) (model.Item, error) {
	item, err := scanItem(tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE code = $1`, itemCode))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, fmt.Errorf("get item %s: %w", itemCode, biddingerrors.ErrItemNotFound)
	}
	return item, s.wrap("get item "+itemCode, err)
}

// RecordDiscard stores a discarded confirmation so replays return the same outcome
func (s *SQLStore) RecordDiscard(ctx context.Context, c model.Confirmation) error {
	op := "record discard " + c.ConfirmationID
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap(op, err)
	}
	defer tx.Rollback()

	if err := insertConfirmation(ctx, tx, c); err != nil {
		return s.wrap(op, err)
	}
	return s.wrap(op, tx.Commit())
}

// GetBid returns a single bid by id
func (s *SQLStore) GetBid(ctx context.Context, bidID string) (model.Bid, error) {
	bid, err := scanBid(s.db.QueryRowContext(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, bidID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", bidID, biddingerrors.ErrBidNotFound)
	}
	return bid, s.wrap("get bid "+bidID, err)
}

// GetBidsByItem returns bids for an item, highest amount first. A limit <= 0 returns all bids.
func (s *SQLStore) GetBidsByItem(ctx context.Context, itemCode string, limit int) ([]model.Bid, error) {
	op := "get bids for item " + itemCode
	query := `SELECT ` + bidColumns + ` FROM bids WHERE item_code = $1 ORDER BY amount DESC`

	var bids []model.Bid
	var err error
	if limit > 0 {
		bids, err = s.queryBids(ctx, op, query+` LIMIT $2`, itemCode, limit)
	} else {
		bids, err = s.queryBids(ctx, op, query, itemCode)
	}
	if err != nil {
		return nil, err
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("%s: %w", op, biddingerrors.ErrNoBids)
	}
	return bids, nil
}

// GetWinningBid returns the bid flagged as winning for an item, read from the ledger rather than the projection
func (s *SQLStore) GetWinningBid(ctx context.Context, itemCode string) (model.Bid, error) {
	bid, err := scanBid(s.db.QueryRowContext(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE item_code = $1 AND is_winning = TRUE`, itemCode))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("get winning bid for item %s: %w", itemCode, biddingerrors.ErrNoBids)
	}
	return bid, s.wrap("get winning bid for item "+itemCode, err)
}

// GetBidsByUser returns all bids of a user, newest first
func (s *SQLStore) GetBidsByUser(ctx context.Context, userID string) ([]model.Bid, error) {
	op := "get bids for user " + userID
	bids, err := s.queryBids(ctx, op,
		`SELECT `+bidColumns+` FROM bids WHERE bidder_id = $1 ORDER BY created_at DESC, amount DESC`, userID)
	if err != nil {
		return nil, err
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("%s: %w", op, biddingerrors.ErrUserNoBids)
	}
	return bids, nil
}

// GetItemsByUser returns the items a user currently owns
func (s *SQLStore) GetItemsByUser(ctx context.Context, userID string) ([]model.Item, error) {
	op := "get items for user " + userID

	var hasBids bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM bids WHERE bidder_id = $1)`, userID,
	).Scan(&hasBids); err != nil {
		return nil, s.wrap(op, err)
	}
	if !hasBids {
		return nil, fmt.Errorf("%s: %w", op, biddingerrors.ErrUserNoBids)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE current_bidder_id = $1 ORDER BY code ASC`, userID)
	if err != nil {
		return nil, s.wrap(op, err)
	}
	defer rows.Close()

	items := make([]model.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, s.wrap(op, err)
		}
		items = append(items, item)
	}
	return items, s.wrap(op, rows.Err())
}

// UpdateCustomization changes message and color of the caller's own winning bid and mirrors it on the item
func (s *SQLStore) UpdateCustomization(ctx context.Context, bidID, bidderID string, c model.Customization) (model.Bid, error) {
	op := "update customization of bid " + bidID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Bid{}, s.wrap(op, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE bids SET custom_message = $1, custom_color = $2
		WHERE id = $3 AND bidder_id = $4 AND is_winning = TRUE`,
		c.Message, int64(c.Color), bidID, bidderID,
	)
	if err != nil {
		return model.Bid{}, s.wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Bid{}, s.wrap(op, err)
	}
	if n == 0 {
		if _, err := scanBid(tx.QueryRowContext(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, bidID)); errors.Is(err, sql.ErrNoRows) {
			return model.Bid{}, fmt.Errorf("%s: %w", op, biddingerrors.ErrBidNotFound)
		} else if err != nil {
			return model.Bid{}, s.wrap(op, err)
		}
		return model.Bid{}, fmt.Errorf("%s: %w", op, biddingerrors.ErrNotAuthorized)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE items SET custom_message = $1, custom_color = $2 WHERE current_bid_id = $3`,
		c.Message, int64(c.Color), bidID,
	); err != nil {
		return model.Bid{}, s.wrap(op, err)
	}

	bid, err := scanBid(tx.QueryRowContext(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, bidID))
	if err != nil {
		return model.Bid{}, s.wrap(op, err)
	}
	return bid, s.wrap(op, tx.Commit())
}

// TopBidders aggregates the ledger per bidder in the database
func (s *SQLStore) TopBidders(ctx context.Context, limit int) ([]model.BidderRanking, error) {
	query := `
		SELECT bidder_id,
		       SUM(amount) AS total_spend,
		       SUM(CASE WHEN is_winning THEN 1 ELSE 0 END) AS items_owned,
		       COUNT(DISTINCT item_code) AS item_count,
		       MAX(created_at) AS reached_at
		FROM bids
		GROUP BY bidder_id
		ORDER BY total_spend DESC, reached_at ASC, bidder_id ASC`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT $1`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, s.wrap("top bidders", err)
	}
	defer rows.Close()

	rankings := make([]model.BidderRanking, 0)
	for rows.Next() {
		var r model.BidderRanking
		var reachedAt int64
		if err := rows.Scan(&r.BidderID, &r.TotalSpend, &r.ItemsOwned, &r.ItemCount, &reachedAt); err != nil {
			return nil, s.wrap("top bidders", err)
		}
		r.ReachedAt = time.UnixMicro(reachedAt).UTC()
		rankings = append(rankings, r)
	}
	return rankings, s.wrap("top bidders", rows.Err())
}
