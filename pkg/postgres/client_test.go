package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestClient(t *testing.T) *Client {
	t.Helper()
	dsn := os.Getenv("RF_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RF_TEST_POSTGRES_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	if err := db.Ping(); err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	// Temp tables are per connection.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return &Client{DB: db}
}

func TestInTx_CommitsAndRollsBack(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()
	_, err := c.DB.ExecContext(ctx, `CREATE TEMP TABLE tx_rows (n INT)`)
	require.NoError(t, err)

	require.NoError(t, c.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO tx_rows (n) VALUES (1)`)
		return err
	}))

	boom := errors.New("boom")
	err = c.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tx_rows (n) VALUES (2)`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, c.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tx_rows`).Scan(&count))
	assert.Equal(t, 1, count)
}
