package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axelsjewelry/storefront/internal/backend"
)

func TestSelectBuildsFilteredQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM admin_users WHERE email = $1 AND status = $2 ORDER BY created_at DESC LIMIT 1`)).
		WithArgs("mod@axels.com", "active").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role"}).
			AddRow("a-1", []byte("mod@axels.com"), "Moderator"))

	store := NewStore(db)
	rows, err := store.Select(context.Background(), "admin_users",
		backend.NewQuery().Eq("email", "mod@axels.com").Eq("status", "active").OrderBy("created_at", true).Limit(1))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// []byte columns come back as strings so records stay JSON-friendly.
	assert.Equal(t, "mod@axels.com", rows[0]["email"])
	assert.Equal(t, "Moderator", rows[0]["role"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectInFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM product_images WHERE product_id = ANY($1) ORDER BY display_order ASC`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id"}).
			AddRow("i-1", "p-1").
			AddRow("i-2", "p-2"))

	store := NewStore(db)
	rows, err := store.Select(context.Background(), "product_images",
		backend.NewQuery().In("product_id", []string{"p-1", "p-2"}).OrderBy("display_order", false))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReturnsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Columns are sorted, so the statement is deterministic.
	mock.ExpectQuery(regexp.QuoteMeta(
		`INSERT INTO wishlists (product_id, user_id) VALUES ($1, $2) RETURNING *`)).
		WithArgs("p-1", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "product_id"}).
			AddRow("w-1", "u-1", "p-1"))

	store := NewStore(db)
	rec, err := store.Insert(context.Background(), "wishlists",
		backend.Record{"user_id": "u-1", "product_id": "p-1"})
	require.NoError(t, err)
	assert.Equal(t, "w-1", rec["id"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEncodesStructuredValues(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(
		`INSERT INTO activity_logs (action, details, user_id) VALUES ($1, $2, $3) RETURNING *`)).
		WithArgs("order_status_updated", []byte(`{"order_id":"o-1"}`), "a-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("log-1"))

	store := NewStore(db)
	_, err = store.Insert(context.Background(), "activity_logs", backend.Record{
		"user_id": "a-1",
		"action":  "order_status_updated",
		"details": map[string]any{"order_id": "o-1"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBuildsSetAndWhere(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(
		`UPDATE admin_users SET auth_user_id = $1 WHERE id = $2 RETURNING *`)).
		WithArgs("auth-9", "a-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "auth_user_id"}).AddRow("a-1", "auth-9"))

	store := NewStore(db)
	rows, err := store.Update(context.Background(), "admin_users",
		backend.NewQuery().Eq("id", "a-1"),
		backend.Record{"auth_user_id": "auth-9"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "auth-9", rows[0]["auth_user_id"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM wishlists WHERE product_id = $1 AND user_id = $2`)).
		WithArgs("p-1", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	err = store.Delete(context.Background(), "wishlists",
		backend.NewQuery().Eq("product_id", "p-1").Eq("user_id", "u-1"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectsBadIdentifiers(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	_, err = store.Select(context.Background(), "products; DROP TABLE products", backend.NewQuery())
	require.Error(t, err)

	_, err = store.Select(context.Background(), "products", backend.NewQuery().Eq("id = '' OR 1=1 --", "x"))
	require.Error(t, err)
}
