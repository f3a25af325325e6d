package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var couponColumns = []string{
	"id", "code", "provider_id", "plan_id", "discount_type", "amount", "description",
	"nb_attempts", "starts_at", "ends_at", "created_at", "nb_uses",
}

func newStore(t *testing.T, now time.Time) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := NewStore(sqlx.NewDb(db, "sqlmock"))
	s.now = func() time.Time { return now }
	return s, mock
}

func TestCreate_DuplicateCodeIsFieldError(t *testing.T) {
	s, mock := newStore(t, t0)
	mock.ExpectExec(`INSERT INTO coupon`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '7-DIS100'"})

	err := s.Create(context.Background(), dis100())

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "A coupon with this code already exists.", ve.Fields["code"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DefaultsStartAndSetsID(t *testing.T) {
	s, mock := newStore(t, t0)
	mock.ExpectExec(`INSERT INTO coupon`).
		WithArgs("DIS100", uint64(7), nil, "percentage", int64(10000), "", nil, t0, nil).
		WillReturnResult(sqlmock.NewResult(9, 1))

	c := dis100()
	c.StartsAt = time.Time{}
	require.NoError(t, s.Create(context.Background(), c))
	assert.Equal(t, uint64(9), c.ID)
	assert.Equal(t, t0, c.StartsAt)
}

func expectLock(mock sqlmock.Sqlmock, id uint64) {
	mock.ExpectQuery(`SELECT id FROM coupon WHERE id = \? FOR UPDATE`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
}

func TestDelete_WithoutUsesRemovesRow(t *testing.T) {
	s, mock := newStore(t, t0)
	mock.ExpectBegin()
	expectLock(mock, 9)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM coupon_use WHERE coupon_id = \?`).WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`DELETE FROM coupon WHERE id = \?`).WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c := dis100()
	c.ID = 9
	outcome, err := s.Delete(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, Deleted, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_WithUsesDeactivates(t *testing.T) {
	now := t0.Add(48 * time.Hour)
	s, mock := newStore(t, now)
	mock.ExpectBegin()
	expectLock(mock, 9)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM coupon_use`).WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(`UPDATE coupon SET ends_at = \? WHERE id = \?`).WithArgs(now, uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c := dis100()
	c.ID = 9
	outcome, err := s.Delete(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, Deactivated, outcome)
	require.NotNil(t, c.EndsAt)
	assert.Equal(t, 3, c.Uses)
	assert.False(t, IsValid(c, basic, now.Add(time.Nanosecond)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_AlreadyEndedKeepsEndsAt(t *testing.T) {
	now := t0.Add(48 * time.Hour)
	s, mock := newStore(t, now)
	mock.ExpectBegin()
	expectLock(mock, 9)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM coupon_use`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectCommit()

	ended := t0.Add(time.Hour)
	c := dis100()
	c.ID, c.EndsAt = 9, &ended
	outcome, err := s.Delete(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, Deactivated, outcome)
	assert.Equal(t, ended, *c.EndsAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_RowGoneIsNotFound(t *testing.T) {
	s, mock := newStore(t, t0)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM coupon WHERE id = \? FOR UPDATE`).WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	c := dis100()
	c.ID = 9
	_, err := s.Delete(context.Background(), c)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	s, mock := newStore(t, t0)
	mock.ExpectQuery(`FROM coupon c\s+WHERE c.provider_id = \? AND c.code = \?`).
		WithArgs(uint64(7), "NOPE").
		WillReturnRows(sqlmock.NewRows(couponColumns))

	_, err := s.Get(context.Background(), 7, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedeem_RecordsUse(t *testing.T) {
	now := t0.Add(time.Hour)
	s, mock := newStore(t, now)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(uint64(7), "HALF").
		WillReturnRows(sqlmock.NewRows(couponColumns).
			AddRow(4, "HALF", 7, nil, "percentage", 5000, "", 10, t0, nil, t0, 2))
	mock.ExpectExec(`INSERT INTO coupon_use`).
		WithArgs(uint64(4), uint64(55), uint64(2), now, "203.0.113.9", "CA").
		WillReturnResult(sqlmock.NewResult(31, 1))
	mock.ExpectCommit()

	c, price, err := s.Redeem(context.Background(), "HALF", premium,
		Use{SubscriberID: 55, ClientIP: "203.0.113.9", Country: "CA"})
	require.NoError(t, err)
	assert.Equal(t, int64(4950), price)
	assert.Equal(t, 3, c.Uses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeem_ExhaustedRollsBack(t *testing.T) {
	s, mock := newStore(t, t0.Add(time.Hour))
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(couponColumns).
			AddRow(4, "ONCE", 7, nil, "currency", 100, "", 1, t0, nil, t0, 1))
	mock.ExpectRollback()

	_, _, err := s.Redeem(context.Background(), "ONCE", premium, Use{SubscriberID: 55})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
