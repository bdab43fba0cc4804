package gormstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/internal/store/memstore"
)

var pgconnError = pgconn.PgError{
	Code:    "23505",
	Message: `duplicate key value violates unique constraint "uq_authorization_user_client_scope"`,
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	store, err := New(db)
	require.NoError(t, err)
	return store, mock
}

func TestDeleteRolePermissions_SingleBatchedStatement(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "role_permission" WHERE role_id = $1 AND permission_id IN ($2,$3,$4)`)).
		WithArgs(int64(9), int64(11), int64(12), int64(13)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	var deleted int64
	err := store.WithinTx(context.Background(), func(tx authz.Tx) error {
		var err error
		deleted, err = tx.DeleteRolePermissions(9, []int64{11, 12, 13})
		return err
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindRole_LocksRowForUpdate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "role" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "admin"))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx authz.Tx) error {
		role, err := tx.FindRole(1, true)
		require.Equal(t, "admin", role.Name)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAuthorization_UniqueViolationRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "authorization"`)).
		WillReturnError(&pgconnError)
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx authz.Tx) error {
		return tx.InsertAuthorization(&authz.Authorization{UserID: 42, ClientID: 7, ScopeID: 3})
	})
	require.ErrorIs(t, err, authz.ErrUniqueViolation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate_TransactionConflicts(t *testing.T) {
	conflicts := []error{
		&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"},
		&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"},
		&pgconn.PgError{Code: "40001", Message: "could not serialize access"},
		&pgconn.PgError{Code: "40P01", Message: "deadlock detected"},
		errors.New("database is locked (5) (SQLITE_BUSY)"),
	}
	for _, err := range conflicts {
		require.ErrorIs(t, translate(err), authz.ErrTransactionConflict, err.Error())
	}

	other := &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}
	require.NotErrorIs(t, translate(other), authz.ErrTransactionConflict)
	require.NotErrorIs(t, translate(other), authz.ErrUniqueViolation)
}

func TestGrant_RetriesAfterDeadlockOnInsert(t *testing.T) {
	store, mock := newMockStore(t)
	directory := memstore.NewDirectory().AddUser(42).AddClient(7).AddScope(3, 7)
	engine, err := authz.NewEngine(store, directory)
	require.NoError(t, err)

	selectAuthorization := `SELECT \* FROM "authorization" WHERE .*FOR UPDATE`
	columns := []string{"id", "user_id", "client_id", "scope_id", "created_time", "updated_time", "removed_time", "status"}

	mock.ExpectBegin()
	mock.ExpectQuery(selectAuthorization).WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "authorization"`)).
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock; try restarting transaction"})
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(selectAuthorization).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(15, 42, 7, 3, time.Now(), nil, nil, 0))
	mock.ExpectCommit()

	auth, err := engine.Grant(context.Background(), 42, 7, 3)
	require.NoError(t, err)
	require.Equal(t, int64(15), auth.ID)
	require.Equal(t, authz.StatusActive, auth.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
