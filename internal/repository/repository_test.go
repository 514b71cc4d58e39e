package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"letterdesk/internal/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	return gdb, mock
}

func TestUserRepository_FindByEmail(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewUserRepository(gdb)

	rows := sqlmock.NewRows([]string{"id", "name", "email", "role"}).
		AddRow(3, "John Doe", "john@example.edu", "staff")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users` WHERE email = ?")).
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "john@example.edu")
	require.NoError(t, err)
	assert.Equal(t, uint(3), user.ID)
	assert.Equal(t, model.RoleStaff, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail_NotFound(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewUserRepository(gdb)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users` WHERE email = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByEmail(context.Background(), "nobody@example.edu")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_CreateDuplicateTranslates(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewUserRepository(gdb)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `users`")).
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'a@x.com' for key 'idx_users_email'"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &model.User{Name: "A", Email: "a@x.com", Role: model.RoleStaff})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateFields(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewUserRepository(gdb)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `users` SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateFields(context.Background(), 3, map[string]interface{}{"role": model.RoleAdmin})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateFields_Missing(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewUserRepository(gdb)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `users` SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `users` WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := repo.UpdateFields(context.Background(), 99, map[string]interface{}{"name": "X"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_Delete_NotFound(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewUserRepository(gdb)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `users` WHERE `users`.`id` = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), 5)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOfficeRepository_List(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewOfficeRepository(gdb)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `offices` ORDER BY name")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "code"}).
			AddRow(1, "Main Campus", "MAIN").
			AddRow(2, "North Campus", "NORTH"))

	offices, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, offices, 2)
	assert.Equal(t, "NORTH", offices[1].Code)
}

func TestLetterRepository_ListFiltersByCreator(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewLetterRepository(gdb)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `letters` WHERE created_by = ? AND status = ?")).
		WithArgs(uint(7), model.LetterPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reference_no", "status", "created_by", "data", "created_at"}).
			AddRow(id.String(), "LTR-20260101-ABCDEF12", "pending", 7, `{"name":"Ada"}`, time.Now()))

	letters, err := repo.List(context.Background(), LetterFilter{CreatedBy: 7, Status: model.LetterPending})
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, id, letters[0].ID)
	assert.Equal(t, "Ada", letters[0].Data["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepository_CreateBatchEmpty(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewActivityRepository(gdb)

	require.NoError(t, repo.CreateBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
