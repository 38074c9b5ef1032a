package gorm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dgonzalezf/cdcbox/outbox"
	"github.com/dgonzalezf/cdcbox/repository"
	"github.com/dgonzalezf/cdcbox/test"
	"github.com/dgonzalezf/cdcbox/vehicle"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockedDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return gdb, mock
}

func TestNew(t *testing.T) {
	gdb, _ := newMockedDB(t)

	assert.NotPanics(t, func() {
		New(gdb)
	})
	assert.Panics(t, func() {
		New(nil)
	})
}

func TestCreateWithEvent(t *testing.T) {
	now := time.Now().UTC()
	car := &vehicle.Car{Id: uuid.New(), Make: "Toyota", Model: "Camry", Year: 2023, Color: "Blue", CreatedAt: now}
	event := &outbox.Event{
		Id:            uuid.New(),
		AggregateType: "Car",
		AggregateId:   car.Id.String(),
		EventType:     "CarCreated",
		Payload:       []byte(`{"make":"Toyota"}`),
		CreatedAt:     now,
	}

	testcases := []struct {
		name    string
		expect  func(mock sqlmock.Sqlmock)
		wantErr bool
		wantOp  string
	}{
		{
			name: "both inserts succeed",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO "vehicle"`).
					WithArgs(test.GenerateAnyArgsSlice(6)...).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`INSERT INTO "outbox"`).
					WithArgs(test.GenerateAnyArgsSlice(6)...).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			wantErr: false,
		},
		{
			name: "vehicle insert fails and the transaction is rolled back",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO "vehicle"`).
					WithArgs(test.GenerateAnyArgsSlice(6)...).
					WillReturnError(errors.New("constraint violation"))
				mock.ExpectRollback()
			},
			wantErr: true,
			wantOp:  "insert vehicle",
		},
		{
			name: "outbox insert fails and the transaction is rolled back",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO "vehicle"`).
					WithArgs(test.GenerateAnyArgsSlice(6)...).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`INSERT INTO "outbox"`).
					WithArgs(test.GenerateAnyArgsSlice(6)...).
					WillReturnError(errors.New("connection reset"))
				mock.ExpectRollback()
			},
			wantErr: true,
			wantOp:  "insert outbox",
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			gdb, mock := newMockedDB(t)
			tc.expect(mock)

			r := New(gdb)
			err := r.CreateWithEvent(context.Background(), car, event)

			if tc.wantErr {
				assert.Error(t, err)
				var perr *repository.PersistenceError
				assert.ErrorAs(t, err, &perr)
				assert.Equal(t, tc.wantOp, perr.Op)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
