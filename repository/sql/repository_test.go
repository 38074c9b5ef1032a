package sql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dgonzalezf/cdcbox/logger"
	"github.com/dgonzalezf/cdcbox/outbox"
	"github.com/dgonzalezf/cdcbox/repository"
	"github.com/dgonzalezf/cdcbox/test"
	"github.com/dgonzalezf/cdcbox/vehicle"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	assert.NotPanics(t, func() {
		New(db, true)
	})
	assert.Panics(t, func() {
		New(nil, true)
	})
}

func Test_stmt(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	testcases := []struct {
		name      string
		useDollar bool
		query     string
		want      string
	}{
		{
			name:      "question marks are kept",
			useDollar: false,
			query:     "INSERT INTO t (a, b) VALUES (?, ?)",
			want:      "INSERT INTO t (a, b) VALUES (?, ?)",
		},
		{
			name:      "question marks are rewritten to dollar placeholders",
			useDollar: true,
			query:     "INSERT INTO t (a, b) VALUES (?, ?)",
			want:      "INSERT INTO t (a, b) VALUES ($1, $2)",
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			r := New(db, tc.useDollar)
			assert.Equal(t, tc.want, r.stmt(tc.query))
		})
	}
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
				mock.ExpectExec("INSERT INTO vehicle").
					WithArgs(test.GenerateAnyArgsSlice(6)...).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO outbox").
					WithArgs(test.GenerateAnyArgsSlice(6)...).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			wantErr: false,
		},
		{
			name: "begin fails",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("no connection"))
			},
			wantErr: true,
			wantOp:  "begin",
		},
		{
			name: "vehicle insert fails and the transaction is rolled back",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO vehicle").
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
				mock.ExpectExec("INSERT INTO vehicle").
					WithArgs(test.GenerateAnyArgsSlice(6)...).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO outbox").
					WithArgs(test.GenerateAnyArgsSlice(6)...).
					WillReturnError(errors.New("connection reset"))
				mock.ExpectRollback()
			},
			wantErr: true,
			wantOp:  "insert outbox",
		},
		{
			name: "commit fails",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO vehicle").
					WithArgs(test.GenerateAnyArgsSlice(6)...).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO outbox").
					WithArgs(test.GenerateAnyArgsSlice(6)...).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit().WillReturnError(errors.New("connection lost"))
			},
			wantErr: true,
			wantOp:  "commit",
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tc.expect(mock)

			r := New(db, true)
			r.SetLogger(&logger.NopLogger{})
			err = r.CreateWithEvent(context.Background(), car, event)

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
