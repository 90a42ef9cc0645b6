package company

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmarkov/saasadmin/internal/apperr"
)

type fakeDB struct {
	queryRowFunc func(sql string, args []any) pgx.Row
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return f.queryRowFunc(sql, args)
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}

// boolRow scans a single bool, matching the EXISTS(...) name checks.
type boolRow struct {
	value bool
}

func (r boolRow) Scan(dest ...any) error {
	*(dest[0].(*bool)) = r.value
	return nil
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc := &Service{db: &fakeDB{
		queryRowFunc: func(sql string, args []any) pgx.Row {
			return boolRow{value: true}
		},
	}}

	_, err := svc.Create(context.Background(), CreateRequest{Name: "Acme"})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("Create with taken name: err = %v, want conflict", err)
	}
	if got := apperr.ClientMessage(err); got != "Company already exists" {
		t.Errorf("message = %q, want %q", got, "Company already exists")
	}
}

func TestUpdateRejectsDuplicateName(t *testing.T) {
	var gotSQL string
	var gotArgs []any
	svc := &Service{db: &fakeDB{
		queryRowFunc: func(sql string, args []any) pgx.Row {
			gotSQL = sql
			gotArgs = args
			return boolRow{value: true}
		},
	}}

	id := uuid.New()
	_, err := svc.Update(context.Background(), id, UpdateRequest{Name: "Acme"})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("Update onto taken name: err = %v, want conflict", err)
	}
	if got := apperr.ClientMessage(err); got != "Company already exists" {
		t.Errorf("message = %q, want %q", got, "Company already exists")
	}
	// The check must not count the row being renamed.
	if len(gotArgs) != 2 || gotArgs[1] != id {
		t.Errorf("name check args = %v, want [name, %s]", gotArgs, id)
	}
	if gotSQL == "" {
		t.Fatal("name check query was not issued")
	}
}

func TestUpdateRejectsBlankName(t *testing.T) {
	svc := &Service{db: &fakeDB{
		queryRowFunc: func(sql string, args []any) pgx.Row {
			t.Fatal("no query expected for a blank name")
			return nil
		},
	}}

	_, err := svc.Update(context.Background(), uuid.New(), UpdateRequest{Name: "   "})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("Update with blank name: err = %v, want validation", err)
	}
}
