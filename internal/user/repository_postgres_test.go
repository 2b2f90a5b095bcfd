package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var userRowColumns = []string{"id", "first_name", "last_name", "username", "email", "phone", "password", "gender", "service", "birth_date", "avatar_image", "is_admin", "is_blocked", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func aliceRow(rows *sqlmock.Rows) *sqlmock.Rows {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	birth := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(idAlice, "Alice", "A", "alice", "alice@x.com", "100", "hash", "female", "website", birth, avatarFemale, false, false, ts, ts)
}

func TestPostgresRepository_List(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := aliceRow(sqlmock.NewRows(userRowColumns)).
		AddRow(idBob, "Bob", "B", "bob", "bob@x.com", "200", "hash", "male", "github", nil, avatarMale, true, false, time.Now(), time.Now())
	mock.ExpectQuery("SELECT .* FROM users\\s+ORDER BY created_at, id").WillReturnRows(rows)

	users, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].BirthDate != "1990-05-17" {
		t.Fatalf("birth date not formatted: %q", users[0].BirthDate)
	}
	if users[1].BirthDate != "" || !users[1].IsAdmin {
		t.Fatalf("unexpected second user %+v", users[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT .* FROM users\\s+WHERE id = \\$1").WithArgs(idAlice).WillReturnRows(sqlmock.NewRows(userRowColumns))

	if _, err := repo.GetByID(context.Background(), idAlice); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_FindOneBuildsOrFilter(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`WHERE \(email = \$1 OR phone = \$2\) AND id <> \$3 ORDER BY created_at LIMIT 1`).
		WithArgs("alice@x.com", "100", idBob).
		WillReturnRows(aliceRow(sqlmock.NewRows(userRowColumns)))

	got, err := repo.FindOne(context.Background(), Filter{Email: "alice@x.com", Phone: "100", ExcludeID: idBob})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got.ID != idAlice {
		t.Fatalf("unexpected user %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_CreateMapsUniqueViolation(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		field string
	}{
		{"pgx", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, "email"},
		{"lib/pq", &pq.Error{Code: "23505", Constraint: "users_phone_key"}, "phone"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectExec("INSERT INTO users").WillReturnError(tc.err)

			_, err := repo.Create(context.Background(), User{ID: idAlice, Email: "alice@x.com", Username: "alice", Phone: "100", Service: "website"})
			var conflict *ConflictError
			if !errors.As(err, &conflict) || conflict.Field != tc.field {
				t.Fatalf("expected %s conflict, got %v", tc.field, err)
			}
		})
	}
}

func TestPostgresRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(idAlice, "Alice", "", "alice", "alice@x.com", "100", "hash", "female", "website",
			time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC), avatarFemale, false, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := repo.Create(context.Background(), User{
		ID: idAlice, FirstName: "Alice", Username: "alice", Email: "alice@x.com", Phone: "100",
		Password: "hash", Gender: "female", Service: "website", BirthDate: "1990-05-17", AvatarImage: avatarFemale,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.CreatedAt.IsZero() || !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("timestamps not set: %+v", created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_UpdateOnlyPresentColumns(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE users SET first_name = \$1, is_blocked = \$2, updated_at = \$3 WHERE id = \$4 RETURNING`).
		WithArgs("Alicia", true, sqlmock.AnyArg(), idAlice).
		WillReturnRows(aliceRow(sqlmock.NewRows(userRowColumns)))

	name := "Alicia"
	blocked := true
	if _, err := repo.Update(context.Background(), idAlice, Patch{FirstName: &name, IsBlocked: &blocked}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_UpdateNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE users SET").WillReturnRows(sqlmock.NewRows(userRowColumns))

	admin := true
	if _, err := repo.Update(context.Background(), idAlice, Patch{IsAdmin: &admin}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresRepository_Delete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM users WHERE id = \\$1").WithArgs(idAlice).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM users WHERE id = \\$1").WithArgs(idBob).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), idAlice); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := repo.Delete(context.Background(), idBob); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
