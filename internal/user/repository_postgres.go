package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

type PostgresRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ Repository = (*PostgresRepository)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

const uniqueViolation = "23505"

const userColumns = `id, first_name, last_name, username, email, phone, password, gender, service, birth_date, avatar_image, is_admin, is_blocked, created_at, updated_at`

const (
	listUsersQuery = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at, id
	`
	getUserByIDQuery = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	getUserByEmailQuery = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1
	`
	insertUserQuery = `
		INSERT INTO users (id, first_name, last_name, username, email, phone, password, gender, service, birth_date, avatar_image, is_admin, is_blocked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	deleteUserQuery = `DELETE FROM users WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, listUsersQuery)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (User, error) {
	return r.getOne(ctx, getUserByIDQuery, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, getUserByEmailQuery, email)
}

// FindOne ORs together the non-empty filter fields.
func (r *PostgresRepository) FindOne(ctx context.Context, filter Filter) (User, error) {
	if filter.empty() {
		return User{}, ErrNotFound
	}

	var (
		conds []string
		args  []any
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("email", filter.Email)
	add("username", filter.Username)
	add("phone", filter.Phone)

	query := "SELECT " + userColumns + " FROM users WHERE (" + strings.Join(conds, " OR ") + ")"
	if filter.ExcludeID != "" {
		args = append(args, filter.ExcludeID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}
	query += " ORDER BY created_at LIMIT 1"

	return r.getOne(ctx, query, args...)
}

func (r *PostgresRepository) Create(ctx context.Context, user User) (User, error) {
	birthDate, err := birthDateArg(user.BirthDate)
	if err != nil {
		return User{}, err
	}

	now := r.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = r.db.ExecContext(
		ctx,
		insertUserQuery,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Username,
		user.Email,
		user.Phone,
		user.Password,
		user.Gender,
		user.Service,
		birthDate,
		user.AvatarImage,
		user.IsAdmin,
		user.IsBlocked,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return User{}, mapWriteError(err)
	}

	return user, nil
}

// Update writes only the columns present in patch and returns the stored row.
func (r *PostgresRepository) Update(ctx context.Context, id string, patch Patch) (User, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	setText := func(column string, value *string) {
		if value != nil {
			set(column, *value)
		}
	}

	setText("first_name", patch.FirstName)
	setText("last_name", patch.LastName)
	setText("password", patch.Password)
	setText("username", patch.Username)
	setText("gender", patch.Gender)
	setText("email", patch.Email)
	setText("phone", patch.Phone)
	if patch.BirthDate != nil {
		birthDate, err := birthDateArg(*patch.BirthDate)
		if err != nil {
			return User{}, err
		}
		set("birth_date", birthDate)
	}
	setText("avatar_image", patch.AvatarImage)
	if patch.IsAdmin != nil {
		set("is_admin", *patch.IsAdmin)
	}
	if patch.IsBlocked != nil {
		set("is_blocked", *patch.IsBlocked)
	}
	set("updated_at", r.now().UTC())

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), userColumns,
	)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, mapWriteError(err)
	}

	return user, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, deleteUserQuery, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func scanUser(scanner rowScanner) (User, error) {
	user := User{}
	var birthDate sql.NullTime

	if err := scanner.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.Email,
		&user.Phone,
		&user.Password,
		&user.Gender,
		&user.Service,
		&birthDate,
		&user.AvatarImage,
		&user.IsAdmin,
		&user.IsBlocked,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return User{}, err
	}

	if birthDate.Valid {
		user.BirthDate = birthDate.Time.Format(birthDateLayout)
	}

	return user, nil
}

// birthDateArg turns an empty birth date into NULL.
func birthDateArg(value string) (any, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(birthDateLayout, value)
	if err != nil {
		return nil, ErrInvalidBirthDate
	}
	return t, nil
}

// mapWriteError turns a unique violation from either driver into a ConflictError.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &ConflictError{Field: fieldFromConstraint(pgErr.ConstraintName)}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return &ConflictError{Field: fieldFromConstraint(pqErr.Constraint)}
	}
	return err
}

func fieldFromConstraint(name string) string {
	switch {
	case strings.Contains(name, "email"):
		return "email"
	case strings.Contains(name, "username"):
		return "username"
	case strings.Contains(name, "phone"):
		return "phone"
	default:
		return "record"
	}
}
