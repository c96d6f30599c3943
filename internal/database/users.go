package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, outlet_id, email, hashed_password, full_name, role, pin, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...interface{}) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.OutletID, &u.Email, &u.HashedPassword, &u.FullName, &u.Role, &u.Pin, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const getUserByEmail = `
SELECT ` + userColumns + `
FROM users
WHERE email = $1 AND is_active = true
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByOutletAndPin = `
SELECT ` + userColumns + `
FROM users
WHERE outlet_id = $1 AND pin = $2 AND is_active = true
`

type GetUserByOutletAndPinParams struct {
	OutletID uuid.UUID
	Pin      pgtype.Text
}

func (q *Queries) GetUserByOutletAndPin(ctx context.Context, arg GetUserByOutletAndPinParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByOutletAndPin, arg.OutletID, arg.Pin))
}

const getUserByID = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1 AND is_active = true
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const listUsersByOutlet = `
SELECT ` + userColumns + `
FROM users
WHERE outlet_id = $1 AND is_active = true
ORDER BY full_name
`

func (q *Queries) ListUsersByOutlet(ctx context.Context, outletID uuid.UUID) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsersByOutlet, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

const createUser = `
INSERT INTO users (outlet_id, email, hashed_password, full_name, role, pin)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns + `
`

type CreateUserParams struct {
	OutletID       uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	Pin            pgtype.Text
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, createUser,
		arg.OutletID, arg.Email, arg.HashedPassword, arg.FullName, arg.Role, arg.Pin))
}

const updateUser = `
UPDATE users
SET email = $1, full_name = $2, role = $3, pin = $4, updated_at = now()
WHERE id = $5 AND outlet_id = $6 AND is_active = true
RETURNING ` + userColumns + `
`

type UpdateUserParams struct {
	Email    string
	FullName string
	Role     string
	Pin      pgtype.Text
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUser,
		arg.Email, arg.FullName, arg.Role, arg.Pin, arg.ID, arg.OutletID))
}

const softDeleteUser = `
UPDATE users
SET is_active = false, updated_at = now()
WHERE id = $1 AND outlet_id = $2 AND is_active = true
RETURNING id
`

type SoftDeleteUserParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) SoftDeleteUser(ctx context.Context, arg SoftDeleteUserParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, softDeleteUser, arg.ID, arg.OutletID)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}
