package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/utils"
)

// OperatorRepo mirrors the operators table.
type OperatorRepo struct{ DB *sql.DB }

func NewOperatorRepo(db *sql.DB) *OperatorRepo { return &OperatorRepo{DB: db} }

const mysqlDuplicateKey = 1062

// Create hashes password and inserts the operator, returning its id.
func (r *OperatorRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO operators (email, password_hash, role) VALUES (?,?,?)",
		email, hash, role)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateKey {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// EnsureManager creates a MANAGER with the given credentials unless an
// operator with that email exists.  It reports whether one was created.
func (r *OperatorRepo) EnsureManager(ctx context.Context, email, password string, cost int) (bool, error) {
	if _, err := r.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if _, err := r.Create(ctx, email, password, model.RoleManager, cost); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetByEmail fetches an operator by normalized email.
func (r *OperatorRepo) GetByEmail(ctx context.Context, email string) (model.Operator, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scan(r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,is_active,created_at FROM operators WHERE email=? LIMIT 1", email))
}

// GetByID fetches an operator by id.
func (r *OperatorRepo) GetByID(ctx context.Context, id uint64) (model.Operator, error) {
	return r.scan(r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,is_active,created_at FROM operators WHERE id=? LIMIT 1", id))
}

func (r *OperatorRepo) scan(row *sql.Row) (model.Operator, error) {
	var o model.Operator
	err := row.Scan(&o.ID, &o.Email, &o.PasswordHash, &o.Role, &o.IsActive, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return o, ErrNotFound
	}
	return o, err
}
