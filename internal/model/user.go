package model

import "time"

// Operator roles.  STAFF run the counter terminals, MANAGER may also
// register new operators.
const (
    RoleStaff   = "STAFF"
    RoleManager = "MANAGER"
)

// Operator is a front-of-house account as stored in the `operators`
// table.  Handlers expose only ID, Email and Role.
//
// Fields:
//  ID           – primary key identifier of the operator.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – STAFF or MANAGER.
//  IsActive     – whether the account may sign in.
//  CreatedAt    – timestamp of creation.
type Operator struct {
    ID           uint64    // operators.id
    Email        string    // operators.email
    PasswordHash string    // operators.password_hash
    Role         string    // operators.role
    IsActive     bool      // operators.is_active
    CreatedAt    time.Time // operators.created_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token is stored.
type RefreshToken struct {
    ID         uint64     // refresh_tokens.id
    OperatorID uint64     // refresh_tokens.operator_id
    TokenHash  string     // refresh_tokens.token_hash
    ExpiresAt  time.Time  // refresh_tokens.expires_at
    RevokedAt  *time.Time // refresh_tokens.revoked_at (nullable)
}
