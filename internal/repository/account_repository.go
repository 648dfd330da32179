package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "strings"

    "github.com/iliyamo/cheese-catalog/internal/model"
)

// AccountRepo persists accounts in the `accounts` table.  Roles are stored
// as a JSON array.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

const accountColumns = "id, email, username, password_hash, roles"

func scanAccount(row interface{ Scan(...any) error }) (*model.Account, error) {
    a := model.NewAccount()
    var roles []byte
    if err := row.Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &roles); err != nil {
        return nil, err
    }
    if len(roles) > 0 {
        if err := json.Unmarshal(roles, &a.RoleNames); err != nil {
            return nil, err
        }
    }
    return a, nil
}

func encodeRoles(roles []string) (string, error) {
    if roles == nil {
        roles = []string{}
    }
    b, err := json.Marshal(roles)
    return string(b), err
}

// Create inserts the account and sets its ID.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
    roles, err := encodeRoles(a.RoleNames)
    if err != nil {
        return err
    }
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO accounts (email, username, password_hash, roles) VALUES (?,?,?,?)",
        strings.ToLower(strings.TrimSpace(a.Email)), a.Username, a.PasswordHash, roles)
    if err != nil {
        if isDuplicateKey(err) {
            return ErrDuplicate
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    a.ID = uint64(id)
    return nil
}

// Update writes email, username, password hash and roles.
func (r *AccountRepo) Update(ctx context.Context, a *model.Account) error {
    roles, err := encodeRoles(a.RoleNames)
    if err != nil {
        return err
    }
    res, err := r.DB.ExecContext(ctx,
        "UPDATE accounts SET email=?, username=?, password_hash=?, roles=? WHERE id=?",
        strings.ToLower(strings.TrimSpace(a.Email)), a.Username, a.PasswordHash, roles, a.ID)
    if err != nil {
        if isDuplicateKey(err) {
            return ErrDuplicate
        }
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return &NotFoundError{Resource: "users", ID: a.ID}
    }
    return nil
}

// GetByID fetches an account by id together with its listing set.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (*model.Account, error) {
    a, err := scanAccount(r.DB.QueryRowContext(ctx,
        "SELECT "+accountColumns+" FROM accounts WHERE id=? LIMIT 1", id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, &NotFoundError{Resource: "users", ID: id}
        }
        return nil, err
    }
    if err := r.loadListings(ctx, a); err != nil {
        return nil, err
    }
    return a, nil
}

// GetByEmail fetches an account by normalized email.  The listing set is
// not loaded.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    a, err := scanAccount(r.DB.QueryRowContext(ctx,
        "SELECT "+accountColumns+" FROM accounts WHERE email=? LIMIT 1", email))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    return a, nil
}

// List returns one page of accounts ordered by id and the total count.
// Listing sets are not loaded.
func (r *AccountRepo) List(ctx context.Context, page, perPage int) ([]*model.Account, int64, error) {
    if page < 1 {
        page = 1
    }
    var total int64
    if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts").Scan(&total); err != nil {
        return nil, 0, err
    }
    rows, err := r.DB.QueryContext(ctx,
        "SELECT "+accountColumns+" FROM accounts ORDER BY id LIMIT ? OFFSET ?", perPage, (page-1)*perPage)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()
    var out []*model.Account
    for rows.Next() {
        a, err := scanAccount(rows)
        if err != nil {
            return nil, 0, err
        }
        out = append(out, a)
    }
    if err := rows.Err(); err != nil {
        return nil, 0, err
    }
    return out, total, nil
}

// EmailTaken reports whether another account uses email.
func (r *AccountRepo) EmailTaken(ctx context.Context, email string, exceptID uint64) (bool, error) {
    return r.taken(ctx, "email", strings.ToLower(strings.TrimSpace(email)), exceptID)
}

// UsernameTaken reports whether another account uses username.
func (r *AccountRepo) UsernameTaken(ctx context.Context, username string, exceptID uint64) (bool, error) {
    return r.taken(ctx, "username", username, exceptID)
}

func (r *AccountRepo) taken(ctx context.Context, column, value string, exceptID uint64) (bool, error) {
    var count int
    q := "SELECT COUNT(1) FROM accounts WHERE " + column + " = ? AND id <> ?"
    if err := r.DB.QueryRowContext(ctx, q, value, exceptID).Scan(&count); err != nil {
        return false, err
    }
    return count > 0, nil
}

// loadListings fills the inverse side of the ownership link.
func (r *AccountRepo) loadListings(ctx context.Context, a *model.Account) error {
    rows, err := r.DB.QueryContext(ctx, "SELECT id FROM cheese_listings WHERE owner_id=? ORDER BY id", a.ID)
    if err != nil {
        return err
    }
    defer rows.Close()
    for rows.Next() {
        l := &model.Listing{}
        if err := rows.Scan(&l.ID); err != nil {
            return err
        }
        model.AddListing(a, l)
    }
    return rows.Err()
}
