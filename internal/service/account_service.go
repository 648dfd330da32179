package service

import (
    "context"
    "encoding/json"
    "errors"
    "strings"

    "github.com/rs/zerolog"

    "github.com/iliyamo/cheese-catalog/internal/model"
    "github.com/iliyamo/cheese-catalog/internal/policy"
    "github.com/iliyamo/cheese-catalog/internal/repository"
    "github.com/iliyamo/cheese-catalog/internal/utils"
    "github.com/iliyamo/cheese-catalog/internal/validation"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email or
// a wrong password alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AccountService implements the user operations and login.
type AccountService struct {
    Accounts   AccountStore
    Validator  *validation.Validator
    BcryptCost int
    Log        zerolog.Logger
}

// NewAccountService wires an AccountService.
func NewAccountService(accounts AccountStore, v *validation.Validator, bcryptCost int, log zerolog.Logger) *AccountService {
    return &AccountService{
        Accounts:   accounts,
        Validator:  v,
        BcryptCost: bcryptCost,
        Log:        log.With().Str("service", "account").Logger(),
    }
}

// Register creates an account from a write-view payload.  The password is
// hashed before the account is stored and never rendered.
func (s *AccountService) Register(ctx context.Context, raw map[string]json.RawMessage) (policy.Document, error) {
    var in policy.AccountInput
    dropped, err := policy.Account.Bind(raw, &in)
    if err != nil {
        return nil, err
    }
    logDropped(s.Log, policy.Account.Resource, dropped)

    a := model.NewAccount()
    a.Email = normalizeEmail(deref(in.Email))
    a.Username = strings.TrimSpace(deref(in.Username))
    password := in.Password
    if password == nil {
        empty := ""
        password = &empty
    }
    if err := s.Validator.Account(ctx, a, password); err != nil {
        return nil, err
    }
    if a.PasswordHash, err = utils.HashPassword(*password, s.BcryptCost); err != nil {
        return nil, err
    }
    if err := s.Accounts.Create(ctx, a); err != nil {
        return nil, duplicateAsViolation(err)
    }
    s.Log.Info().Uint64("account_id", a.ID).Msg("account registered")
    return policy.NormalizeAccount(a, policy.OpCreate, nil), nil
}

// Update changes the account of actorID.  An account can only change itself.
func (s *AccountService) Update(ctx context.Context, actorID, id uint64, raw map[string]json.RawMessage) (policy.Document, error) {
    current, err := s.Accounts.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    if actorID != id {
        return nil, repository.ErrForbidden
    }
    var in policy.AccountInput
    dropped, err := policy.Account.Bind(raw, &in)
    if err != nil {
        return nil, err
    }
    logDropped(s.Log, policy.Account.Resource, dropped)

    next := *current
    if in.Email != nil || isNull(raw, "email") {
        next.Email = normalizeEmail(deref(in.Email))
    }
    if in.Username != nil || isNull(raw, "username") {
        next.Username = strings.TrimSpace(deref(in.Username))
    }
    if isNull(raw, "password") {
        empty := ""
        in.Password = &empty
    }
    if err := s.Validator.Account(ctx, &next, in.Password); err != nil {
        return nil, err
    }
    if in.Password != nil {
        if next.PasswordHash, err = utils.HashPassword(*in.Password, s.BcryptCost); err != nil {
            return nil, err
        }
    }
    if err := s.Accounts.Update(ctx, &next); err != nil {
        return nil, duplicateAsViolation(err)
    }
    return policy.NormalizeAccount(&next, policy.OpUpdate, nil), nil
}

// Get renders account id for the item-read view.
func (s *AccountService) Get(ctx context.Context, id uint64, props []string) (policy.Document, error) {
    a, err := s.Accounts.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    return policy.NormalizeAccount(a, policy.OpGetItem, props), nil
}

// List renders one page of accounts for the read view.
func (s *AccountService) List(ctx context.Context, page int, props []string) (Page, error) {
    if page < 1 {
        page = 1
    }
    items, total, err := s.Accounts.List(ctx, page, repository.ItemsPerPage)
    if err != nil {
        return Page{}, err
    }
    out := make([]policy.Document, 0, len(items))
    for _, a := range items {
        out = append(out, policy.NormalizeAccount(a, policy.OpList, props))
    }
    return Page{Items: out, TotalItems: total, Page: page, ItemsPerPage: repository.ItemsPerPage}, nil
}

// Authenticate checks an email and password pair and returns the account's
// credential with normalized roles.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (model.Credential, error) {
    a, err := s.Accounts.GetByEmail(ctx, normalizeEmail(email))
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return model.Credential{}, ErrInvalidCredentials
        }
        return model.Credential{}, err
    }
    if !utils.VerifyPassword(a.PasswordHash, password) {
        return model.Credential{}, ErrInvalidCredentials
    }
    return a.Credential(), nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// duplicateAsViolation turns a unique key collision that raced past the
// uniqueness lookups into the violation the lookup would have reported.
func duplicateAsViolation(err error) error {
    if !errors.Is(err, repository.ErrDuplicate) {
        return err
    }
    var out validation.Violations
    out.Add("email", validation.DuplicateValue)
    return out
}
