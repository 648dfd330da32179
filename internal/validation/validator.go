package validation

import (
    "context"
    "errors"
    "fmt"
    "reflect"
    "strconv"
    "strings"

    "github.com/go-playground/validator/v10"

    "github.com/iliyamo/cheese-catalog/internal/model"
)

// AccountLookup answers the uniqueness questions validation cannot answer
// from the payload alone.  exceptID excludes the account being updated.
type AccountLookup interface {
    EmailTaken(ctx context.Context, email string, exceptID uint64) (bool, error)
    UsernameTaken(ctx context.Context, username string, exceptID uint64) (bool, error)
}

// Validator applies the field constraints of both resources.
type Validator struct {
    validate *validator.Validate
    accounts AccountLookup
}

// New builds a Validator.  accounts may be nil, in which case uniqueness is
// not checked.
func New(accounts AccountLookup) *Validator {
    v := validator.New()
    // report fields by their wire names
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    // maxbytes bounds the encoded length, for values whose limit is in bytes
    // rather than characters (bcrypt input, TEXT columns)
    _ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
        n, err := strconv.Atoi(fl.Param())
        if err != nil {
            return false
        }
        return len(fl.Field().String()) <= n
    })
    return &Validator{validate: v, accounts: accounts}
}

type listingRules struct {
    Title       string `json:"title" validate:"required,min=2,max=50"`
    Description string `json:"description" validate:"required,maxbytes=65535"`
    Price       *int   `json:"price" validate:"required,gt=0"`
    Owner       uint64 `json:"owner" validate:"required"`
}

type accountRules struct {
    Email    string `json:"email" validate:"required,max=180,email"`
    Username string `json:"username" validate:"required,max=255"`
    Password string `json:"password" validate:"required,maxbytes=72"`
}

// Listing checks l before it is stored.  priceSet is false when no price was
// ever submitted.  owner is the account l.OwnerID refers to; an owner that
// fails its own checks makes the reference invalid.  The owner's listings
// are not looked at.
func (v *Validator) Listing(l *model.Listing, owner *model.Account, priceSet bool) error {
    rules := listingRules{
        Title:       l.Title,
        Description: l.Description,
        Owner:       l.OwnerID,
    }
    if priceSet {
        price := l.Price
        rules.Price = &price
    }
    out := v.collect(rules)
    if owner != nil && !out.Has("owner", NotBlank) {
        if len(v.collect(storedAccountRules(owner))) > 0 {
            out.Add("owner", InvalidReference)
        }
    }
    return out.Err()
}

// Account checks a before it is stored.  password is the submitted plain
// password; nil keeps the stored hash.  A lookup failure is returned as is,
// not as a violation.
func (v *Validator) Account(ctx context.Context, a *model.Account, password *string) error {
    rules := storedAccountRules(a)
    if password != nil {
        rules.Password = *password
    }
    out := v.collect(rules)
    if v.accounts != nil {
        if len(out.OnField("email")) == 0 {
            taken, err := v.accounts.EmailTaken(ctx, a.Email, a.ID)
            if err != nil {
                return fmt.Errorf("email lookup: %w", err)
            }
            if taken {
                out.Add("email", DuplicateValue)
            }
        }
        if len(out.OnField("username")) == 0 {
            taken, err := v.accounts.UsernameTaken(ctx, a.Username, a.ID)
            if err != nil {
                return fmt.Errorf("username lookup: %w", err)
            }
            if taken {
                out.Add("username", DuplicateValue)
            }
        }
    }
    return out.Err()
}

func storedAccountRules(a *model.Account) accountRules {
    return accountRules{Email: a.Email, Username: a.Username, Password: a.PasswordHash}
}

// collect runs the struct tags of rules and converts every failure.
func (v *Validator) collect(rules any) Violations {
    var out Violations
    err := v.validate.Struct(rules)
    if err == nil {
        return out
    }
    var fieldErrs validator.ValidationErrors
    if !errors.As(err, &fieldErrs) {
        out = append(out, ValidationError{Field: "", Kind: InvalidFormat, Message: err.Error()})
        return out
    }
    for _, fe := range fieldErrs {
        kind := kindOf(fe.Tag())
        out = append(out, ValidationError{Field: fe.Field(), Kind: kind, Message: tagMessage(kind, fe.Tag(), fe.Param())})
    }
    return out
}

func kindOf(tag string) Kind {
    switch tag {
    case "required":
        return NotBlank
    case "min", "max", "len", "maxbytes":
        return LengthExceeded
    case "gt", "gte":
        return NotPositive
    }
    return InvalidFormat
}
