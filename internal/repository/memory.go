package repository

import (
    "context"
    "sort"
    "strings"
    "sync"

    "github.com/iliyamo/cheese-catalog/internal/model"
)

// MemoryStore keeps listings and accounts in process memory.  It backs the
// server when STORAGE=memory and the service and handler tests.  Records are
// copied in and out so callers never share state with the store.
type MemoryStore struct {
    mu          sync.RWMutex
    listings    map[uint64]model.Listing
    accounts    map[uint64]model.Account
    nextListing uint64
    nextAccount uint64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
    return &MemoryStore{
        listings: map[uint64]model.Listing{},
        accounts: map[uint64]model.Account{},
    }
}

// Listings returns the listing side of the store.
func (s *MemoryStore) Listings() *MemoryListings { return &MemoryListings{s: s} }

// Accounts returns the account side of the store.
func (s *MemoryStore) Accounts() *MemoryAccounts { return &MemoryAccounts{s: s} }

// MemoryListings has the method set of ListingRepo.
type MemoryListings struct{ s *MemoryStore }

func (m *MemoryListings) Create(_ context.Context, l *model.Listing) error {
    m.s.mu.Lock()
    defer m.s.mu.Unlock()
    m.s.nextListing++
    l.ID = m.s.nextListing
    m.s.listings[l.ID] = *l
    return nil
}

func (m *MemoryListings) Update(_ context.Context, l *model.Listing) error {
    m.s.mu.Lock()
    defer m.s.mu.Unlock()
    old, ok := m.s.listings[l.ID]
    if !ok {
        return &NotFoundError{Resource: "cheeses", ID: l.ID}
    }
    cp := *l
    cp.CreatedAt = old.CreatedAt
    m.s.listings[l.ID] = cp
    return nil
}

func (m *MemoryListings) GetByID(_ context.Context, id uint64) (*model.Listing, error) {
    m.s.mu.RLock()
    defer m.s.mu.RUnlock()
    l, ok := m.s.listings[id]
    if !ok {
        return nil, &NotFoundError{Resource: "cheeses", ID: id}
    }
    return &l, nil
}

func (m *MemoryListings) Search(_ context.Context, f ListingFilter) ([]*model.Listing, int64, error) {
    m.s.mu.RLock()
    defer m.s.mu.RUnlock()
    ids := make([]uint64, 0, len(m.s.listings))
    for id := range m.s.listings {
        ids = append(ids, id)
    }
    sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

    var matched []*model.Listing
    for _, id := range ids {
        l := m.s.listings[id]
        username := ""
        if a, ok := m.s.accounts[l.OwnerID]; ok {
            username = a.Username
        }
        if f.Matches(&l, username) {
            matched = append(matched, &l)
        }
    }
    total := int64(len(matched))
    start := f.Offset()
    if start > len(matched) {
        start = len(matched)
    }
    end := start + f.Limit()
    if end > len(matched) {
        end = len(matched)
    }
    return matched[start:end], total, nil
}

// MemoryAccounts has the method set of AccountRepo.
type MemoryAccounts struct{ s *MemoryStore }

func (m *MemoryAccounts) Create(_ context.Context, a *model.Account) error {
    m.s.mu.Lock()
    defer m.s.mu.Unlock()
    a.Email = strings.ToLower(strings.TrimSpace(a.Email))
    if m.collides(a) {
        return ErrDuplicate
    }
    m.s.nextAccount++
    a.ID = m.s.nextAccount
    m.s.accounts[a.ID] = stored(a)
    return nil
}

func (m *MemoryAccounts) Update(_ context.Context, a *model.Account) error {
    m.s.mu.Lock()
    defer m.s.mu.Unlock()
    if _, ok := m.s.accounts[a.ID]; !ok {
        return &NotFoundError{Resource: "users", ID: a.ID}
    }
    a.Email = strings.ToLower(strings.TrimSpace(a.Email))
    if m.collides(a) {
        return ErrDuplicate
    }
    m.s.accounts[a.ID] = stored(a)
    return nil
}

func (m *MemoryAccounts) GetByID(_ context.Context, id uint64) (*model.Account, error) {
    m.s.mu.RLock()
    defer m.s.mu.RUnlock()
    a, ok := m.s.accounts[id]
    if !ok {
        return nil, &NotFoundError{Resource: "users", ID: id}
    }
    out := loaded(a)
    ids := make([]uint64, 0)
    for lid, l := range m.s.listings {
        if l.OwnerID == id {
            ids = append(ids, lid)
        }
    }
    sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
    for _, lid := range ids {
        model.AddListing(out, &model.Listing{ID: lid})
    }
    return out, nil
}

func (m *MemoryAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    m.s.mu.RLock()
    defer m.s.mu.RUnlock()
    for _, a := range m.s.accounts {
        if a.Email == email {
            return loaded(a), nil
        }
    }
    return nil, ErrNotFound
}

func (m *MemoryAccounts) List(_ context.Context, page, perPage int) ([]*model.Account, int64, error) {
    m.s.mu.RLock()
    defer m.s.mu.RUnlock()
    if page < 1 {
        page = 1
    }
    ids := make([]uint64, 0, len(m.s.accounts))
    for id := range m.s.accounts {
        ids = append(ids, id)
    }
    sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
    total := int64(len(ids))
    start := (page - 1) * perPage
    if start > len(ids) {
        start = len(ids)
    }
    end := start + perPage
    if end > len(ids) {
        end = len(ids)
    }
    out := make([]*model.Account, 0, end-start)
    for _, id := range ids[start:end] {
        out = append(out, loaded(m.s.accounts[id]))
    }
    return out, total, nil
}

func (m *MemoryAccounts) EmailTaken(_ context.Context, email string, exceptID uint64) (bool, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    m.s.mu.RLock()
    defer m.s.mu.RUnlock()
    for id, a := range m.s.accounts {
        if id != exceptID && a.Email == email {
            return true, nil
        }
    }
    return false, nil
}

func (m *MemoryAccounts) UsernameTaken(_ context.Context, username string, exceptID uint64) (bool, error) {
    m.s.mu.RLock()
    defer m.s.mu.RUnlock()
    for id, a := range m.s.accounts {
        if id != exceptID && a.Username == username {
            return true, nil
        }
    }
    return false, nil
}

// collides mirrors the unique keys of the accounts table.  Caller holds mu.
func (m *MemoryAccounts) collides(a *model.Account) bool {
    for id, other := range m.s.accounts {
        if id == a.ID {
            continue
        }
        if other.Email == a.Email || other.Username == a.Username {
            return true
        }
    }
    return false
}

// stored drops the inverse side, which is derived from listings on read.
func stored(a *model.Account) model.Account {
    cp := *a
    cp.RoleNames = append([]string(nil), a.RoleNames...)
    cp.ListingIDs = nil
    return cp
}

func loaded(a model.Account) *model.Account {
    out := model.NewAccount()
    *out = a
    out.RoleNames = append([]string(nil), a.RoleNames...)
    out.ListingIDs = []uint64{}
    return out
}
