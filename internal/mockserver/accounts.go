package mockserver

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/medika-client/internal/token"
)

// Account models a portal user known to the development stub.
type Account struct {
	ID           string
	Username     string
	Name         string
	Role         token.Role
	PasswordHash string
}

// AccountRepository abstracts account lookups for the handlers.
type AccountRepository interface {
	GetByUsername(username string) (*Account, bool)
	GetByID(id string) (*Account, bool)
	UpdatePassword(id, hash string)
}

// memoryAccountRepository keeps accounts in process memory; the stub needs
// no database.
type memoryAccountRepository struct {
	mu         sync.RWMutex
	byID       map[string]*Account
	byUsername map[string]*Account
}

// NewMemoryAccountRepository builds a repository holding the given accounts.
func NewMemoryAccountRepository(accounts []*Account) AccountRepository {
	repo := &memoryAccountRepository{
		byID:       make(map[string]*Account, len(accounts)),
		byUsername: make(map[string]*Account, len(accounts)),
	}
	for _, acct := range accounts {
		repo.byID[acct.ID] = acct
		repo.byUsername[acct.Username] = acct
	}
	return repo
}

func (r *memoryAccountRepository) GetByUsername(username string) (*Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.byUsername[username]
	return acct, ok
}

func (r *memoryAccountRepository) GetByID(id string) (*Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.byID[id]
	return acct, ok
}

func (r *memoryAccountRepository) UpdatePassword(id, hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if acct, ok := r.byID[id]; ok {
		acct.PasswordHash = hash
	}
}

// SeedAccounts creates one development account per role, all with the
// password "password".
func SeedAccounts(bcryptCost int) ([]*Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcryptCost)
	if err != nil {
		return nil, err
	}

	seeds := []struct {
		username string
		name     string
		role     token.Role
	}{
		{"admin", "Default Administrator", token.RoleAdmin},
		{"doctor", "Default Doctor", token.RoleDoctor},
		{"patient", "Default Patient", token.RolePatient},
		{"pharmacist", "Default Pharmacist", token.RolePharmacist},
	}

	accounts := make([]*Account, 0, len(seeds))
	for _, seed := range seeds {
		accounts = append(accounts, &Account{
			ID:           uuid.NewString(),
			Username:     seed.username,
			Name:         seed.name,
			Role:         seed.role,
			PasswordHash: string(hash),
		})
	}
	return accounts, nil
}
