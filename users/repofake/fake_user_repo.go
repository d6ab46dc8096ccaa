package fakeuserrepo

import (
	"errors"
	"strings"
	"sync"

	"github.com/jrsteele09/go-admin-session/users"
)

var _ users.AccountRepo = (*FakeUserRepo)(nil)

var ErrNotFound = errors.New("not found")

type FakeUserRepo struct {
	accounts map[int64]*users.Account
	emailIds map[string]int64 // email to account id
	nextID   int64
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		accounts: make(map[int64]*users.Account),
		emailIds: make(map[string]int64),
	}
}

// Upsert stores a copy of the account, assigning the next id when it has none.
func (ur *FakeUserRepo) Upsert(account *users.Account) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if account.ID == 0 {
		ur.nextID++
		account.ID = ur.nextID
	} else if account.ID > ur.nextID {
		ur.nextID = account.ID
	}
	stored := *account
	ur.accounts[account.ID] = &stored
	ur.emailIds[strings.ToLower(account.Email)] = account.ID
	return nil
}

func (ur *FakeUserRepo) GetByEmail(email string) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	account := *ur.accounts[id]
	return &account, nil
}

func (ur *FakeUserRepo) GetByID(id int64) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	stored, ok := ur.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	account := *stored
	return &account, nil
}
