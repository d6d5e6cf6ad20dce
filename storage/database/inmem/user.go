package inmemdb

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/masomo-admin/core/user"
)

var (
	ErrCIExists       = errors.New("ci already exists")
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
)

// Account is a user row plus its credentials.
type Account struct {
	User         user.User
	PasswordHash []byte
	Position     null.String // admins only
}

func (a Account) Identity() int { return a.User.ID }

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	a.PasswordHash = hash
	return nil
}

func (a Account) CheckPassword(pwd string) error {
	if len(a.PasswordHash) == 0 {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

// CheckUniqueness reports the first of ci, username or email already taken by another account.
func (db *DB) CheckUniqueness(usr user.User) error {
	_, taken := db.Accounts.Find(func(a Account) bool {
		return a.User.ID != usr.ID && usr.CI != "" && a.User.CI == usr.CI
	})
	if taken {
		return ErrCIExists
	}
	_, taken = db.Accounts.Find(func(a Account) bool {
		return a.User.ID != usr.ID && usr.Username != "" && strings.EqualFold(a.User.Username, usr.Username)
	})
	if taken {
		return ErrUsernameExists
	}
	_, taken = db.Accounts.Find(func(a Account) bool {
		return a.User.ID != usr.ID && usr.Email != "" && strings.EqualFold(a.User.Email, usr.Email)
	})
	if taken {
		return ErrEmailExists
	}
	return nil
}

func (db *DB) AccountByUsernameOrEmail(username string) (Account, error) {
	acc, ok := db.Accounts.Find(func(a Account) bool {
		return strings.EqualFold(a.User.Username, username) || strings.EqualFold(a.User.Email, username)
	})
	if !ok {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

// CreateAccount inserts usr with a hashed password.
func (db *DB) CreateAccount(usr user.User, pwd string) (Account, error) {
	if err := db.CheckUniqueness(usr); err != nil {
		return Account{}, err
	}
	acc := Account{User: usr}
	if pwd != "" {
		if err := acc.SetPassword(pwd); err != nil {
			return Account{}, err
		}
	}
	acc.User.IsStaff = user.IsStaffRole(usr.Role.ID)
	acc.User.IsActive = true
	acc.User.DateJoined = null.TimeFrom(time.Now().UTC().Truncate(time.Second))
	return db.Accounts.Create(acc), nil
}

func (db *DB) Users() []user.User {
	accounts := db.Accounts.All()
	users := make([]user.User, 0, len(accounts))
	for _, a := range accounts {
		users = append(users, a.User)
	}
	return users
}

func (db *DB) Admins() []user.Admin {
	var admins []user.Admin
	for _, a := range db.Accounts.Filter(func(a Account) bool { return a.User.Role.ID == user.RoleAdmin }) {
		admins = append(admins, user.Admin{UserID: a.User.ID, User: a.User, Position: a.Position, Active: a.User.Active})
	}
	return admins
}

func (db *DB) SuperAdmins() []user.SuperAdmin {
	var supers []user.SuperAdmin
	for _, a := range db.Accounts.Filter(func(a Account) bool { return a.User.Role.ID == user.RoleSuperadmin }) {
		supers = append(supers, user.SuperAdmin{UserID: a.User.ID, User: a.User})
	}
	return supers
}
