package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/bowlstone/internal/access"
	"github.com/desertthunder/bowlstone/internal/models"
	"github.com/desertthunder/bowlstone/internal/persist"
	"github.com/desertthunder/bowlstone/internal/repositories"
	"github.com/desertthunder/bowlstone/internal/shared"
	"github.com/desertthunder/bowlstone/internal/storage"
)

var _ Provider = (*Local)(nil)

// Users is the account storage [Local] needs. [repositories.UserRepository] implements it.
type Users interface {
	Create(user *models.User) error
	GetByEmail(email string) (*models.User, error)
}

// Local keeps accounts in the database and remembers the signed-in address in a store.
type Local struct {
	users  Users
	store  storage.Store
	cost   int
	logger *log.Logger

	mu      sync.Mutex
	current *access.Identity
	nextID  int
	subs    map[int]func(*access.Identity)
}

// NewLocal creates a provider. store is usually the durable scope, so a sign-in survives restarts.
func NewLocal(users Users, store storage.Store, logger *log.Logger) *Local {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Local{
		users:  users,
		store:  store,
		cost:   bcrypt.DefaultCost,
		logger: logger,
		subs:   make(map[int]func(*access.Identity)),
	}
}

// SetCost changes the bcrypt cost for new hashes.
func (l *Local) SetCost(cost int) {
	l.cost = cost
}

// Restore reads the remembered identity. A missing, malformed or orphaned record leaves nobody signed in.
func (l *Local) Restore(ctx context.Context) *access.Identity {
	raw, ok, err := l.store.Get(ctx, persist.KeyIdentity)
	if err != nil {
		l.logger.Warn("failed to read identity", "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	var id access.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil || id.Email == "" {
		l.logger.Warn("discarding malformed identity record")
		return nil
	}
	if _, err := l.users.GetByEmail(id.Email); err != nil {
		l.logger.Info("remembered account no longer exists", "email", id.Email)
		return nil
	}

	l.set(ctx, &id, false)
	return &id
}

func (l *Local) Current() *access.Identity {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return nil
	}
	id := *l.current
	return &id
}

func (l *Local) Subscribe(fn func(*access.Identity)) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// SignIn checks a password account.
func (l *Local) SignIn(ctx context.Context, email, password string) (*access.Identity, error) {
	user, err := l.users.GetByEmail(email)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, ErrInvalidCredential
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	if user.Provider() != models.ProviderPassword || user.PasswordHash() == "" {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash()), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}

	id := &access.Identity{Email: user.Email(), Provider: user.Provider()}
	l.set(ctx, id, true)
	l.logger.Info("signed in", "email", id.Email)
	return id, nil
}

// SignUp creates a password account and signs it in.
func (l *Local) SignUp(ctx context.Context, email, password string) (*access.Identity, error) {
	email = models.NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to hash password: %v", shared.ErrAuthFailed, err)
	}

	user := models.NewUser(0, email, models.ProviderPassword, string(hash))
	if err := l.users.Create(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	id := &access.Identity{Email: user.Email(), Provider: user.Provider()}
	l.set(ctx, id, true)
	l.logger.Info("signed up", "email", id.Email)
	return id, nil
}

// SignInExternal signs in an address verified by an OAuth provider, creating the account on first use.
func (l *Local) SignInExternal(ctx context.Context, email, provider string) (*access.Identity, error) {
	user, err := l.users.GetByEmail(email)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		user = models.NewUser(0, email, provider, "")
		if err := user.Validate(); err != nil {
			return nil, ErrInvalidEmail
		}
		if err := l.users.Create(user); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
	case err != nil:
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	id := &access.Identity{Email: user.Email(), Provider: provider}
	l.set(ctx, id, true)
	l.logger.Info("signed in", "email", id.Email, "provider", provider)
	return id, nil
}

// SignOut forgets the signed-in identity. It returns [shared.ErrNotAuthenticated] when nobody is signed in.
func (l *Local) SignOut(ctx context.Context) error {
	if l.Current() == nil {
		return fmt.Errorf("%w: nobody is signed in", shared.ErrNotAuthenticated)
	}
	l.set(ctx, nil, true)
	return nil
}

// set records id, remembers it when durable is set, and notifies subscribers outside the lock.
func (l *Local) set(ctx context.Context, id *access.Identity, durable bool) {
	l.mu.Lock()
	l.current = id
	subs := make([]func(*access.Identity), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	if durable {
		l.remember(ctx, id)
	}

	for _, fn := range subs {
		if id == nil {
			fn(nil)
			continue
		}
		cp := *id
		fn(&cp)
	}
}

func (l *Local) remember(ctx context.Context, id *access.Identity) {
	var err error
	if id == nil {
		err = l.store.Remove(ctx, persist.KeyIdentity)
	} else {
		data, _ := json.Marshal(id)
		err = l.store.Set(ctx, persist.KeyIdentity, string(data))
	}
	if err != nil {
		l.logger.Warn("failed to remember identity", "error", err)
	}
}
