package processor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"paychain/pkg/domain"
)

// Leaser grants exclusive, time-bounded claims on a rule id. A due cycle
// acquires the lease before touching a rule so overlapping cycles cannot both
// process the same occurrence. The TTL bounds how long a rule stays claimed
// if a cycle dies mid-rule.
type Leaser interface {
	// Acquire claims the rule. The returned token identifies this holder's
	// claim; ok is false when another holder has the rule.
	Acquire(ctx context.Context, id domain.RuleID, ttl time.Duration) (token string, ok bool, err error)
	// Release frees the claim identified by token. A release carrying a
	// stale token is a no-op: once a lease expires and a new holder
	// acquires it, the previous holder must not be able to evict them.
	Release(ctx context.Context, id domain.RuleID, token string) error
}

type memoryLease struct {
	token  string
	expiry time.Time
}

// InMemoryLeaser serializes rule processing within one process.
type InMemoryLeaser struct {
	mu     sync.Mutex
	leases map[domain.RuleID]memoryLease
}

func NewInMemoryLeaser() *InMemoryLeaser {
	return &InMemoryLeaser{leases: make(map[domain.RuleID]memoryLease)}
}

func (l *InMemoryLeaser) Acquire(_ context.Context, id domain.RuleID, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lease, ok := l.leases[id]; ok && time.Now().Before(lease.expiry) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.leases[id] = memoryLease{token: token, expiry: time.Now().Add(ttl)}
	return token, true, nil
}

func (l *InMemoryLeaser) Release(_ context.Context, id domain.RuleID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lease, ok := l.leases[id]; ok && lease.token == token {
		delete(l.leases, id)
	}
	return nil
}

var _ Leaser = (*InMemoryLeaser)(nil)
