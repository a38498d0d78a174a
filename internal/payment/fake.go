package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/models"
)

// FakeProvider keeps checkouts in memory. It backs tests and local runs
// without provider credentials.
type FakeProvider struct {
	mu        sync.Mutex
	seq       int
	checkouts map[string]*Checkout
	owners    map[string]string
	canceled  []string

	// FailCreate makes every Create fail with a dependency error.
	FailCreate bool
}

// NewFakeProvider creates an empty FakeProvider.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		checkouts: make(map[string]*Checkout),
		owners:    make(map[string]string),
	}
}

// ClientFor returns a client bound to the user's provider key.
func (f *FakeProvider) ClientFor(user *models.User) (Client, error) {
	if user.ProviderKey == "" {
		return nil, ErrNoCredential
	}
	return &fakeClient{f: f, key: user.ProviderKey}, nil
}

// SetStatus moves a checkout to status, as the provider would after the payer acts.
func (f *FakeProvider) SetStatus(id string, status Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.checkouts[id]; ok {
		c.Status = status
	}
}

// Canceled returns the IDs passed to Cancel.
func (f *FakeProvider) Canceled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.canceled...)
}

type fakeClient struct {
	f   *FakeProvider
	key string
}

func (c *fakeClient) Create(_ context.Context, p CreateParams) (*Checkout, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	if c.f.FailCreate {
		return nil, apperr.Dependency("payment provider", errors.New("unavailable"))
	}
	c.f.seq++
	id := fmt.Sprintf("tr_%d", c.f.seq)
	checkout := &Checkout{
		ID:          id,
		CheckoutURL: "https://checkout.example.com/" + id,
		Status:      StatusOpen,
		Amount:      p.Amount,
	}
	c.f.checkouts[id] = checkout
	c.f.owners[id] = c.key
	copied := *checkout
	return &copied, nil
}

func (c *fakeClient) Get(_ context.Context, id string) (*Checkout, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	checkout, ok := c.f.checkouts[id]
	if !ok || c.f.owners[id] != c.key {
		return nil, apperr.Dependency("payment provider", fmt.Errorf("payment %s not found", id))
	}
	copied := *checkout
	return &copied, nil
}

func (c *fakeClient) Cancel(_ context.Context, id string) error {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.canceled = append(c.f.canceled, id)
	if checkout, ok := c.f.checkouts[id]; ok && checkout.Status == StatusOpen {
		checkout.Status = StatusFailed
	}
	return nil
}
