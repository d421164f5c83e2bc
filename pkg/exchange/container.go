package exchange

import (
	"fmt"
	"sync"
)

// Factory constructs a client for one venue with the given options.
type Factory func(opts ...Option) (*Client, error)

// Container is a thread-safe registry of venue factories and the clients
// built from them. It lets an application address exchanges uniformly by
// id.
type Container struct {
	mu        sync.RWMutex
	factories map[string]Factory
	clients   map[string]*Client
}

// NewContainer creates and returns a new empty container.
func NewContainer() *Container {
	return &Container{
		factories: make(map[string]Factory),
		clients:   make(map[string]*Client),
	}
}

// RegisterFactory makes a venue constructible by name. An existing factory
// with the same name is overwritten.
func (c *Container) RegisterFactory(name string, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = factory
}

// Build constructs a client through the named factory and registers the
// instance under the same name.
func (c *Container) Build(name string, opts ...Option) (*Client, error) {
	c.mu.RLock()
	factory, exists := c.factories[name]
	c.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("exchange %q not found", name)
	}

	client, err := factory(opts...)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	c.Register(name, client)
	return client, nil
}

// Register adds a client instance to the container with the given name.
// If a client with the same name exists, it will be overwritten.
func (c *Container) Register(name string, client *Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients[name] = client
}

// Get retrieves a client instance by name.
// Returns an error if no client is registered with the given name.
func (c *Container) Get(name string) (*Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	client, exists := c.clients[name]
	if !exists {
		return nil, fmt.Errorf("exchange %q not found", name)
	}
	return client, nil
}

// Names returns a list of all registered factory names.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.factories))
	for name := range c.factories {
		names = append(names, name)
	}
	return names
}

// Unregister removes a client from the container by name.
func (c *Container) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.clients, name)
}

// Clear removes all clients from the container. Factories stay registered.
func (c *Container) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients = make(map[string]*Client)
}

// Exists checks whether a client with the given name is registered.
func (c *Container) Exists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.clients[name]
	return exists
}
