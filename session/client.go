package session

// Client is a repeater's view of an admin connection: identity, replay
// checkpoint, cached shared secret, and a known out-path, mirroring
// ClientInfo in the reference firmware's simple_repeater example.
type Client struct {
	PublicKey     [32]byte
	LastTimestamp uint32
	SharedSecret  [32]byte
	OutPath       []byte
	LoggedIn      bool
}

func (c *Client) HasOutPath() bool { return c.OutPath != nil }

// Clients is the repeater's bounded admin-client table (MAX_CLIENTS).
type Clients struct {
	capacity int
	byKey    map[[32]byte]*Client
	order    []*Client
}

// NewClients returns an empty table bounded to capacity entries.
func NewClients(capacity int) *Clients {
	return &Clients{
		capacity: capacity,
		byKey:    make(map[[32]byte]*Client, capacity),
	}
}

// PutClient finds or creates a client for pub, storing the given shared
// secret on first sight (an existing entry keeps its own). Returns ErrFull
// if the table has no room for a new entry.
func (c *Clients) PutClient(pub [32]byte, sharedSecret [32]byte) (*Client, error) {
	if existing, ok := c.byKey[pub]; ok {
		return existing, nil
	}
	if len(c.order) >= c.capacity {
		return nil, ErrFull
	}
	client := &Client{PublicKey: pub, SharedSecret: sharedSecret}
	c.byKey[pub] = client
	c.order = append(c.order, client)
	return client, nil
}

// Lookup returns the client matching pub, if any.
func (c *Clients) Lookup(pub [32]byte) (*Client, bool) {
	client, ok := c.byKey[pub]
	return client, ok
}

// ByHashPrefix returns every client whose public-key hash prefix byte
// matches, for decrypt-candidate narrowing.
func (c *Clients) ByHashPrefix(hashPrefix func([32]byte) byte, prefix byte) []*Client {
	var out []*Client
	for _, cl := range c.order {
		if hashPrefix(cl.PublicKey) == prefix {
			out = append(out, cl)
		}
	}
	return out
}

// Len returns the number of clients currently stored.
func (c *Clients) Len() int { return len(c.order) }
