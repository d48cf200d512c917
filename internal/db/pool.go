package db

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nandakv/regio/internal/docdb"
)

const dialTimeout = 5 * time.Second

// Pool is a round-robin pool of store connections with keepalive pings
// and automatic reconnect of broken clients.
type Pool struct {
	host      string
	port      int
	opTimeout time.Duration
	clients   []*docdb.Client
	mu        []sync.Mutex
	idx       uint64
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewPool opens size connections to the store. opTimeout is applied to
// every operation on every connection.
func NewPool(host string, port, size int, opTimeout time.Duration) (*Pool, error) {
	p := &Pool{
		host:      host,
		port:      port,
		opTimeout: opTimeout,
		clients:   make([]*docdb.Client, size),
		mu:        make([]sync.Mutex, size),
		stop:      make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		c, err := docdb.Connect(host, port, dialTimeout, opTimeout)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("pool: connect client %d: %w", i, err)
		}
		p.clients[i] = c
	}
	go p.keepalive()
	return p, nil
}

// Get returns the next client in round-robin order.
func (p *Pool) Get() *docdb.Client {
	n := atomic.AddUint64(&p.idx, 1)
	return p.clients[n%uint64(len(p.clients))]
}

func (p *Pool) reconnect(i int) {
	p.mu[i].Lock()
	defer p.mu[i].Unlock()
	if p.clients[i] != nil {
		p.clients[i].Close()
	}
	c, err := docdb.Connect(p.host, p.port, dialTimeout, p.opTimeout)
	if err != nil {
		log.Printf("pool: reconnect client %d failed: %v", i, err)
		return
	}
	p.clients[i] = c
}

// keepalive pings every connection on an interval so idle connections are
// not dropped, replacing any that fail.
func (p *Pool) keepalive() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			for i := range p.clients {
				if _, err := p.clients[i].Ping(); err != nil {
					log.Printf("pool: client %d ping failed, reconnecting: %v", i, err)
					p.reconnect(i)
				}
			}
		}
	}
}

// Close shuts down the keepalive loop and closes all connections.
func (p *Pool) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
	for _, c := range p.clients {
		if c != nil {
			c.Close()
		}
	}
}
