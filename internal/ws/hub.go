package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Hub manages WebSocket connections and per-symbol subscriptions.
type Hub struct {
	clients    map[*Client]bool
	symbols    map[string]map[*Client]bool // symbol -> subscribers
	register   chan *Client
	unregister chan *Client
	broadcast  chan *SymbolMessage
	encoder    *Encoder
	mu         sync.RWMutex
	logger     *zap.Logger
}

// SymbolMessage is a payload addressed to one symbol's subscribers.
type SymbolMessage struct {
	Symbol  string
	Payload []byte
}

func NewHub(logger *zap.Logger) (*Hub, error) {
	enc, err := NewEncoder()
	if err != nil {
		return nil, err
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		symbols:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *SymbolMessage, 256),
		encoder:    enc,
		logger:     logger,
	}, nil
}

// Run processes hub events. Call this in a goroutine.
// Returns when context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub shutting down")
			h.shutdown()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", zap.String("connID", client.connID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for symbol := range client.symbols {
					if subs, ok := h.symbols[symbol]; ok {
						delete(subs, client)
						if len(subs) == 0 {
							delete(h.symbols, symbol)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", zap.String("connID", client.connID))

		case msg := <-h.broadcast:
			h.mu.RLock()
			if subs, ok := h.symbols[msg.Symbol]; ok {
				for client := range subs {
					select {
					case client.send <- msg.Payload:
					default:
						// Buffer full, schedule disconnect
						go func(c *Client) {
							h.unregister <- c
						}(client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.symbols = make(map[string]map[*Client]bool)
	h.encoder.Close()
}

// Subscribe adds a client to a symbol feed.
func (h *Hub) Subscribe(client *Client, symbol string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.symbols[symbol] == nil {
		h.symbols[symbol] = make(map[*Client]bool)
	}
	h.symbols[symbol][client] = true
	client.symbols[symbol] = true
}

// Unsubscribe removes a client from a symbol feed.
func (h *Hub) Unsubscribe(client *Client, symbol string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.symbols[symbol]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.symbols, symbol)
		}
	}
	delete(client.symbols, symbol)
}

// Broadcast queues a payload for a symbol's subscribers.
func (h *Hub) Broadcast(symbol string, payload []byte) {
	select {
	case h.broadcast <- &SymbolMessage{Symbol: symbol, Payload: payload}:
	default:
		h.logger.Warn("broadcast queue full, dropping message", zap.String("symbol", symbol))
	}
}

// SubscribedSymbols returns symbols with at least one subscriber.
func (h *Hub) SubscribedSymbols() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	symbols := make([]string, 0, len(h.symbols))
	for symbol := range h.symbols {
		symbols = append(symbols, symbol)
	}
	return symbols
}
