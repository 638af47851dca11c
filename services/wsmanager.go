package services

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

// wsClient serializes writes to one socket: websocket.Conn allows a single writer.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// WSConnManager keeps the open live-feed sockets of every user.
// The registry lock is never held while writing to a socket.
type WSConnManager struct {
	mu    sync.Mutex
	users map[int64][]*wsClient
}

func NewWSConnManager() *WSConnManager {
	return &WSConnManager{
		users: make(map[int64][]*wsClient),
	}
}

func (m *WSConnManager) Add(userID int64, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = append(m.users[userID], &wsClient{conn: conn})
}

func (m *WSConnManager) Remove(userID int64, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clients := m.users[userID]
	for i, c := range clients {
		if c.conn == conn {
			m.users[userID] = append(clients[:i:i], clients[i+1:]...)
			break
		}
	}
	if len(m.users[userID]) == 0 {
		delete(m.users, userID)
	}
}

func (m *WSConnManager) Connections(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users[userID])
}

// Send returns how many connections accepted the message.
func (m *WSConnManager) Send(userID int64, message []byte) int {
	m.mu.Lock()
	clients := append([]*wsClient(nil), m.users[userID]...)
	m.mu.Unlock()

	sent := 0
	for _, client := range clients {
		if err := client.write(message); err != nil {
			log.Printf("ERROR: ws write to user %d failed: %v", userID, err)
			continue
		}
		sent++
	}
	return sent
}
