package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialLiveFeed регистрирует WebSocket-соединение пользователя в менеджере
func dialLiveFeed(t *testing.T, conns *WSConnManager, userID int64) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns.Add(userID, conn)
		go func() {
			defer conns.Remove(userID, conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?user=" + strconv.FormatInt(userID, 10)
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.Eventually(t, func() bool { return conns.Connections(userID) > 0 }, time.Second, 10*time.Millisecond)
	return client
}

func TestFeedFanoutDeliversToFollowers(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	store := NewGormStore()
	author := createTestUser(t, "leo")
	follower := createTestUser(t, "anna")
	stranger := createTestUser(t, "max")
	_, err := store.CreateFollow(ctx, follower.ID, author.ID)
	require.NoError(t, err)

	conns := NewWSConnManager()
	followerConn := dialLiveFeed(t, conns, follower.ID)
	dialLiveFeed(t, conns, stranger.ID)

	fanout := NewFeedFanout(store, conns)
	sent, err := fanout.Deliver(ctx, PostEvent{PostID: 7, AuthorID: author.ID, Author: "leo", Text: "hi", CreatedAt: testEpoch})
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.NoError(t, followerConn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := followerConn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "post_published", msg["event"])
	assert.Equal(t, float64(7), msg["post_id"])
	assert.Equal(t, "leo", msg["author"])
}

func TestFeedFanoutWithoutFollowers(t *testing.T) {
	setupTestDB(t)
	author := createTestUser(t, "leo")
	fanout := NewFeedFanout(NewGormStore(), NewWSConnManager())

	sent, err := fanout.Deliver(context.Background(), PostEvent{PostID: 1, AuthorID: author.ID})
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestNotifyTruncatesLongMessages(t *testing.T) {
	conns := NewWSConnManager()
	client := dialLiveFeed(t, conns, 42)

	require.NoError(t, conns.Notify(42, "", strings.Repeat("я", 150)))
	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var n Notification
	require.NoError(t, json.Unmarshal(data, &n))
	assert.Equal(t, "info", n.NotifyType)
	assert.Equal(t, strings.Repeat("я", 100)+"...", n.Message)

	// пустое сообщение не отправляется
	assert.NoError(t, conns.Notify(42, "info", ""))
}

func TestPostEventRoutingKey(t *testing.T) {
	assert.Equal(t, "author.15", PostEvent{AuthorID: 15}.RoutingKey())
}

func TestWSConnManagerSlowWriterDoesNotBlockOthers(t *testing.T) {
	conns := NewWSConnManager()
	slowConn := dialLiveFeed(t, conns, 1)
	fastConn := dialLiveFeed(t, conns, 2)

	conns.mu.Lock()
	slow := conns.users[1][0]
	conns.mu.Unlock()

	// занятый писатель держит только свое соединение
	slow.mu.Lock()
	slowSent := make(chan int, 1)
	go func() { slowSent <- conns.Send(1, []byte(`{"event":"slow"}`)) }()

	done := make(chan int, 1)
	go func() {
		conns.Add(3, nil)
		conns.Remove(3, nil)
		done <- conns.Send(2, []byte(`{"event":"fast"}`))
	}()
	select {
	case sent := <-done:
		assert.Equal(t, 1, sent)
	case <-time.After(time.Second):
		t.Fatal("registry blocked by a pending write")
	}

	require.NoError(t, fastConn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := fastConn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"fast"}`, string(data))

	slow.mu.Unlock()
	assert.Equal(t, 1, <-slowSent)
	require.NoError(t, slowConn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err = slowConn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"slow"}`, string(data))
}
