package handlers

import (
	"blog/api/middleware"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// FeedSocket - WebSocket endpoint для живой ленты подписок
func (h *Handler) FeedSocket(c *gin.Context) {
	user := middleware.CurrentUser(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	h.Conns.Add(user.ID, conn)
	defer h.Conns.Remove(user.ID, conn)

	h.Conns.Send(user.ID, []byte(`{"event":"connected","message":"WebSocket connected"}`))

	// входящие сообщения не обрабатываются, читаем до закрытия
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
