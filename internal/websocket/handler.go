package websocket

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/obmenka-app/obmenka-api/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Источник проверяется токеном, а не заголовком Origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewHandler возвращает HTTP-обработчик WebSocket-подключений.
// Клиент передает JWT в query-параметре token.
func NewHandler(manager *Manager, jwtService *utils.JWTService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "Missing token", http.StatusUnauthorized)
			return
		}

		userID, err := jwtService.ExtractUserID(token)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Ошибка установки WebSocket-соединения: %v", err)
			return
		}

		client := NewClient(userID.String(), conn, manager)
		manager.AddClient(client)
		client.Start()
	})
}
