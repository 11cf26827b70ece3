package websocket

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"trivial-go/internal/config"
	"trivial-go/pkg/logger"
)

// inboundFrame adalah format pesan dari client:
// {"user": <nama>, "message": <teks>, "room_id": <id>}
type inboundFrame struct {
	User    string `json:"user"`
	Message string `json:"message"`
	RoomID  int    `json:"room_id"`
}

// outboundFrame adalah format broadcast ke semua subscriber room,
// termasuk pengirimnya sendiri.
type outboundFrame struct {
	Message struct {
		User    string `json:"user"`
		Message string `json:"message"`
	} `json:"message"`
}

// ServeRoom mengembalikan handler koneksi untuk route /ws/room/:room_id.
// Setiap frame masuk dipersist dulu ke database, baru di-broadcast
// ke room (durability sebelum visibility). Frame JSON yang rusak
// hanya di-drop, koneksinya tetap hidup.
func ServeRoom(hub *Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		roomID, err := strconv.Atoi(conn.Params("room_id"))
		if err != nil {
			logger.ChatLogger.Warn("Invalid room id on connect", zap.String("room_id", conn.Params("room_id")))
			conn.Close()
			return
		}

		client := &Client{Conn: conn, RoomID: roomID}
		hub.Register <- client
		defer func() {
			hub.Unregister <- client
		}()

		logger.ChatLogger.Info("Client joined room", zap.Int("room_id", roomID))

		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if messageType != websocket.TextMessage {
				continue
			}

			var frame inboundFrame
			if err := json.Unmarshal(message, &frame); err != nil {
				logger.ChatLogger.Warn("Dropping malformed chat frame",
					zap.Int("room_id", roomID), zap.Error(err))
				continue
			}

			if err := persistMessage(frame); err != nil {
				logger.ErrorLogger.Error("Error persisting chat message",
					zap.Int("room_id", frame.RoomID), zap.Error(err))
				continue
			}

			var out outboundFrame
			out.Message.User = frame.User
			out.Message.Message = frame.Message
			payload, err := json.Marshal(out)
			if err != nil {
				logger.ErrorLogger.Error("Error encoding chat message", zap.Error(err))
				continue
			}

			// Broadcast ke room yang di-join koneksi ini
			hub.Broadcast <- RoomMessage{RoomID: roomID, Payload: payload}
		}
	}
}

// persistMessage menyimpan satu pesan chat. Room dibuat lazily
// dengan nama sintetis; penulis di-resolve dari display name dan
// boleh NULL kalau tidak dikenal.
func persistMessage(frame inboundFrame) error {
	_, err := config.DB.Exec(
		"INSERT INTO rooms (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING",
		frame.RoomID, fmt.Sprintf("Room %d", frame.RoomID))
	if err != nil {
		return err
	}

	var userID sql.NullInt64
	var id int64
	if err := config.DB.QueryRow(
		"SELECT id FROM users WHERE name = $1 LIMIT 1", frame.User).Scan(&id); err == nil {
		userID = sql.NullInt64{Int64: id, Valid: true}
	}

	_, err = config.DB.Exec(
		"INSERT INTO messages (room_id, user_id, content) VALUES ($1, $2, $3)",
		frame.RoomID, userID, frame.Message)
	return err
}
