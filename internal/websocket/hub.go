package websocket

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"trivial-go/internal/config"
	"trivial-go/pkg/logger"
)

// Client merepresentasikan satu koneksi WebSocket yang tergabung
// di satu room.
type Client struct {
	Conn   *websocket.Conn
	RoomID int
	Mu     sync.Mutex
}

// writeWait membatasi berapa lama satu WriteMessage boleh menggantung.
// Tanpa deadline, satu client yang macet menahan fan-out semua room
// karena pengiriman berjalan di goroutine Hub.
const writeWait = 10 * time.Second

// RoomMessage adalah payload yang sudah siap kirim ke satu room.
type RoomMessage struct {
	RoomID  int
	Payload []byte
}

// Hub mengelola keanggotaan room dan fan-out pesan.
// Broadcast berjalan lewat Redis pub/sub (channel "room:<id>") sehingga
// semua instance aplikasi yang berbagi Redis ikut menerima pesan.
type Hub struct {
	rdb        *redis.Client
	rooms      map[int]map[*Client]bool
	subs       map[int]*redis.PubSub
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan RoomMessage
	deliver    chan RoomMessage
}

func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		rdb:        rdb,
		rooms:      make(map[int]map[*Client]bool),
		subs:       make(map[int]*redis.PubSub),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan RoomMessage),
		deliver:    make(chan RoomMessage),
	}
}

func channelName(roomID int) string {
	return fmt.Sprintf("room:%d", roomID)
}

// Run menjalankan loop Hub. Semua akses ke peta room terjadi di
// goroutine ini, jadi tidak perlu lock tambahan.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			clients := h.rooms[client.RoomID]
			if clients == nil {
				clients = make(map[*Client]bool)
				h.rooms[client.RoomID] = clients
				// Anggota pertama membuka subscription Redis untuk room ini
				sub := h.rdb.Subscribe(config.Ctx, channelName(client.RoomID))
				h.subs[client.RoomID] = sub
				go h.relay(client.RoomID, sub)
			}
			clients[client] = true

		case client := <-h.Unregister:
			h.remove(client)

		case msg := <-h.Broadcast:
			// Publish ke Redis; instance ini sendiri menerimanya
			// kembali lewat relay, sama seperti instance lain
			if err := h.rdb.Publish(config.Ctx, channelName(msg.RoomID), msg.Payload).Err(); err != nil {
				logger.ErrorLogger.Error("Error publishing chat message",
					zap.Int("room_id", msg.RoomID), zap.Error(err))
			}

		case msg := <-h.deliver:
			for client := range h.rooms[msg.RoomID] {
				client.Mu.Lock()
				_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
				err := client.Conn.WriteMessage(websocket.TextMessage, msg.Payload)
				client.Mu.Unlock()
				if err != nil {
					h.remove(client)
				}
			}
		}
	}
}

// relay meneruskan pesan dari subscription Redis ke loop Hub.
// Berhenti sendiri saat subscription ditutup.
func (h *Hub) relay(roomID int, sub *redis.PubSub) {
	for m := range sub.Channel() {
		h.deliver <- RoomMessage{RoomID: roomID, Payload: []byte(m.Payload)}
	}
}

// remove mengeluarkan client dari room-nya. Anggota terakhir yang
// keluar menutup subscription Redis room tersebut.
func (h *Hub) remove(client *Client) {
	clients := h.rooms[client.RoomID]
	if clients == nil || !clients[client] {
		return
	}
	delete(clients, client)
	client.Conn.Close()
	if len(clients) == 0 {
		delete(h.rooms, client.RoomID)
		if sub := h.subs[client.RoomID]; sub != nil {
			_ = sub.Close()
			delete(h.subs, client.RoomID)
		}
	}
}
