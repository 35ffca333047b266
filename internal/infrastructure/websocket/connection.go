package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// WebSocketConnection is one dealer's socket on one session. Writes are
// serialized; gorilla connections allow a single concurrent writer.
type WebSocketConnection struct {
	conn      *websocket.Conn
	dealerID  string
	sessionID string

	writeMu sync.Mutex
}

func NewWebSocketConnection(conn *websocket.Conn, dealerID, sessionID string) *WebSocketConnection {
	return &WebSocketConnection{
		conn:      conn,
		dealerID:  dealerID,
		sessionID: sessionID,
	}
}

func (wsc *WebSocketConnection) Send(message interface{}) error {
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()

	if err := wsc.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return wsc.conn.WriteJSON(message)
}

// Close sends a normal-closure frame before closing the socket.
func (wsc *WebSocketConnection) Close() error {
	wsc.writeMu.Lock()
	_ = wsc.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
		time.Now().Add(writeWait))
	wsc.writeMu.Unlock()
	return wsc.conn.Close()
}

func (wsc *WebSocketConnection) DealerID() string {
	return wsc.dealerID
}

func (wsc *WebSocketConnection) SessionID() string {
	return wsc.sessionID
}
