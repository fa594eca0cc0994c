package board

import (
	"context"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// Frame is the wire format exchanged with a connected board.
// Outbound types: "position", "update", "snapback".
// Inbound types: "move", "undo", "reset".
type Frame struct {
	Type    string `json:"type"`
	FEN     string `json:"fen,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Square  string `json:"square,omitempty"`
	Seconds int    `json:"seconds,omitempty"`

	Update *Update `json:"update,omitempty"`
}

// SocketView adapts one websocket connection into a View. Writes are
// serialized with a mutex since the session loop and the server's read
// loop may both push frames.
type SocketView struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func NewSocketView(conn *websocket.Conn) *SocketView {
	return &SocketView{conn: conn}
}

func (v *SocketView) SetPosition(fen string) error {
	return v.write(Frame{Type: "position", FEN: fen})
}

func (v *SocketView) ShowUpdate(u Update) error {
	return v.write(Frame{Type: "update", Update: &u})
}

// Snapback tells the board to return the dragged piece to its source
// square after a rejected move.
func (v *SocketView) Snapback(square string) error {
	return v.write(Frame{Type: "snapback", Square: square})
}

// ReadFrame blocks until the board sends its next gesture or command.
func (v *SocketView) ReadFrame(ctx context.Context) (Frame, error) {
	var f Frame
	err := wsjson.Read(ctx, v.conn, &f)
	return f, err
}

func (v *SocketView) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	return v.conn.Close(websocket.StatusNormalClosure, "session closed")
}

func (v *SocketView) write(f Frame) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, v.conn, f)
}
