package connection

import (
	"context"
	"errors"
	"sync"

	"nhooyr.io/websocket"
)

// WSSender writes text-framed payloads to a websocket connection. It is
// safe for concurrent use: a mutex-guarded writer over nhooyr.io/websocket
// with a normal-closure Close.
type WSSender struct {
	conn *websocket.Conn
	ctx  context.Context
	mu   sync.Mutex
}

// NewWSSender wraps conn as a Sender bound to ctx.
func NewWSSender(ctx context.Context, conn *websocket.Conn) *WSSender {
	return &WSSender{conn: conn, ctx: ctx}
}

func (w *WSSender) Send(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.Write(w.ctx, websocket.MessageText, data)
}

func (w *WSSender) Close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "")
}

// ReadLoop reads text messages from conn until it closes or ctx is
// cancelled, invoking handle with each message's raw payload. It returns
// nil on a normal close.
func ReadLoop(ctx context.Context, conn *websocket.Conn, handle func(raw []byte)) error {
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}
		handle(data)
	}
}
