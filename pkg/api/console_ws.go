package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/nodegrid/nodegrid/pkg/console"
	"github.com/nodegrid/nodegrid/pkg/metrics"
	"github.com/nodegrid/nodegrid/pkg/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The panel calls server-to-server with a bearer token; browser origin
	// checks do not apply.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// consoleHello is the required first frame of a console session.
type consoleHello struct {
	Descriptor string `json:"descriptor"`
}

// wsStream adapts a websocket connection to the console.Stream contract:
// the first frame is a JSON hello naming the descriptor, every later frame
// is raw stdin bytes.
type wsStream struct {
	conn  *websocket.Conn
	first bool
}

func (s *wsStream) Recv() (console.Frame, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return console.Frame{}, io.EOF
		}
		return console.Frame{}, err
	}

	if s.first {
		s.first = false
		var hello consoleHello
		if err := json.Unmarshal(data, &hello); err != nil {
			return console.Frame{}, fmt.Errorf("malformed console hello: %w", err)
		}
		return console.Frame{Descriptor: types.Descriptor(hello.Descriptor)}, nil
	}

	return console.Frame{Data: data}, nil
}

func (s *wsStream) Send(data []byte) error {
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}

// handleConsole upgrades to websocket and hands the connection to the
// bridge. Once upgraded, errors can no longer become HTTP statuses; they
// are logged and end the session.
func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error.
		s.log.Warn().Err(err).Msg("console upgrade failed")
		return
	}

	metrics.ConsoleSessions.Inc()

	stream := &wsStream{conn: conn, first: true}
	if err := s.cfg.Bridge.Serve(r.Context(), stream); err != nil {
		s.log.Warn().Err(err).Msg("console session ended with error")
	}
}
