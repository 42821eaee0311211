package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// ErrEncode marks a message that could not be serialized; the channel was not touched.
var ErrEncode = errors.New("encode realtime message")

// WriteTyped encodes v and sends it on ch.
func WriteTyped(ch Channel, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return ch.Send(raw)
}

// WriteError sends an error frame about examID on ch.
func WriteError(ch Channel, examID, errMsg string) error {
	return WriteTyped(ch, OutboundMessage{
		Type:   TypeError,
		ExamID: examID,
		Error:  errMsg,
	})
}

// ReadMessage reads one frame. It sets a read deadline, so an idle client is dropped
// after readWait.
func ReadMessage(conn *websocket.Conn) ([]byte, error) {
	conn.SetReadDeadline(time.Now().Add(readWait))
	_, data, err := conn.ReadMessage()
	return data, err
}
