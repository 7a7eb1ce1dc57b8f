package protocol

import (
	"encoding/json"
)

// MessageType identifies the kind of message sent over the wire.
type MessageType string

const (
	// Server -> Client messages
	MsgAssignID MessageType = "assign_id"
	MsgFrame    MessageType = "frame"
	MsgFlash    MessageType = "flash"
	MsgGameOver MessageType = "game_over"

	// Client -> Server messages
	MsgIntent    MessageType = "intent"
	MsgFlashDone MessageType = "flash_done"
)

// Intent is a discrete player command.
type Intent string

const (
	IntentMoveLeft  Intent = "move_left"
	IntentMoveRight Intent = "move_right"
	IntentRotate    Intent = "rotate"
	IntentSoftDrop  Intent = "soft_drop"
	IntentNewGame   Intent = "new_game"
)

// Valid reports whether i is one of the known intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentMoveLeft, IntentMoveRight, IntentRotate, IntentSoftDrop, IntentNewGame:
		return true
	}
	return false
}

// Envelope is the top-level wire format for all messages.
type Envelope struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// RawEnvelope is an Envelope whose payload has not been decoded yet.
type RawEnvelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses a raw message into its type and undecoded payload.
func Decode(raw []byte) (RawEnvelope, error) {
	var env RawEnvelope
	err := json.Unmarshal(raw, &env)
	return env, err
}

// --- Server -> Client payloads ---

// AssignIDPayload is sent when a client first connects.
type AssignIDPayload struct {
	SessionID string `json:"session_id"`
}

// FramePayload is a full picture of the board after a state change.
type FramePayload struct {
	Score    int    `json:"score"`
	Lines    int    `json:"lines"`
	Running  bool   `json:"running"`
	FastDrop bool   `json:"fast_drop"`
	Next     string `json:"next"`
	// Board is a flat array: BoardHeight * BoardWidth cells, row-major.
	// Each value is a color index (0 = empty), active piece included.
	Board []int `json:"board"`
}

// Cell is one board position on the wire.
type Cell struct {
	Row   int `json:"row"`
	Col   int `json:"col"`
	Color int `json:"color"`
}

// FlashPayload asks the client to play the clear effect on cells and
// answer with FlashDone once it has finished.
type FlashPayload struct {
	BatchID int    `json:"batch_id"`
	Rows    []int  `json:"rows"`
	Cells   []Cell `json:"cells"`
}

// GameOverPayload informs a client that its game ended.
type GameOverPayload struct {
	Score int `json:"score"`
	Lines int `json:"lines"`
}

// --- Client -> Server payloads ---

// IntentPayload carries one player command.
type IntentPayload struct {
	Intent Intent `json:"intent"`
}

// FlashDonePayload acknowledges that every effect of a batch finished.
type FlashDonePayload struct {
	BatchID int `json:"batch_id"`
}

// --- HTTP types ---

// SessionInfo describes a live session in the list-sessions response.
type SessionInfo struct {
	SessionID string `json:"session_id"`
	Score     int    `json:"score"`
	Running   bool   `json:"running"`
}

// ListSessionsResponse is returned by GET /sessions.
type ListSessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// ErrorResponse is a generic JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
