// ABOUTME: Wire messages for the queue stream
// ABOUTME: JSON control messages and timestamped binary audio chunks
package stream

import (
	"encoding/binary"

	"github.com/google/uuid"
)

const (
	// ProtocolVersion is reported in server/hello
	ProtocolVersion = 1

	// AudioChunkMessageType prefixes every binary audio chunk
	AudioChunkMessageType = 1
)

// Message is the top-level wrapper for all JSON messages
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServerHello is sent first on every connection
type ServerHello struct {
	ServerID string `json:"server_id"`
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
	Software string `json:"software"`
}

// StreamStart announces the format of the binary chunks that follow
type StreamStart struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
}

// ClientTime is a clock sync request
type ClientTime struct {
	ClientTransmitted int64 `json:"client_transmitted"`
}

// ServerTime answers ClientTime with server clock readings in microseconds
type ServerTime struct {
	ClientTransmitted int64 `json:"client_transmitted"`
	ServerReceived    int64 `json:"server_received"`
	ServerTransmitted int64 `json:"server_transmitted"`
}

// AppendRequest is the body of POST /queue
type AppendRequest struct {
	Path string `json:"path"`
	// Wait holds the response until the source has finished playing
	Wait bool `json:"wait"`
}

// AppendResponse answers POST /queue
type AppendResponse struct {
	ID      uuid.UUID `json:"id"`
	Pending int       `json:"pending"`
	Played  bool      `json:"played,omitempty"`
}

// QueueStatus answers GET /queue
type QueueStatus struct {
	Pending int    `json:"pending"`
	State   string `json:"state"`
	Clients int    `json:"clients"`
}

// CreateAudioChunk creates a binary audio chunk message
func CreateAudioChunk(timestamp int64, audioData []byte) []byte {
	// Binary format: [message_type:1][timestamp:8][audio_data:N]
	chunk := make([]byte, 1+8+len(audioData))
	chunk[0] = AudioChunkMessageType
	binary.BigEndian.PutUint64(chunk[1:9], uint64(timestamp))
	copy(chunk[9:], audioData)
	return chunk
}

// ParseAudioChunk splits a binary chunk into timestamp and payload
func ParseAudioChunk(chunk []byte) (int64, []byte, bool) {
	if len(chunk) < 9 || chunk[0] != AudioChunkMessageType {
		return 0, nil, false
	}
	return int64(binary.BigEndian.Uint64(chunk[1:9])), chunk[9:], true
}
