package pushchan

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"clipwatch/internal/job"
)

// Message types on the wire. Client sends ping and get_status; the server
// answers with pong and video_update.
const (
	TypePing        = "ping"
	TypePong        = "pong"
	TypeGetStatus   = "get_status"
	TypeVideoUpdate = "video_update"
)

type outboundMessage struct {
	Type string `json:"type"`
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// parseInbound decodes a raw frame. For video_update frames the data payload
// is decoded into a job delta; unknown message types are reported so the
// caller can log and drop them.
func parseInbound(raw []byte) (inboundMessage, job.Delta, error) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return inboundMessage{}, job.Delta{}, fmt.Errorf("decode frame: %w", err)
	}
	if msg.Type != TypeVideoUpdate {
		return msg, job.Delta{}, nil
	}
	var delta job.Delta
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &delta); err != nil {
			return msg, job.Delta{}, fmt.Errorf("decode video_update data: %w", err)
		}
	}
	return msg, delta, nil
}

// Endpoint derives the per-job push endpoint from the Job API base URL,
// mirroring its scheme: https becomes wss, http becomes ws.
func Endpoint(apiBaseURL, jobID string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(apiBaseURL))
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	case "http":
		parsed.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported api scheme %q", parsed.Scheme)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/ws/jobs/" + url.PathEscape(jobID)
	return parsed.String(), nil
}
