package websocket

import (
	"encoding/json"
	"errors"
	"strings"
)

// Event names carried in the envelope.
const (
	EventStartLiveUpdates = "start_live_updates"
	EventStopLiveUpdates  = "stop_live_updates"
	EventBiomarkerUpdates = "biomarker_updates"
	EventError            = "error"
)

// Envelope frames every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type errorData struct {
	Message string `json:"message"`
}

var errMalformedTopic = errors.New("data must be a patient id string or {\"patientId\": \"...\"}")

// parseTopic accepts a bare JSON string or an object with a patientId field.
func parseTopic(data json.RawMessage) (string, error) {
	if len(data) == 0 || string(data) == "null" {
		return "", nil
	}

	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		return strings.TrimSpace(id), nil
	}

	var obj struct {
		PatientID string `json:"patientId"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", errMalformedTopic
	}
	return strings.TrimSpace(obj.PatientID), nil
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
