package completion

import (
	"encoding/json"
	"fmt"
)

// EventTypeJobOutputStateChange is the one inbound notification type this
// handler acts on.
const EventTypeJobOutputStateChange = "Microsoft.Media.JobOutputStateChange"

// Event is the inbound notification envelope. Data's schema depends on
// EventType, so it stays raw until the type is known.
type Event struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	Subject   string          `json:"subject"`
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
}

// JobOutputStateChangeData is the payload for EventTypeJobOutputStateChange.
type JobOutputStateChangeData struct {
	Output JobOutputStatus `json:"output"`
}

// JobOutputStatus reports the state of one job output and the asset it
// writes into.
type JobOutputStatus struct {
	State     string `json:"state"`
	AssetName string `json:"assetName"`
}

// IgnoredPayload marks an event type this handler has no action for.
type IgnoredPayload struct {
	EventType string
}

// DecodePayload resolves the envelope into a typed payload: either a
// JobOutputStateChangeData or an IgnoredPayload for every other type.
func (e Event) DecodePayload() (any, error) {
	switch e.EventType {
	case EventTypeJobOutputStateChange:
		var data JobOutputStateChangeData
		if err := json.Unmarshal(e.Data, &data); err != nil {
			return nil, fmt.Errorf("decode job output state change payload: %w", err)
		}
		return data, nil
	default:
		return IgnoredPayload{EventType: e.EventType}, nil
	}
}

// EventTypeAssetPublished tags the outbound lifecycle event emitted after a
// successful publish.
const EventTypeAssetPublished = "asset.published"

// AssetPublishedEvent announces a streamable asset on the lifecycle topic.
type AssetPublishedEvent struct {
	ID         string `json:"id"`
	AssetName  string `json:"asset_name"`
	PolicyName string `json:"policy_name"`
}
