package discord

import (
	"encoding/json"
	"log/slog"

	"github.com/cespare/xxhash/v2"
)

// ///////////////////////////////////////////////
// Activity Types
// ///////////////////////////////////////////////

// Timestamps holds the start timestamp for an activity, in Unix seconds.
type Timestamps struct {
	Start int64 `json:"start,omitempty"`
}

// Assets holds image keys and tooltip text for an activity.
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Activity represents a Discord Rich Presence activity.
type Activity struct {
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	Assets     *Assets     `json:"assets,omitempty"`
	// Instance marks the activity as a joinable game instance. Always false
	// for trackpad.
	Instance bool `json:"instance"`
}

// Hash returns an xxhash of the activity's wire form. Equal activities hash
// equally, so callers can skip redundant SET_ACTIVITY commands. A nil
// activity hashes to 0.
func (a *Activity) Hash() uint64 {
	if a == nil {
		return 0
	}
	data, err := json.Marshal(a)
	if err != nil {
		slog.Warn("failed to hash activity", "error", err)
		return 0
	}
	return xxhash.Sum64(data)
}
