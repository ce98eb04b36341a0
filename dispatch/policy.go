package dispatch

import (
	"strings"

	"github.com/juju/errors"

	"github.com/mirageworks/genflow/types"
	"github.com/mirageworks/genflow/utils"
)

// VendorAuto asks the dispatcher to pick candidates from the kind policy.
const VendorAuto = "auto"

// ExtraFirstFrame marks a video request that carries a reference first
// frame; it widens the video candidate list.
const ExtraFirstFrame = "first_frame_image"

// Known vendor ids. A composite "proxy:vendor" form routes through a proxy
// account while dispatching on the final segment.
const (
	VendorGemini = "gemini"
	VendorGPT    = "gpt"
	VendorFlux   = "flux"
	VendorVeo    = "veo"
	VendorKling  = "kling"
	VendorVidu   = "vidu"
	VendorClaude = "claude"
)

// aliases maps brand names onto the vendor id that actually serves them.
var aliases = map[string]string{
	"nano-banana": VendorGemini,
	"gpt-image":   VendorGPT,
}

// pollOnly lists vendors whose results come back via polling rather than a
// live push connection; their progress events update the pending snapshot
// without being forwarded to subscribers.
var pollOnly = map[string]bool{
	VendorKling: true,
	VendorVidu:  true,
}

// PollOnly reports whether a vendor's results are retrieved by polling.
func PollOnly(vendor string) bool {
	return pollOnly[Normalize(vendor).Dispatch]
}

// VendorName is a normalized vendor reference. Dispatch is the adapter id
// the call routes to; Composite keeps the full caller-supplied form
// (possibly "proxy:vendor") for tagging and persistence.
type VendorName struct {
	Dispatch  string
	Composite string
}

// Normalize lower-cases a raw vendor string, resolves brand aliases, and
// splits composite "proxy:vendor" forms on the final segment.
func Normalize(raw string) VendorName {
	composite := strings.ToLower(strings.TrimSpace(raw))
	dispatch := composite
	if i := strings.LastIndex(composite, ":"); i >= 0 {
		dispatch = composite[i+1:]
	}
	if alias, ok := aliases[dispatch]; ok {
		dispatch = alias
	}
	return VendorName{Dispatch: dispatch, Composite: composite}
}

// Candidates returns the ordered vendor candidate list for a task kind.
// Extras may widen the set: a first-frame hint adds the reference-frame
// video vendor.
func Candidates(kind types.TaskKind, extras types.Data) ([]string, error) {
	switch kind {
	case types.KindImage, types.KindImageEdit:
		return []string{VendorGemini, VendorGPT, VendorFlux}, nil

	case types.KindVideo:
		c := []string{VendorVeo, VendorKling}
		if v, _ := extras.GetString(ExtraFirstFrame); v != "" {
			c = append(c, VendorVidu)
		}
		return utils.UniqueSlice(c), nil

	case types.KindChat, types.KindPromptRefine:
		return []string{VendorGPT, VendorClaude, VendorGemini}, nil
	}
	return nil, errors.NotSupportedf("task kind %q", kind)
}
