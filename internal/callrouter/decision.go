package callrouter

// Decision is the routing outcome for one inbound call or DTMF branch.
//
// It carries only what the caller needs to record the outcome; the provider
// commands have already been issued by the time a Decision is returned.
type Decision struct {
	Action Action `json:"action"`

	// Detail is the dial target for transfer actions, empty otherwise.
	Detail string `json:"detail,omitempty"`

	// Reason is for internal logs only.
	Reason string `json:"reason,omitempty"`
}

type Action string

const (
	ActionForwarded          Action = "forwarded"
	ActionRoutedToAgent      Action = "routed_to_agent"
	ActionUnavailablePrompt  Action = "unavailable_prompt"
	ActionVoicemail          Action = "voicemail"
	ActionForwardedToCentral Action = "forwarded_to_central"
)
