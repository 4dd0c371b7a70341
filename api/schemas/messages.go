package schemas

import "encoding/json"

// Action tags a request on the agent <-> background message bus.
type Action string

const (
	ActionGetPlatform                Action = "getPlatform"
	ActionGetSettings                Action = "getSettings"
	ActionStartTabExecution          Action = "startTabExecution"
	ActionStopTabExecution           Action = "stopTabExecution"
	ActionSetTabState                Action = "setTabState"
	ActionGetTabState                Action = "getTabState"
	ActionClearTabState              Action = "clearTabState"
	ActionResumeAfterReload          Action = "resumeAfterReload"
	ActionFetchJobDataByKey          Action = "fetchJobDataByKey"
	ActionUpsertJobBatch             Action = "upsertJobBatch"
	ActionRequestEmbeddings          Action = "requestEmbeddings"
	ActionAskLLM                     Action = "askLLM"
	ActionResolveQuestionWithLLM     Action = "resolveQuestionWithLLM"
	ActionGetNearestAddress          Action = "getNearestAddress"
	ActionGetBestResume              Action = "getBestResume"
	ActionFetchRecentVerificationOTP Action = "fetchRecentVerificationOTP"
	ActionFetchRecentPasscode        Action = "fetchRecentVerificationPasscode"
	ActionFetchRecentURL             Action = "fetchRecentVerificationURL"
	ActionResolveVerificationURL     Action = "resolveVerificationURL"
)

// Message is a request on the bus.
type Message struct {
	Action Action          `json:"action"`
	TabID  int             `json:"tabId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// BusResponse is the uniform response envelope. Payload and Data are aliases
// kept for wire compatibility with older agents.
type BusResponse struct {
	Success bool            `json:"success"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// OKResponse marshals v into a successful envelope.
func OKResponse(v any) BusResponse {
	raw, err := json.Marshal(v)
	if err != nil {
		return ErrResponse(err.Error())
	}
	return BusResponse{Success: true, Payload: raw}
}

// ErrResponse builds a failed envelope.
func ErrResponse(msg string) BusResponse {
	return BusResponse{Success: false, Error: msg}
}
