package schemas

import (
	"encoding/json"
	"fmt"
)

// LLMQuestion is one question forwarded to the LLM resolution service.
type LLMQuestion struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	SubLabel string   `json:"subLabel,omitempty"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// LLMResolveRequest is the LLM question-resolution request contract.
type LLMResolveRequest struct {
	Questions  []LLMQuestion `json:"questions"`
	JobDetails *JobData      `json:"job_details,omitempty"`
}

// StringOrList accepts either a single string or an array of strings on the
// wire; the LLM service emits both depending on the field type.
type StringOrList []string

// UnmarshalJSON implements the dual wire form.
func (s *StringOrList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = StringOrList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("response must be a string or a string array: %w", err)
	}
	*s = StringOrList(many)
	return nil
}

// MarshalJSON keeps single values as a bare string for round-trip parity.
func (s StringOrList) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

// LLMAnswer is one resolved answer from the LLM service.
type LLMAnswer struct {
	QuestionID string       `json:"questionId"`
	Response   StringOrList `json:"response"`
}

// LLMResolveResponse is the LLM question-resolution response contract.
type LLMResolveResponse struct {
	Success bool        `json:"success"`
	Payload []LLMAnswer `json:"payload"`
	Errors  []string    `json:"errors,omitempty"`
}

// LLMResolveResponseSchema validates the response envelope before any answer
// is trusted. Malformed service output downgrades to NEEDS_LLM failure rather
// than a panic deep in the form manager.
const LLMResolveResponseSchema = `{
  "type": "object",
  "required": ["success", "payload"],
  "properties": {
    "success": {"type": "boolean"},
    "payload": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["questionId", "response"],
        "properties": {
          "questionId": {"type": "string"},
          "response": {
            "oneOf": [
              {"type": "string"},
              {"type": "array", "items": {"type": "string"}}
            ]
          }
        }
      }
    },
    "errors": {"type": "array", "items": {"type": "string"}}
  }
}`

// EmbeddingResult is one embedding returned by the offscreen worker port.
type EmbeddingResult struct {
	Success    bool      `json:"success"`
	Embedding  []float64 `json:"embedding,omitempty"`
	Dimensions int       `json:"dimensions,omitempty"`
	Error      string    `json:"error,omitempty"`
}
