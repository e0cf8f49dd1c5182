package httpapi

// inboundMessage is the envelope for every client→server control message.
// Only the fields relevant to Type are populated; the rest are zero.
type inboundMessage struct {
	Type string `json:"type"`

	// hello
	Token string `json:"token,omitempty"`

	// webrtc_offer
	SDP string `json:"sdp,omitempty"`

	// start / speak / set_voice
	Voice string `json:"voice,omitempty"`

	// speak
	Text string `json:"text,omitempty"`

	// set_provider / set_model / pull_model
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// iceServerJSON mirrors session.ICEServer for the hello_ack payload.
type iceServerJSON struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

type helloAck struct {
	Type               string              `json:"type"`
	SessionID          string              `json:"session_id"`
	Voices             []voiceEntry        `json:"voices"`
	ICEServers         []iceServerJSON     `json:"ice_servers"`
	LLMProviders       []providerEntry     `json:"llm_providers"`
	ModelCatalog       []modelCatalogEntry `json:"model_catalog"`
	LLMDefaultProvider string              `json:"llm_default_provider"`
	LLMDefaultModel    string              `json:"llm_default_model"`
	TTSDefaultVoice    string              `json:"tts_default_voice"`
	OllamaOnline       bool                `json:"ollama_online"`
}

// modelCatalogEntry is one locally-installed model reported by the primary
// model host (Ollama's /api/tags — the only provider with an enumerable
// local catalog; OpenAI/Anthropic each expose exactly their one configured
// model, already named in the matching providerEntry).
type modelCatalogEntry struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
}

type providerEntry struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	RequiresAPIKey bool   `json:"requires_api_key"`
	Configured     bool   `json:"configured"`
}

type webrtcAnswer struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type transcriptionMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Partial bool   `json:"partial"`
}

type agentThinkingMessage struct {
	Type string `json:"type"`
}

type agentReplyMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolCallMessage struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type pullProgressMessage struct {
	Type      string  `json:"type"`
	Status    string  `json:"status"`
	Total     int64   `json:"total,omitempty"`
	Completed int64   `json:"completed,omitempty"`
	Percent   float64 `json:"percent"`
}

type pullCompleteMessage struct {
	Type  string `json:"type"`
	Model string `json:"model"`
}

type modelCatalogUpdateMessage struct {
	Type         string              `json:"type"`
	ModelCatalog []modelCatalogEntry `json:"model_catalog"`
}

type pullErrorMessage struct {
	Type    string `json:"type"`
	Model   string `json:"model"`
	Message string `json:"message"`
}

type ackMessage struct {
	Type string `json:"type"`
}

func ack(kind string) ackMessage { return ackMessage{Type: kind} }
