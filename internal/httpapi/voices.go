package httpapi

// voiceEntry mirrors the Voice catalog entry of the data model.
type voiceEntry struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Language    string `json:"language"`
	Locale      string `json:"locale"`
	Quality     string `json:"quality"`
	Downloaded  bool   `json:"downloaded"`
}

// staticVoices is the built-in connectivity-check catalog, always present
// regardless of which TTS engine adapter is configured. A real TTS engine
// may report additional downloaded voices; none is wired here because the
// reference WebSocketEngine doesn't expose a catalog endpoint.
var staticVoices = []voiceEntry{
	{ID: "sine-220", DisplayName: "Connectivity tone (220 Hz)", Language: "n/a", Locale: "n/a", Quality: "test", Downloaded: true},
	{ID: "sine-440", DisplayName: "Connectivity tone (440 Hz)", Language: "n/a", Locale: "n/a", Quality: "test", Downloaded: true},
	{ID: "sine-880", DisplayName: "Connectivity tone (880 Hz)", Language: "n/a", Locale: "n/a", Quality: "test", Downloaded: true},
}
