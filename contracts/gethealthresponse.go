package contracts

// Health is the orchestrator status served on /health
type Health struct {
	ActiveCalls   int   `json:"active_calls"`
	Channels      int   `json:"channels"`
	Bridges       int   `json:"bridges"`
	Connected     bool  `json:"event_stream_connected"`
	Reconnects    int32 `json:"reconnects"`
	DroppedEvents int32 `json:"dropped_events"`
}

type GetHealthResponse struct {
	BaseResponse
	ResponseData SingleGetHealthResponse `json:"response"`
}

type SingleGetHealthResponse struct {
	SingleResponse
	ResourceData *Health `json:"data,omitempty"`
}
