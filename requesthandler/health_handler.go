package requesthandler

import (
	"net/http"

	"bitbucket.org/yellowmessenger/voice-orchestrator/contracts"
	"bitbucket.org/yellowmessenger/voice-orchestrator/eventhandler"
	"github.com/labstack/echo"
)

// StatusSource reports the orchestrator status
type StatusSource interface {
	Status() eventhandler.Status
}

type HealthHandler struct {
	Source StatusSource
}

func (handler HealthHandler) Any(c echo.Context) error {
	switch c.Request().Method {
	case http.MethodGet:
		return handler.Get(c)
	}

	return RawResponse(c, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

// Get answers 200 while the event stream is connected and 503 otherwise
func (handler HealthHandler) Get(c echo.Context) error {
	st := handler.Source.Status()
	response := new(contracts.GetHealthResponse)
	response.ResponseData.SetErrorData(nil)
	response.ResponseData.ResourceData = &contracts.Health{
		ActiveCalls:   st.Calls,
		Channels:      st.Channels,
		Bridges:       st.Bridges,
		Connected:     st.Connected,
		Reconnects:    st.Reconnects,
		DroppedEvents: st.DroppedEvents,
	}
	code := http.StatusOK
	if !st.Connected {
		response.ResponseData.Status = "degraded"
		response.ResponseData.Msg = "event stream disconnected"
		code = http.StatusServiceUnavailable
	}
	return Response(c, response, code)
}
