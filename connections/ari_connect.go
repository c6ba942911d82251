package connections

import (
	"bitbucket.org/yellowmessenger/voice-orchestrator/configmanager"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
	"github.com/CyCoreSystems/ari"
	"github.com/CyCoreSystems/ari/client/native"
)

// NewARIClient builds the ARI client used for call control commands. It is
// REST only: the client never opens its own event websocket, so the event
// stream connector stays the single subscriber of the application.
func NewARIClient() (ari.Client, error) {
	ymlogger.LogInfo("ARIConnect", "Building the ARI client")
	ariClient := native.New(&native.Options{
		Application:  configmanager.ConfStore.ARIApplication,
		Username:     configmanager.ConfStore.ARIUsername,
		Password:     configmanager.ConfStore.ARIPassword,
		URL:          configmanager.ConfStore.ARIURL,
		WebsocketURL: configmanager.ConfStore.ARIWebsocketURL,
	})
	ymlogger.LogInfof("ARIConnect", "ARI client ready for application [%s]", ariClient.ApplicationName())
	return ariClient, nil
}
