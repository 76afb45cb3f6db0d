package authorizenet

import "fmt"

// Environment selects between the Authorize.Net sandbox and production systems.
type Environment string

const (
	EnvironmentSandbox Environment = "sandbox"
	EnvironmentLive    Environment = "live"
)

const (
	sandboxAPIEndpoint = "https://apitest.authorize.net/xml/v1/request.api"
	liveAPIEndpoint    = "https://api.authorize.net/xml/v1/request.api"

	sandboxAcceptScriptURL = "https://jstest.authorize.net/v3/AcceptUI.js"
	liveAcceptScriptURL    = "https://js.authorize.net/v3/AcceptUI.js"
)

func ParseEnvironment(s string) (Environment, error) {
	switch Environment(s) {
	case EnvironmentSandbox:
		return EnvironmentSandbox, nil
	case EnvironmentLive:
		return EnvironmentLive, nil
	}
	return "", fmt.Errorf("unknown environment: %q", s)
}

// APIEndpoint returns the transaction API base URL for the environment.
func (e Environment) APIEndpoint() string {
	if e == EnvironmentLive {
		return liveAPIEndpoint
	}
	return sandboxAPIEndpoint
}

// AcceptScriptURL returns the URL of the client-side tokenization script
// (AcceptUI.js) for the environment.
func (e Environment) AcceptScriptURL() string {
	if e == EnvironmentLive {
		return liveAcceptScriptURL
	}
	return sandboxAcceptScriptURL
}
