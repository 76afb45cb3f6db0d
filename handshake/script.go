package handshake

import (
	"fmt"

	"github.com/dualcube/paygw-authorizenet/authorizenet"
)

// Document is the slice of the page the script loader touches.
type Document interface {
	InsertScript(url string) error
	// RemoveScript removes the script element for url, reporting whether one
	// was present.
	RemoveScript(url string) bool
}

// ScriptLoader owns the "currently loaded tokenization script" resource for
// one controller. Loads are serialized and idempotent per environment:
// requesting the URL already present is a no-op, and switching environments
// unloads the stale script before inserting the new one.
type ScriptLoader struct {
	doc       Document
	loadedURL string
}

func NewScriptLoader(doc Document) *ScriptLoader {
	return &ScriptLoader{doc: doc}
}

// Switch loads the tokenization script for the environment, unloading a
// previously loaded one first.
func (l *ScriptLoader) Switch(env authorizenet.Environment) error {
	url := env.AcceptScriptURL()

	if l.loadedURL == url {
		return nil
	}

	if l.loadedURL != "" {
		l.doc.RemoveScript(l.loadedURL)
		// The old script is gone now; forget it even if the insert below
		// fails, so a retry of either environment re-inserts.
		l.loadedURL = ""
	}

	if err := l.doc.InsertScript(url); err != nil {
		return fmt.Errorf("loading tokenization script: %w", err)
	}

	l.loadedURL = url
	return nil
}

// LoadedURL returns the URL of the currently loaded script, or "".
func (l *ScriptLoader) LoadedURL() string {
	return l.loadedURL
}
