package transport

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/term"
)

// ClientContext describes the environment a decision was made in. It is
// merged under the caller's metadata on every submission.
type ClientContext struct {
	UserAgent        string
	ScreenResolution string
}

// ContextProvider supplies the ClientContext for a submission.
type ContextProvider interface {
	ClientContext() ClientContext
}

// ContextProviderFunc adapts a function to ContextProvider.
type ContextProviderFunc func() ClientContext

func (f ContextProviderFunc) ClientContext() ClientContext { return f() }

// StaticContext always returns the same values.
func StaticContext(userAgent, screen string) ContextProvider {
	return ContextProviderFunc(func() ClientContext {
		return ClientContext{UserAgent: userAgent, ScreenResolution: screen}
	})
}

// UserAgent identifies this library on the wire.
var UserAgent = "saferoom-feedback"

// HostContext reports the library user agent and, when stdout is a
// terminal, its size in columns x rows.
func HostContext() ContextProvider {
	return ContextProviderFunc(func() ClientContext {
		screen := "unknown"
		if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
			if w, h, err := term.GetSize(fd); err == nil {
				screen = fmt.Sprintf("%dx%d", w, h)
			}
		}
		return ClientContext{
			UserAgent:        fmt.Sprintf("%s (%s; %s)", UserAgent, runtime.GOOS, runtime.GOARCH),
			ScreenResolution: screen,
		}
	})
}

func (c ClientContext) metadata() map[string]any {
	return map[string]any{
		"user_agent":        c.UserAgent,
		"screen_resolution": c.ScreenResolution,
	}
}
