package tools

import (
	"net/http"

	"github.com/GoCodeAlone/coldfront/toolrun"
)

// Options configures the built-in tool set.
type Options struct {
	Workspace string
	Client    *http.Client
	// Browser enables the browser control tools. Nil leaves them out.
	Browser *BrowserManager
}

// RegisterAll adds the built-in tools to a registry.
func RegisterAll(reg *toolrun.Registry, opts Options) {
	reg.Register(&RunCommand{Workspace: opts.Workspace})
	reg.Register(&FileRead{Workspace: opts.Workspace})
	reg.Register(&FileWrite{Workspace: opts.Workspace})
	reg.Register(&FileAppend{Workspace: opts.Workspace})
	reg.Register(&FileList{Workspace: opts.Workspace})
	reg.Register(&FileDelete{Workspace: opts.Workspace})
	reg.Register(&WebGet{Client: opts.Client})
	reg.Register(&WebPost{Client: opts.Client})
	reg.Register(&WebSearch{Client: opts.Client})

	if opts.Browser != nil {
		reg.Register(&BrowserOpen{Manager: opts.Browser})
		reg.Register(&BrowserRead{Manager: opts.Browser})
		reg.Register(&BrowserClick{Manager: opts.Browser})
		reg.Register(&BrowserFill{Manager: opts.Browser})
		reg.Register(&BrowserScreenshot{Manager: opts.Browser, Workspace: opts.Workspace})
		reg.Register(&BrowserClose{Manager: opts.Browser})
	}
}
