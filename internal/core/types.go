// Package core provides the install pipeline for mcplink: decoding install
// requests, fetching pinned sources, rewriting launch commands, and keeping
// the host app's MCP configuration file in sync.
// It has zero UI dependencies and is independently testable.
package core

import (
	"encoding/json"
	"fmt"
	"sort"
)

// serversKey is the top-level key of the host config holding server entries.
const serversKey = "mcpServers"

// ServerLaunchSpec describes how the host app starts one MCP server process.
type ServerLaunchSpec struct {
	Command string            `json:"command" yaml:"command"`
	Args    []string          `json:"args" yaml:"args"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// Clone returns a deep copy of s.
func (s ServerLaunchSpec) Clone() ServerLaunchSpec {
	out := ServerLaunchSpec{Command: s.Command}
	if s.Args != nil {
		out.Args = append([]string(nil), s.Args...)
	}
	if s.Env != nil {
		out.Env = make(map[string]string, len(s.Env))
		for k, v := range s.Env {
			out.Env[k] = v
		}
	}
	return out
}

// GitSource pins the source tree a server is launched from.
type GitSource struct {
	RepoURL string `json:"repo_url"`
	Commit  string `json:"commit"`
}

// InstallDescriptor is a decoded install request. Servers always holds
// exactly one entry once it has passed DecodeInstallURL.
type InstallDescriptor struct {
	Servers map[string]ServerLaunchSpec `json:"config"`
	Git     *GitSource                  `json:"git,omitempty"`
}

// Server returns the single server carried by the descriptor.
func (d *InstallDescriptor) Server() (string, ServerLaunchSpec) {
	for name, spec := range d.Servers {
		return name, spec
	}
	return "", ServerLaunchSpec{}
}

// HostConfig is the parsed view of the host app's configuration file.
// Fields holds every top-level field other than mcpServers as raw bytes so
// it can be handed on without re-encoding.
type HostConfig struct {
	Servers map[string]ServerLaunchSpec
	Fields  map[string]json.RawMessage
}

// ServerNames returns the configured server names in sorted order.
func (c *HostConfig) ServerNames() []string {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON renders the document as a single JSON object.
func (c HostConfig) MarshalJSON() ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(c.Fields)+1)
	for k, v := range c.Fields {
		doc[k] = v
	}
	servers := c.Servers
	if servers == nil {
		servers = map[string]ServerLaunchSpec{}
	}
	raw, err := json.Marshal(servers)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", serversKey, err)
	}
	doc[serversKey] = raw
	return json.Marshal(doc)
}

// NotificationType is the severity of a user-facing notification.
type NotificationType string

const (
	NotifyError   NotificationType = "error"
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
)

// Notification is the single outcome message emitted per install attempt.
type Notification struct {
	Type    NotificationType `json:"type"`
	Title   string           `json:"title,omitempty"`
	Message string           `json:"message"`
}

// Notifier receives install outcomes.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }
