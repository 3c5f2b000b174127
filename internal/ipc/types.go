// Package ipc defines the typed channels between the mcplink core and its
// UI. Request/response channels and publish/subscribe topics are declared
// once here as package-level values, so a misspelled channel name is a
// compile error rather than a silently dropped message.
package ipc

import (
	"github.com/barysiuk/mcplink/internal/core"
)

// Channel is a request/response channel carrying Req and answering Resp.
type Channel[Req, Resp any] struct {
	name string
}

// Name returns the channel's wire name.
func (c Channel[Req, Resp]) Name() string { return c.name }

// Topic is a publish/subscribe channel carrying T.
type Topic[T any] struct {
	name string
}

// Name returns the topic's wire name.
func (t Topic[T]) Name() string { return t.name }

// Response wraps every request result.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Empty is the payload of requests and responses that carry no data.
type Empty struct{}

// DeleteServerRequest asks for one server entry to be removed.
type DeleteServerRequest struct {
	ServerName string `json:"serverName"`
}

// ConfigChangedEvent carries the host config after an external edit.
type ConfigChangedEvent struct {
	Document *core.HostConfig `json:"document"`
}

// WatchErrorEvent reports a config file that could not be read or parsed.
type WatchErrorEvent struct {
	Message string `json:"message"`
}

// Request/response channels.
var (
	GetServers   = Channel[Empty, map[string]core.ServerLaunchSpec]{name: "get-servers"}
	DeleteServer = Channel[DeleteServerRequest, Empty]{name: "delete-server"}
)

// Published topics.
var (
	Notify        = Topic[core.Notification]{name: "notify"}
	ConfigChanged = Topic[ConfigChangedEvent]{name: "config-changed"}
	WatchError    = Topic[WatchErrorEvent]{name: "watch-error"}
)

// ChannelNames lists every request channel name.
func ChannelNames() []string {
	return []string{GetServers.Name(), DeleteServer.Name()}
}

// TopicNames lists every topic name.
func TopicNames() []string {
	return []string{Notify.Name(), ConfigChanged.Name(), WatchError.Name()}
}
