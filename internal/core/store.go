package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const configIOMessage = "The app's configuration file could not be updated."

// ConfigStore gives read-modify-write access to the host app's MCP
// configuration file. Every call reads the file fresh; mutations edit only
// the affected mcpServers entry so all other bytes of the document survive.
//
// Mutations hold an in-process mutex and an advisory lock on <path>.lock,
// so separate mcplink processes writing the same file are serialized too.
type ConfigStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewConfigStore creates a store for the config file at path, creating the
// file (and its parent directories) as an empty JSON object if absent.
func NewConfigStore(path string, logger *slog.Logger) (*ConfigStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, newError(KindConfigIO, configIOMessage, err, "resolving config path %s", path)
	}
	s := &ConfigStore{path: abs, logger: logger}
	if err := s.bootstrap(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the absolute path of the config file.
func (s *ConfigStore) Path() string { return s.path }

func (s *ConfigStore) bootstrap() error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return newError(KindConfigIO, configIOMessage, err, "checking %s", s.path)
	}
	s.logger.Debug("creating empty host config", "path", s.path)
	return s.write([]byte("{}\n"))
}

// Load reads and parses the whole document.
func (s *ConfigStore) Load(ctx context.Context) (*HostConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.read()
	if err != nil {
		return nil, err
	}
	return ParseHostConfig(data)
}

// Get returns every configured server. A document without mcpServers
// yields an empty map.
func (s *ConfigStore) Get(ctx context.Context) (map[string]ServerLaunchSpec, error) {
	cfg, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.Servers, nil
}

// Set inserts or overwrites the entry for name.
func (s *ConfigStore) Set(ctx context.Context, name string, spec ServerLaunchSpec) error {
	if name == "" {
		return newError(KindConfigIO, configIOMessage, nil, "empty server name")
	}
	value, err := json.Marshal(spec)
	if err != nil {
		return newError(KindConfigIO, configIOMessage, err, "marshaling server %q", name)
	}

	return s.update(ctx, func(data []byte) ([]byte, bool, error) {
		if err := checkServersObject(data); err != nil {
			return nil, false, err
		}
		out, err := sjson.SetRawBytes(data, serverPath(name), value)
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	})
}

// Delete removes the entry for name. Removing an absent entry is a no-op.
func (s *ConfigStore) Delete(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	return s.update(ctx, func(data []byte) ([]byte, bool, error) {
		if !gjson.GetBytes(data, serverPath(name)).Exists() {
			return nil, false, nil
		}
		out, err := sjson.DeleteBytes(data, serverPath(name))
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	})
}

// update runs one locked read-modify-write cycle. fn reports whether the
// document changed; unchanged documents are not rewritten.
func (s *ConfigStore) update(ctx context.Context, fn func([]byte) ([]byte, bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	data, err := s.read()
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return newError(KindConfigIO, configIOMessage, nil, "%s is not a JSON object", s.path)
	}

	out, changed, err := fn(data)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return err
		}
		return newError(KindConfigIO, configIOMessage, err, "editing %s", s.path)
	}
	if !changed {
		return nil
	}
	return s.write(out)
}

// lock serializes a read-modify-write cycle within this process and
// across processes.
func (s *ConfigStore) lock() (func(), error) {
	s.mu.Lock()
	release, err := acquireFileLock(s.path)
	if err != nil {
		s.mu.Unlock()
		return nil, newError(KindConfigIO, configIOMessage, err, "locking %s", s.path)
	}
	return func() {
		release()
		s.mu.Unlock()
	}, nil
}

func (s *ConfigStore) read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, newError(KindConfigIO, "The app's configuration file could not be read.", err, "reading %s", s.path)
	}
	return data, nil
}

// write replaces the file atomically: temp file in the same directory,
// fsync, then rename over the original.
func (s *ConfigStore) write(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return newError(KindConfigIO, configIOMessage, err, "creating directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return newError(KindConfigIO, configIOMessage, err, "creating temp file in %s", dir)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return newError(KindConfigIO, configIOMessage, err, "writing temp file %s", tmpPath)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return newError(KindConfigIO, configIOMessage, err, "syncing temp file %s", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return newError(KindConfigIO, configIOMessage, err, "closing temp file %s", tmpPath)
	}
	if info, err := os.Stat(s.path); err == nil {
		_ = os.Chmod(tmpPath, info.Mode().Perm())
	} else {
		_ = os.Chmod(tmpPath, 0o644)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		cleanup()
		return newError(KindConfigIO, configIOMessage, err, "renaming temp file to %s", s.path)
	}
	return nil
}

// ParseHostConfig parses a host config document. Passthrough fields are
// kept as raw bytes exactly as they appear in data.
func ParseHostConfig(data []byte) (*HostConfig, error) {
	if !gjson.ValidBytes(data) {
		return nil, newError(KindConfigIO, "The app's configuration file is not valid JSON.", nil, "invalid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, newError(KindConfigIO, "The app's configuration file is not valid JSON.", nil,
			"top-level value is %s, want object", root.Type)
	}

	cfg := &HostConfig{
		Servers: map[string]ServerLaunchSpec{},
		Fields:  map[string]json.RawMessage{},
	}
	var parseErr error
	root.ForEach(func(key, value gjson.Result) bool {
		if key.String() != serversKey {
			cfg.Fields[key.String()] = json.RawMessage(value.Raw)
			return true
		}
		if value.Type == gjson.Null {
			return true
		}
		if !value.IsObject() {
			parseErr = newError(KindConfigIO, "The app's configuration file has an unexpected format.", nil,
				"%s is %s, want object", serversKey, value.Type)
			return false
		}
		if err := json.Unmarshal([]byte(value.Raw), &cfg.Servers); err != nil {
			parseErr = newError(KindConfigIO, "The app's configuration file has an unexpected format.", err,
				"decoding %s", serversKey)
			return false
		}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return cfg, nil
}

// checkServersObject rejects documents whose mcpServers is present but not
// an object, which sjson would otherwise silently convert.
func checkServersObject(data []byte) error {
	v := gjson.GetBytes(data, serversKey)
	if !v.Exists() || v.Type == gjson.Null || v.IsObject() {
		return nil
	}
	return newError(KindConfigIO, "The app's configuration file has an unexpected format.", nil,
		"%s is %s, want object", serversKey, v.Type)
}

// serverPath builds the gjson/sjson path for a server entry. Every
// character outside [A-Za-z0-9_-] is escaped so names containing path
// syntax (dots, wildcards, pipes) address a single literal key.
func serverPath(name string) string {
	var b strings.Builder
	b.WriteString(serversKey)
	b.WriteByte('.')
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-') {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// String implements fmt.Stringer for log output.
func (s *ConfigStore) String() string { return fmt.Sprintf("ConfigStore(%s)", s.path) }
