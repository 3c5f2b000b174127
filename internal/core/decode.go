package core

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// URLScheme is the custom scheme the OS routes to `mcplink open`.
const URLScheme = "mcplink"

const invalidRequestMessage = "The install link is invalid or damaged."

// DecodeInstallURL parses an install link into an InstallDescriptor.
//
// Accepted forms:
//   - "mcplink://<base64>"
//   - "mcplink:<base64>"
//   - "<base64>"
//
// The payload may use the standard or URL-safe base64 alphabet, with or
// without padding. Every failure is a KindValidation *Error.
func DecodeInstallURL(raw string) (*InstallDescriptor, error) {
	payload := stripScheme(strings.TrimSpace(raw))
	if unescaped, err := url.PathUnescape(payload); err == nil {
		payload = unescaped
	}
	if strings.Trim(payload, "/") == "" {
		return nil, newError(KindValidation, invalidRequestMessage, nil, "empty install payload")
	}

	// Some launchers append a slash to the URL; '/' is also a valid
	// base64 character, so the untrimmed payload is tried first.
	data, err := decodeBase64(payload)
	if err != nil && strings.HasSuffix(payload, "/") {
		data, err = decodeBase64(strings.TrimRight(payload, "/"))
	}
	if err != nil {
		return nil, newError(KindValidation, invalidRequestMessage, err, "payload is not valid base64")
	}

	var desc InstallDescriptor
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&desc); err != nil {
		return nil, newError(KindValidation, invalidRequestMessage, err, "payload is not a valid install descriptor")
	}
	if dec.More() {
		return nil, newError(KindValidation, invalidRequestMessage, nil, "trailing data after install descriptor")
	}

	if err := validateDescriptor(&desc); err != nil {
		return nil, err
	}
	return &desc, nil
}

// EncodeInstallURL renders a descriptor as an install link.
func EncodeInstallURL(desc *InstallDescriptor) (string, error) {
	if err := validateDescriptor(desc); err != nil {
		return "", err
	}
	data, err := json.Marshal(desc)
	if err != nil {
		return "", fmt.Errorf("marshaling descriptor: %w", err)
	}
	return URLScheme + "://" + base64.StdEncoding.EncodeToString(data), nil
}

func stripScheme(raw string) string {
	lower := strings.ToLower(raw)
	for _, prefix := range []string{URLScheme + "://", URLScheme + ":"} {
		if strings.HasPrefix(lower, prefix) {
			return raw[len(prefix):]
		}
	}
	return raw
}

func decodeBase64(payload string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	var firstErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(payload)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

func validateDescriptor(desc *InstallDescriptor) error {
	if desc == nil {
		return newError(KindValidation, invalidRequestMessage, nil, "missing install descriptor")
	}
	if len(desc.Servers) != 1 {
		return newError(KindValidation,
			"An install link must describe exactly one server.", nil,
			"config has %d entries, want exactly 1", len(desc.Servers))
	}
	name, spec := desc.Server()
	if strings.TrimSpace(name) == "" {
		return newError(KindValidation, invalidRequestMessage, nil, "server name is empty")
	}
	if strings.TrimSpace(spec.Command) == "" {
		return newError(KindValidation, invalidRequestMessage, nil, "server %q has no command", name)
	}
	if desc.Git != nil {
		if strings.TrimSpace(desc.Git.RepoURL) == "" || strings.TrimSpace(desc.Git.Commit) == "" {
			return newError(KindValidation, invalidRequestMessage, nil, "git source needs both repo_url and commit")
		}
	}
	return nil
}
