// errors.go: structured error definitions for the plugin runtime
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package barkplugins

import (
	"fmt"

	"github.com/agilira/go-errors"
)

// Error codes for the plugin runtime
const (
	// Discovery errors (1000-1099)
	ErrCodeDiscoveryScan   = "DISCOVERY_1001"
	ErrCodeInfoQuery       = "DISCOVERY_1002"
	ErrCodeInvalidMetadata = "DISCOVERY_1003"

	// Transport errors (1100-1199)
	ErrCodeSpawn            = "TRANSPORT_1101"
	ErrCodeTransportClosed  = "TRANSPORT_1102"
	ErrCodeTransportTimeout = "TRANSPORT_1103"

	// Protocol errors (1200-1299)
	ErrCodeProtocol = "PROTOCOL_1201"
	ErrCodeEncoding = "PROTOCOL_1202"

	// Provider errors carried inside well-formed responses (1300-1399)
	ErrCodeProviderConnection  = "PROVIDER_1301"
	ErrCodeProviderAuth        = "PROVIDER_1302"
	ErrCodeProviderNotFound    = "PROVIDER_1303"
	ErrCodeProviderPermission  = "PROVIDER_1304"
	ErrCodeProviderConfig      = "PROVIDER_1305"
	ErrCodeProviderUnspecified = "PROVIDER_1306"

	// Session errors (1400-1499)
	ErrCodeSessionState = "SESSION_1401"

	// Configuration errors (1500-1599)
	ErrCodeConfigParse      = "CONFIG_1501"
	ErrCodeConfigValidation = "CONFIG_1502"
	ErrCodeConfigWatcher    = "CONFIG_1503"
)

// ProviderErrorType is the closed error vocabulary plugins may attach
// to a failure response via the wire field "error_type".
type ProviderErrorType string

const (
	ProviderErrConnection  ProviderErrorType = "connection"
	ProviderErrAuth        ProviderErrorType = "auth"
	ProviderErrNotFound    ProviderErrorType = "not_found"
	ProviderErrPermission  ProviderErrorType = "permission"
	ProviderErrConfig      ProviderErrorType = "config"
	ProviderErrUnspecified ProviderErrorType = "unspecified"
)

// Discovery error constructors

func NewDiscoveryScanError(dir string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeDiscoveryScan, "Discovery scan failed").
		WithUserMessage("Plugin directory could not be scanned").
		WithContext("directory", dir).
		WithSeverity("error")
}

func NewInfoQueryError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeInfoQuery, "Plugin info query failed").
		WithUserMessage("Plugin did not answer the metadata query").
		WithContext("executable", path).
		WithSeverity("warning")
}

func NewInvalidMetadataError(path string, reason string) *errors.Error {
	return errors.New(ErrCodeInvalidMetadata, "Invalid plugin metadata: "+reason).
		WithUserMessage("Plugin reported unusable metadata").
		WithContext("executable", path).
		WithSeverity("warning")
}

// Transport error constructors

func NewSpawnError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeSpawn, "Failed to spawn plugin process").
		WithUserMessage("Plugin executable could not be launched").
		WithContext("executable", path).
		WithSeverity("error")
}

func NewTransportClosedError(cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeTransportClosed, "Plugin transport closed").
		WithUserMessage("Plugin process exited or closed its pipes").
		WithSeverity("error").
		AsRetryable()
}

func NewTransportTimeoutError(op string) *errors.Error {
	return errors.New(ErrCodeTransportTimeout, "Plugin transport timeout").
		WithUserMessage("Plugin did not respond in time").
		WithContext("operation", op).
		WithSeverity("warning").
		AsRetryable()
}

// Protocol error constructors

func NewProtocolError(message string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeProtocol, "Protocol error: "+message).
			WithUserMessage("Plugin sent a malformed response").
			WithSeverity("error")
	}
	return errors.New(ErrCodeProtocol, "Protocol error: "+message).
		WithUserMessage("Plugin sent a malformed response").
		WithSeverity("error")
}

func NewEncodingError(message string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeEncoding, "Encoding error: "+message).
		WithUserMessage("Request could not be encoded").
		WithSeverity("error")
}

// Provider error constructors

// NewProviderError builds the host-level error for a well-formed
// failure response. The error type is the plugin's declared
// "error_type"; responses without one map to ProviderErrUnspecified.
func NewProviderError(errType ProviderErrorType, message string) *errors.Error {
	var code errors.ErrorCode = ErrCodeProviderUnspecified
	switch errType {
	case ProviderErrConnection:
		code = ErrCodeProviderConnection
	case ProviderErrAuth:
		code = ErrCodeProviderAuth
	case ProviderErrNotFound:
		code = ErrCodeProviderNotFound
	case ProviderErrPermission:
		code = ErrCodeProviderPermission
	case ProviderErrConfig:
		code = ErrCodeProviderConfig
	}

	err := errors.New(code, "Provider error: "+message).
		WithUserMessage(message).
		WithContext("error_type", string(errType)).
		WithSeverity("error")
	if errType == ProviderErrConnection {
		return err.AsRetryable()
	}
	return err
}

// Session error constructors

func NewSessionStateError(state SessionState, op string) *errors.Error {
	return errors.New(ErrCodeSessionState, fmt.Sprintf("Session is %s, cannot %s", state, op)).
		WithUserMessage("The connection is not available").
		WithContext("state", state.String()).
		WithContext("operation", op).
		WithSeverity("warning")
}

// Configuration error constructors

func NewConfigParseError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigParse, "Configuration parse error").
		WithUserMessage("Runtime configuration file could not be parsed").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigValidationError(message string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeConfigValidation, "Configuration validation error: "+message).
			WithUserMessage("Runtime configuration is invalid").
			WithSeverity("error")
	}
	return errors.New(ErrCodeConfigValidation, "Configuration validation error: "+message).
		WithUserMessage("Runtime configuration is invalid").
		WithSeverity("error")
}

func NewConfigWatcherError(message string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeConfigWatcher, "Configuration watcher error: "+message).
			WithUserMessage("Configuration monitoring failed").
			WithSeverity("error")
	}
	return errors.New(ErrCodeConfigWatcher, "Configuration watcher error: "+message).
		WithUserMessage("Configuration monitoring failed").
		WithSeverity("error")
}

// Predicates

func errorCode(err error) string {
	if e, ok := err.(*errors.Error); ok {
		return string(e.ErrorCode())
	}
	return ""
}

// IsTransportClosed reports whether err is the pipe-closed transport failure.
func IsTransportClosed(err error) bool {
	return errorCode(err) == ErrCodeTransportClosed
}

// IsTransportTimeout reports whether err is a transport deadline failure.
func IsTransportTimeout(err error) bool {
	return errorCode(err) == ErrCodeTransportTimeout
}

// IsTransportError reports whether err originated at the transport
// layer (spawn, pipe closure or timeout) rather than inside a
// well-formed plugin response.
func IsTransportError(err error) bool {
	switch errorCode(err) {
	case ErrCodeSpawn, ErrCodeTransportClosed, ErrCodeTransportTimeout:
		return true
	}
	return false
}

// IsProtocolError reports whether err means the response line was not
// valid JSON or violated the expected command shape.
func IsProtocolError(err error) bool {
	code := errorCode(err)
	return code == ErrCodeProtocol || code == ErrCodeEncoding
}

// ProviderErrorClass extracts the semantic error type from a provider
// error, or "" when err does not carry one.
func ProviderErrorClass(err error) ProviderErrorType {
	switch errorCode(err) {
	case ErrCodeProviderConnection:
		return ProviderErrConnection
	case ErrCodeProviderAuth:
		return ProviderErrAuth
	case ErrCodeProviderNotFound:
		return ProviderErrNotFound
	case ErrCodeProviderPermission:
		return ProviderErrPermission
	case ErrCodeProviderConfig:
		return ProviderErrConfig
	case ErrCodeProviderUnspecified:
		return ProviderErrUnspecified
	}
	return ""
}
