// protocol.go: wire codec for the line-delimited JSON plugin protocol
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package barkplugins

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// The wire protocol is UTF-8 text, one JSON object per line, newline
// terminated, no other framing. Requests carry a "command" string
// discriminator; responses signal failure through an "error" string
// field with an optional "error_type" drawn from the closed set
// {connection, auth, not_found, permission, config}.
//
// The codec is stateless: encode functions produce a single line
// (without the newline terminator, which Transport.Send appends) and
// decode functions parse a single received line into a typed result or
// an error. Binary payloads cross the boundary as base64 strings;
// callers on both sides work with raw bytes.

// Wire command names. copy_file is historically named "copy" on the wire.
const (
	cmdGetDialogFields = "get_dialog_fields"
	cmdValidateConfig  = "validate_config"
	cmdConnect         = "connect"
	cmdDisconnect      = "disconnect"
	cmdListDirectory   = "list_directory"
	cmdReadFile        = "read_file"
	cmdWriteFile       = "write_file"
	cmdDelete          = "delete"
	cmdMkdir           = "mkdir"
	cmdRename          = "rename"
	cmdCopy            = "copy"
	cmdSetAttributes   = "set_attributes"
	cmdViewerCanHandle = "viewer_can_handle"
	cmdViewerRender    = "viewer_render"
	cmdStatusRender    = "status_render"
)

// Request encoding

type wireRequest struct {
	Command       string            `json:"command"`
	Config        map[string]string `json:"config,omitempty"`
	SessionID     string            `json:"session_id,omitempty"`
	Path          string            `json:"path,omitempty"`
	From          string            `json:"from,omitempty"`
	To            string            `json:"to,omitempty"`
	Data          string            `json:"data,omitempty"`
	Recursive     bool              `json:"recursive,omitempty"`
	Modified      *int64            `json:"modified,omitempty"`
	Permissions   *uint32           `json:"permissions,omitempty"`
	Width         *int              `json:"width,omitempty"`
	Height        *int              `json:"height,omitempty"`
	Scroll        *int              `json:"scroll,omitempty"`
	SelectedFile  *string           `json:"selected_file,omitempty"`
	IsDir         *bool             `json:"is_dir,omitempty"`
	FileSize      *int64            `json:"file_size,omitempty"`
	SelectedCount *int              `json:"selected_count,omitempty"`
}

func encodeRequest(req wireRequest) ([]byte, error) {
	line, err := json.Marshal(req)
	if err != nil {
		return nil, NewEncodingError("failed to marshal request", err)
	}
	return line, nil
}

// encodeProviderConfig flattens a ProviderConfig into the wire map.
// The connection name travels under the reserved "name" key.
func encodeProviderConfig(cfg ProviderConfig) map[string]string {
	flat := make(map[string]string, len(cfg.Values)+1)
	for k, v := range cfg.Values {
		flat[k] = v
	}
	flat["name"] = cfg.Name
	return flat
}

// decodeProviderConfig is the receiving-side inverse of
// encodeProviderConfig; encode followed by decode yields the identical
// flat string map.
func decodeProviderConfig(flat map[string]string) ProviderConfig {
	cfg := ProviderConfig{Values: make(map[string]string, len(flat))}
	for k, v := range flat {
		if k == "name" {
			cfg.Name = v
			continue
		}
		cfg.Values[k] = v
	}
	return cfg
}

func EncodeGetDialogFields() ([]byte, error) {
	return encodeRequest(wireRequest{Command: cmdGetDialogFields})
}

func EncodeValidateConfig(cfg ProviderConfig) ([]byte, error) {
	return encodeRequest(wireRequest{Command: cmdValidateConfig, Config: encodeProviderConfig(cfg)})
}

func EncodeConnect(cfg ProviderConfig) ([]byte, error) {
	return encodeRequest(wireRequest{Command: cmdConnect, Config: encodeProviderConfig(cfg)})
}

func EncodeDisconnect(sessionID string) ([]byte, error) {
	return encodeRequest(wireRequest{Command: cmdDisconnect, SessionID: sessionID})
}

func EncodeListDirectory(sessionID, path string) ([]byte, error) {
	return encodeRequest(wireRequest{Command: cmdListDirectory, SessionID: sessionID, Path: path})
}

func EncodeReadFile(sessionID, path string) ([]byte, error) {
	return encodeRequest(wireRequest{Command: cmdReadFile, SessionID: sessionID, Path: path})
}

func EncodeWriteFile(sessionID, path string, data []byte) ([]byte, error) {
	return encodeRequest(wireRequest{
		Command:   cmdWriteFile,
		SessionID: sessionID,
		Path:      path,
		Data:      base64.StdEncoding.EncodeToString(data),
	})
}

func EncodeDelete(sessionID, path string, recursive bool) ([]byte, error) {
	return encodeRequest(wireRequest{Command: cmdDelete, SessionID: sessionID, Path: path, Recursive: recursive})
}

func EncodeMkdir(sessionID, path string) ([]byte, error) {
	return encodeRequest(wireRequest{Command: cmdMkdir, SessionID: sessionID, Path: path})
}

func EncodeRename(sessionID, from, to string) ([]byte, error) {
	return encodeRequest(wireRequest{Command: cmdRename, SessionID: sessionID, From: from, To: to})
}

func EncodeCopyFile(sessionID, from, to string) ([]byte, error) {
	return encodeRequest(wireRequest{Command: cmdCopy, SessionID: sessionID, From: from, To: to})
}

// EncodeSetAttributes carries an optional modification time (unix
// seconds, null when absent) and unix permission bits.
func EncodeSetAttributes(sessionID, path string, modified *time.Time, permissions uint32) ([]byte, error) {
	var mtime *int64
	if modified != nil && !modified.IsZero() {
		secs := modified.Unix()
		mtime = &secs
	}
	return encodeRequest(wireRequest{
		Command:     cmdSetAttributes,
		SessionID:   sessionID,
		Path:        path,
		Modified:    mtime,
		Permissions: &permissions,
	})
}

func EncodeViewerCanHandle(path string) ([]byte, error) {
	return encodeRequest(wireRequest{Command: cmdViewerCanHandle, Path: path})
}

func EncodeViewerRender(path string, width, height, scroll int) ([]byte, error) {
	return encodeRequest(wireRequest{
		Command: cmdViewerRender,
		Path:    path,
		Width:   &width,
		Height:  &height,
		Scroll:  &scroll,
	})
}

func EncodeStatusRender(sc StatusContext) ([]byte, error) {
	var selected *string
	if sc.SelectedFile != "" {
		selected = &sc.SelectedFile
	}
	return encodeRequest(wireRequest{
		Command:       cmdStatusRender,
		Path:          sc.Path,
		SelectedFile:  selected,
		IsDir:         &sc.IsDir,
		FileSize:      &sc.FileSize,
		SelectedCount: &sc.SelectedCount,
	})
}

// Response decoding

type respEnvelope struct {
	Error     *string `json:"error"`
	ErrorType string  `json:"error_type"`
}

// decodeEnvelope parses the failure envelope shared by all responses.
// A line that is not valid JSON is a protocol error, distinct from a
// well-formed {"error": ...} response.
func decodeEnvelope(line string) (*respEnvelope, error) {
	var env respEnvelope
	if err := json.Unmarshal([]byte(line), &env); err != nil {
		return nil, NewProtocolError("response is not a JSON object", err)
	}
	return &env, nil
}

// envelopeError converts a failure envelope into the typed provider
// error. The error field wins even when success-shaped fields are also
// present. Unknown error_type values degrade to the default class.
func envelopeError(env *respEnvelope, defaultType ProviderErrorType) error {
	if env.Error == nil {
		return nil
	}
	errType := defaultType
	switch ProviderErrorType(env.ErrorType) {
	case ProviderErrConnection, ProviderErrAuth, ProviderErrNotFound,
		ProviderErrPermission, ProviderErrConfig:
		errType = ProviderErrorType(env.ErrorType)
	}
	return NewProviderError(errType, *env.Error)
}

// checkFailure runs the common error-first decode step.
func checkFailure(line string, defaultType ProviderErrorType) error {
	env, err := decodeEnvelope(line)
	if err != nil {
		return err
	}
	return envelopeError(env, defaultType)
}

type wireDialogOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type wireDialogField struct {
	ID          string             `json:"id"`
	Label       string             `json:"label"`
	Type        string             `json:"type"`
	Required    bool               `json:"required"`
	Default     string             `json:"default"`
	Placeholder string             `json:"placeholder"`
	Help        string             `json:"help"`
	Options     []wireDialogOption `json:"options"`
}

// DecodeDialogFields parses a get_dialog_fields response. Fields with
// an empty id are dropped; unrecognized field types degrade to text,
// matching what existing plugins rely on.
func DecodeDialogFields(line string) ([]DialogField, error) {
	if err := checkFailure(line, ProviderErrUnspecified); err != nil {
		return nil, err
	}

	var resp struct {
		Fields []wireDialogField `json:"fields"`
	}
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return nil, NewProtocolError("malformed dialog fields response", err)
	}

	fields := make([]DialogField, 0, len(resp.Fields))
	for _, wf := range resp.Fields {
		if wf.ID == "" {
			continue
		}
		field := DialogField{
			ID:          wf.ID,
			Label:       wf.Label,
			Type:        parseDialogFieldType(wf.Type),
			Required:    wf.Required,
			Default:     wf.Default,
			Placeholder: wf.Placeholder,
			Help:        wf.Help,
		}
		if field.Label == "" {
			field.Label = wf.ID
		}
		if field.Type == FieldSelect {
			for _, opt := range wf.Options {
				if opt.Value == "" {
					continue
				}
				label := opt.Label
				if label == "" {
					label = opt.Value
				}
				field.Options = append(field.Options, SelectOption{Value: opt.Value, Label: label})
			}
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func parseDialogFieldType(s string) DialogFieldType {
	switch s {
	case "password":
		return FieldPassword
	case "number":
		return FieldNumber
	case "checkbox":
		return FieldCheckbox
	case "select":
		return FieldSelect
	case "textarea":
		return FieldTextArea
	case "file", "filepath":
		return FieldFilePath
	default:
		return FieldText
	}
}

// DecodeValidateConfig parses a validate_config response. A rejection
// without an explicit error_type is classified as a config error.
func DecodeValidateConfig(line string) error {
	if err := checkFailure(line, ProviderErrConfig); err != nil {
		return err
	}

	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return NewProtocolError("malformed validate_config response", err)
	}
	if !resp.Valid {
		return NewProviderError(ProviderErrConfig, "configuration rejected by provider")
	}
	return nil
}

// ConnectResult is the decoded success shape of a connect response.
type ConnectResult struct {
	SessionID  string
	ShortLabel string
}

// DecodeConnect parses a connect response. The session_id is required
// on success; its absence is a protocol violation.
func DecodeConnect(line string) (ConnectResult, error) {
	if err := checkFailure(line, ProviderErrConnection); err != nil {
		return ConnectResult{}, err
	}

	var resp struct {
		Success    bool   `json:"success"`
		SessionID  string `json:"session_id"`
		ShortLabel string `json:"short_label"`
	}
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return ConnectResult{}, NewProtocolError("malformed connect response", err)
	}
	if !resp.Success {
		return ConnectResult{}, NewProviderError(ProviderErrConnection, "connection refused by provider")
	}
	if resp.SessionID == "" {
		return ConnectResult{}, NewProtocolError("connect response missing session_id", nil)
	}
	return ConnectResult{SessionID: resp.SessionID, ShortLabel: resp.ShortLabel}, nil
}

// DecodeSuccess parses the generic {"success": true} response shape
// shared by write_file, delete, mkdir, rename and copy.
func DecodeSuccess(line string) error {
	if err := checkFailure(line, ProviderErrUnspecified); err != nil {
		return err
	}

	var resp struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return NewProtocolError("malformed response", err)
	}
	if !resp.Success {
		return NewProviderError(ProviderErrUnspecified, "operation failed")
	}
	return nil
}

type wireFileEntry struct {
	Name          string  `json:"name"`
	Path          string  `json:"path"`
	IsDir         bool    `json:"is_dir"`
	Size          int64   `json:"size"`
	Modified      *int64  `json:"modified"`
	IsHidden      *bool   `json:"is_hidden"`
	Permissions   uint32  `json:"permissions"`
	IsSymlink     bool    `json:"is_symlink"`
	SymlinkTarget string  `json:"symlink_target"`
	Owner         string  `json:"owner"`
	Group         string  `json:"group"`
}

// DecodeEntries parses a list_directory response. Dot entries are
// dropped defensively even though plugins must not send them; the host
// layer injects ".." itself. Entry paths default to requestPath/name
// when the plugin does not report one, and hiddenness defaults to the
// unix dot-file convention.
func DecodeEntries(line, requestPath string) ([]FileEntry, error) {
	if err := checkFailure(line, ProviderErrUnspecified); err != nil {
		return nil, err
	}

	var resp struct {
		Entries []wireFileEntry `json:"entries"`
	}
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return nil, NewProtocolError("malformed list_directory response", err)
	}

	base := requestPath
	if base == "/" {
		base = ""
	}

	entries := make([]FileEntry, 0, len(resp.Entries))
	for _, we := range resp.Entries {
		if we.Name == "" || we.Name == "." || we.Name == ".." {
			continue
		}

		entry := FileEntry{
			Name:          we.Name,
			Path:          we.Path,
			IsDir:         we.IsDir,
			Size:          we.Size,
			Permissions:   we.Permissions,
			IsSymlink:     we.IsSymlink,
			SymlinkTarget: we.SymlinkTarget,
			Owner:         we.Owner,
			Group:         we.Group,
		}
		if entry.Path == "" {
			entry.Path = base + "/" + we.Name
		}
		if we.Modified != nil {
			entry.Modified = time.Unix(*we.Modified, 0)
		}
		if we.IsHidden != nil {
			entry.IsHidden = *we.IsHidden
		} else {
			entry.IsHidden = strings.HasPrefix(we.Name, ".")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// DecodeData parses a read_file response and decodes the base64
// payload into raw bytes.
func DecodeData(line string) ([]byte, error) {
	if err := checkFailure(line, ProviderErrUnspecified); err != nil {
		return nil, err
	}

	var resp struct {
		Data *string `json:"data"`
	}
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return nil, NewProtocolError("malformed read_file response", err)
	}
	if resp.Data == nil {
		return nil, NewProtocolError("read_file response missing data", nil)
	}
	data, err := base64.StdEncoding.DecodeString(*resp.Data)
	if err != nil {
		return nil, NewProtocolError("invalid base64 payload", err)
	}
	return data, nil
}

// DecodeViewerProbe parses a viewer_can_handle response.
func DecodeViewerProbe(line string) (ViewerProbe, error) {
	if err := checkFailure(line, ProviderErrUnspecified); err != nil {
		return ViewerProbe{}, err
	}

	var resp struct {
		CanHandle bool `json:"can_handle"`
		Priority  int  `json:"priority"`
	}
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return ViewerProbe{}, NewProtocolError("malformed viewer_can_handle response", err)
	}
	return ViewerProbe{CanHandle: resp.CanHandle, Priority: resp.Priority}, nil
}

// DecodeViewerRender parses a viewer_render response. total_lines
// defaults to the delivered line count when omitted.
func DecodeViewerRender(line string) (ViewerRender, error) {
	if err := checkFailure(line, ProviderErrUnspecified); err != nil {
		return ViewerRender{}, err
	}

	var resp struct {
		Lines      []string `json:"lines"`
		TotalLines *int     `json:"total_lines"`
	}
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return ViewerRender{}, NewProtocolError("malformed viewer_render response", err)
	}

	render := ViewerRender{Lines: resp.Lines, TotalLines: len(resp.Lines)}
	if resp.TotalLines != nil {
		render.TotalLines = *resp.TotalLines
	}
	return render, nil
}

// DecodeStatusText parses a status_render response.
func DecodeStatusText(line string) (string, error) {
	if err := checkFailure(line, ProviderErrUnspecified); err != nil {
		return "", err
	}

	var resp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return "", NewProtocolError("malformed status_render response", err)
	}
	return resp.Text, nil
}
