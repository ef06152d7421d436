// protocol_test.go: tests for the wire codec
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package barkplugins

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeConnect_ReservedNameKey(t *testing.T) {
	cfg := ProviderConfig{
		Name:   "work server",
		Values: map[string]string{"host": "example.com", "port": "21"},
	}
	line, err := EncodeConnect(cfg)
	require.NoError(t, err)

	var req struct {
		Command string            `json:"command"`
		Config  map[string]string `json:"config"`
	}
	require.NoError(t, json.Unmarshal(line, &req))
	assert.Equal(t, "connect", req.Command)
	assert.Equal(t, "work server", req.Config["name"])
	assert.Equal(t, "example.com", req.Config["host"])
	assert.Equal(t, "21", req.Config["port"])
}

func TestProviderConfig_WireRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.String().Draw(t, "name")
		keys := rapid.SliceOfDistinct(
			rapid.StringMatching(`[a-z_]{1,12}`).Filter(func(s string) bool { return s != "name" }),
			func(s string) string { return s },
		).Draw(t, "keys")

		cfg := ProviderConfig{Name: name, Values: map[string]string{}}
		for _, k := range keys {
			cfg.Values[k] = rapid.String().Draw(t, "value")
		}

		got := decodeProviderConfig(encodeProviderConfig(cfg))
		if got.Name != cfg.Name {
			t.Fatalf("Name changed across the wire: %q != %q", got.Name, cfg.Name)
		}
		if len(got.Values) != len(cfg.Values) {
			t.Fatalf("Value count changed: %d != %d", len(got.Values), len(cfg.Values))
		}
		for k, v := range cfg.Values {
			if got.Values[k] != v {
				t.Fatalf("Value %q changed: %q != %q", k, got.Values[k], v)
			}
		}
	})
}

func TestEncodeCopyFile_WireName(t *testing.T) {
	line, err := EncodeCopyFile("s1", "/a", "/b")
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(line, &req))
	assert.Equal(t, "copy", req["command"])
	assert.Equal(t, "/a", req["from"])
	assert.Equal(t, "/b", req["to"])
}

func TestEncodeWriteFile_Base64(t *testing.T) {
	line, err := EncodeWriteFile("s1", "/f", []byte("hello"))
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(line, &req))
	assert.Equal(t, "aGVsbG8=", req["data"])
}

func TestEncodeSetAttributes_OptionalModified(t *testing.T) {
	line, err := EncodeSetAttributes("s1", "/f", nil, 0o644)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(line, &req))
	_, hasModified := req["modified"]
	assert.False(t, hasModified, "Absent mtime must not appear on the wire")

	when := time.Unix(1700000000, 0)
	line, err = EncodeSetAttributes("s1", "/f", &when, 0o644)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(line, &req))
	assert.Equal(t, float64(1700000000), req["modified"])
}

func TestDecode_NotJSON(t *testing.T) {
	err := DecodeSuccess("this is not json")
	require.Error(t, err)
	assert.True(t, IsProtocolError(err), "Expected protocol error, got %v", err)
}

func TestDecode_ErrorFieldWins(t *testing.T) {
	// A response carrying both success and error shapes is a failure.
	err := DecodeSuccess(`{"success":true,"error":"backend on fire"}`)
	require.Error(t, err)
	assert.Equal(t, ProviderErrUnspecified, ProviderErrorClass(err))
}

func TestDecode_ErrorTypes(t *testing.T) {
	tests := []struct {
		name string
		line string
		want ProviderErrorType
	}{
		{"declared auth", `{"error":"bad password","error_type":"auth"}`, ProviderErrAuth},
		{"declared not_found", `{"error":"gone","error_type":"not_found"}`, ProviderErrNotFound},
		{"unknown type degrades", `{"error":"x","error_type":"weird"}`, ProviderErrUnspecified},
		{"missing type degrades", `{"error":"x"}`, ProviderErrUnspecified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DecodeSuccess(tt.line)
			require.Error(t, err)
			assert.Equal(t, tt.want, ProviderErrorClass(err))
		})
	}
}

func TestDecodeConnect(t *testing.T) {
	result, err := DecodeConnect(`{"success":true,"session_id":"abc","short_label":"ftp"}`)
	require.NoError(t, err)
	assert.Equal(t, "abc", result.SessionID)
	assert.Equal(t, "ftp", result.ShortLabel)

	// Missing session_id on success is a protocol violation.
	_, err = DecodeConnect(`{"success":true}`)
	require.Error(t, err)
	assert.True(t, IsProtocolError(err))

	// Refusal without error_type defaults to the connection class.
	_, err = DecodeConnect(`{"error":"refused"}`)
	require.Error(t, err)
	assert.Equal(t, ProviderErrConnection, ProviderErrorClass(err))
}

func TestDecodeValidateConfig(t *testing.T) {
	require.NoError(t, DecodeValidateConfig(`{"valid":true}`))

	err := DecodeValidateConfig(`{"valid":false}`)
	require.Error(t, err)
	assert.Equal(t, ProviderErrConfig, ProviderErrorClass(err))

	err = DecodeValidateConfig(`{"error":"port out of range"}`)
	require.Error(t, err)
	assert.Equal(t, ProviderErrConfig, ProviderErrorClass(err))
}

func TestDecodeEntries(t *testing.T) {
	line := `{"entries":[
		{"name":"a.txt","size":12,"modified":1700000000},
		{"name":".git","is_dir":true},
		{"name":"visible","is_hidden":true},
		{"name":"."},
		{"name":".."},
		{"name":""},
		{"name":"b.txt","path":"/custom/b.txt"}
	]}`

	entries, err := DecodeEntries(line, "/docs")
	require.NoError(t, err)
	require.Len(t, entries, 4, "Dot and empty entries must be dropped")

	assert.Equal(t, "/docs/a.txt", entries[0].Path)
	assert.Equal(t, time.Unix(1700000000, 0), entries[0].Modified)
	assert.False(t, entries[0].IsHidden)

	assert.True(t, entries[1].IsHidden, "Dot name defaults to hidden")
	assert.True(t, entries[2].IsHidden, "Explicit is_hidden wins over the name")
	assert.Equal(t, "/custom/b.txt", entries[3].Path, "Plugin-supplied path wins")
}

func TestDecodeEntries_RootPath(t *testing.T) {
	entries, err := DecodeEntries(`{"entries":[{"name":"etc","is_dir":true}]}`, "/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/etc", entries[0].Path, "Root listing must not produce //etc")
}

func TestDecodeData(t *testing.T) {
	data, err := DecodeData(`{"data":"aGVsbG8="}`)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = DecodeData(`{"data":"%%%"}`)
	require.Error(t, err)
	assert.True(t, IsProtocolError(err))

	_, err = DecodeData(`{}`)
	require.Error(t, err)
	assert.True(t, IsProtocolError(err))
}

func TestDecodeDialogFields(t *testing.T) {
	line := `{"fields":[
		{"id":"host","label":"Host","type":"text","required":true},
		{"id":"secret","type":"password"},
		{"id":"mode","type":"select","options":[{"value":"fast"},{"value":"safe","label":"Safe mode"}]},
		{"id":"exotic","type":"hologram"},
		{"label":"no id"}
	]}`

	fields, err := DecodeDialogFields(line)
	require.NoError(t, err)
	require.Len(t, fields, 4, "Field without id must be dropped")

	assert.Equal(t, FieldText, fields[0].Type)
	assert.True(t, fields[0].Required)
	assert.Equal(t, "secret", fields[1].Label, "Label falls back to the id")
	assert.Equal(t, FieldPassword, fields[1].Type)

	require.Len(t, fields[2].Options, 2)
	assert.Equal(t, "fast", fields[2].Options[0].Label, "Option label falls back to the value")
	assert.Equal(t, "Safe mode", fields[2].Options[1].Label)

	assert.Equal(t, FieldText, fields[3].Type, "Unknown field type degrades to text")
}

func TestDecodeViewerRender(t *testing.T) {
	render, err := DecodeViewerRender(`{"lines":["a","b"],"total_lines":100}`)
	require.NoError(t, err)
	assert.Equal(t, 100, render.TotalLines)

	render, err = DecodeViewerRender(`{"lines":["a","b"]}`)
	require.NoError(t, err)
	assert.Equal(t, 2, render.TotalLines, "total_lines defaults to delivered count")
}

func TestDecodeViewerProbe(t *testing.T) {
	probe, err := DecodeViewerProbe(`{"can_handle":true,"priority":15}`)
	require.NoError(t, err)
	assert.True(t, probe.CanHandle)
	assert.Equal(t, 15, probe.Priority)
}

func TestDecodeStatusText(t *testing.T) {
	text, err := DecodeStatusText(`{"text":"42 lines"}`)
	require.NoError(t, err)
	assert.Equal(t, "42 lines", text)
}
