package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/stubd/pkg/stub"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		format  stub.Format
		doc     string
		wantErr bool
	}{
		{"single", stub.FormatJSON, singleJSON, false},
		{"list", stub.FormatJSON, `[` + singleJSON + `,` + singleJSON + `]`, false},
		{"wrapped yaml", stub.FormatYAML, listYAML, false},
		{"captures", stub.FormatJSON, `{
			"request": {"urlPathPattern": "/user/.*"},
			"response": {"body": "hello ${name}"},
			"captures": [{"source": "URL", "target": "name", "pattern": "/user/(.*)"}],
			"placeholderDelimiters": ["${", "}"],
			"randomValues": [{"target": "id", "pattern": "XXXX"}]
		}`, false},
		{"missing response", stub.FormatJSON, `{"request": {"url": "/x"}}`, true},
		{"bad status", stub.FormatJSON, `{"request": {}, "response": {"status": 700}}`, true},
		{"bad fault", stub.FormatJSON, `{"request": {}, "response": {"fault": "EXPLODE"}}`, true},
		{"header capture without key", stub.FormatJSON, `{
			"request": {}, "response": {},
			"captures": [{"source": "HEADER", "target": "t"}]
		}`, true},
		{"unknown capture source", stub.FormatJSON, `{
			"request": {}, "response": {},
			"captures": [{"source": "COOKIE", "target": "t"}]
		}`, true},
		{"three delimiters", stub.FormatJSON, `{
			"request": {}, "response": {},
			"placeholderDelimiters": ["<", ">", "!"]
		}`, true},
		{"negative delay", stub.FormatYAML, "request: {}\nresponse:\n  fixedDelayMilliseconds: -1\n", true},
		{"not json", stub.FormatJSON, `{`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument([]byte(tt.doc), tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateDocument_UnsupportedFormat(t *testing.T) {
	err := ValidateDocument([]byte("{}"), stub.Format("toml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, stub.ErrUnsupportedFormat)
}

func TestMappingSchema_IsCopy(t *testing.T) {
	s := MappingSchema()
	require.NotEmpty(t, s)
	s[0] = 'x'
	assert.Equal(t, byte('{'), MappingSchema()[0])
}
