package internal

import (
	"strings"
	"testing"

	pkgerrs "github.com/jamesprial/go-scratch-api-wrapper/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireConfigField(t *testing.T, err error, field string) {
	t.Helper()
	var cfgErr *pkgerrs.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, field, cfgErr.Field)
}

func TestValidator_ValidateListing(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name                    string
		limit, offset, pageSize int
		wantField               string
	}{
		{name: "defaults", limit: 40, offset: 0, pageSize: 40},
		{name: "zero limit", limit: 0, offset: 10, pageSize: 1},
		{name: "negative limit", limit: -1, pageSize: 40, wantField: "limit"},
		{name: "negative offset", limit: 1, offset: -5, pageSize: 40, wantField: "offset"},
		{name: "zero page size", limit: 1, pageSize: 0, wantField: "pageSize"},
		{name: "page size too large", limit: 1, pageSize: MaxPageSize + 1, wantField: "pageSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateListing(tt.limit, tt.offset, tt.pageSize)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			requireConfigField(t, err, tt.wantField)
		})
	}
}

func TestValidator_ValidateUsername(t *testing.T) {
	v := NewValidator()

	valid := []string{"griffpatch", "abc", "user_name-1", strings.Repeat("a", 20)}
	for _, name := range valid {
		assert.NoError(t, v.ValidateUsername(name), name)
	}

	invalid := []string{"", "ab", strings.Repeat("a", 21), "has space", "bad!", "ünï"}
	for _, name := range invalid {
		requireConfigField(t, v.ValidateUsername(name), "username")
	}
}

func TestValidator_ValidateID(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateID("projectID", 1))
	requireConfigField(t, v.ValidateID("projectID", 0), "projectID")
	requireConfigField(t, v.ValidateID("studioID", -3), "studioID")
}

func TestValidator_ValidateCommentContent(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateCommentContent("nice project"))
	assert.NoError(t, v.ValidateCommentContent(strings.Repeat("é", 500)))

	requireConfigField(t, v.ValidateCommentContent(""), "content")
	requireConfigField(t, v.ValidateCommentContent("   \n"), "content")
	requireConfigField(t, v.ValidateCommentContent(strings.Repeat("x", 501)), "content")
}

func TestValidator_ValidateUserAgent(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateUserAgent("scratchctl/1.0"))

	requireConfigField(t, v.ValidateUserAgent(""), "UserAgent")
	requireConfigField(t, v.ValidateUserAgent("bad\r\nX-Evil: 1"), "UserAgent")
	requireConfigField(t, v.ValidateUserAgent(strings.Repeat("a", 257)), "UserAgent")
}
