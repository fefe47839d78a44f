package internal

import (
	"fmt"
	"strings"
	"unicode/utf8"

	pkgerrs "github.com/jamesprial/go-scratch-api-wrapper/pkg/errors"
)

const (
	// Username constraints
	minUsernameLength = 3
	maxUsernameLength = 20

	// MaxPageSize is the largest page the listing endpoints serve.
	MaxPageSize = 40

	// Comment constraints
	maxCommentLength = 500

	// User agent constraints
	maxUserAgentLength = 256
)

// Validator provides validation operations for API parameters.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateListing checks offset/limit/page-size parameters of a listing walk.
func (v *Validator) ValidateListing(limit, offset, pageSize int) error {
	if limit < 0 {
		return &pkgerrs.ConfigError{Field: "limit", Message: "limit cannot be negative"}
	}
	if offset < 0 {
		return &pkgerrs.ConfigError{Field: "offset", Message: "offset cannot be negative"}
	}
	if pageSize < 1 {
		return &pkgerrs.ConfigError{Field: "pageSize", Message: "page size must be at least 1"}
	}
	if pageSize > MaxPageSize {
		return &pkgerrs.ConfigError{Field: "pageSize", Message: fmt.Sprintf("page size cannot exceed %d", MaxPageSize)}
	}
	return nil
}

// ValidateUsername checks if a username follows the platform's naming rules.
func (v *Validator) ValidateUsername(name string) error {
	if name == "" {
		return &pkgerrs.ConfigError{Field: "username", Message: "username cannot be empty"}
	}
	if len(name) < minUsernameLength || len(name) > maxUsernameLength {
		return &pkgerrs.ConfigError{Field: "username", Message: fmt.Sprintf("username must be %d-%d characters", minUsernameLength, maxUsernameLength)}
	}
	for i, ch := range name {
		if !(ch >= 'a' && ch <= 'z') && !(ch >= 'A' && ch <= 'Z') && !(ch >= '0' && ch <= '9') && ch != '_' && ch != '-' {
			return &pkgerrs.ConfigError{Field: "username", Message: fmt.Sprintf("username contains invalid character '%c' at position %d", ch, i)}
		}
	}
	return nil
}

// ValidateID checks that a numeric identifier is positive.
func (v *Validator) ValidateID(field string, id int64) error {
	if id <= 0 {
		return &pkgerrs.ConfigError{Field: field, Message: "id must be positive"}
	}
	return nil
}

// ValidateCommentContent checks a comment body before it is posted.
func (v *Validator) ValidateCommentContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return &pkgerrs.ConfigError{Field: "content", Message: "comment content cannot be empty"}
	}
	if n := utf8.RuneCountInString(content); n > maxCommentLength {
		return &pkgerrs.ConfigError{Field: "content", Message: fmt.Sprintf("comment content cannot exceed %d characters (got %d)", maxCommentLength, n)}
	}
	return nil
}

// ValidateUserAgent validates the User-Agent string to prevent header injection attacks.
func (v *Validator) ValidateUserAgent(ua string) error {
	if len(ua) == 0 {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: "user agent cannot be empty"}
	}

	// Check for newline characters that could be used for header injection
	if strings.ContainsAny(ua, "\r\n") {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: "user agent cannot contain newline characters"}
	}

	if len(ua) > maxUserAgentLength {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: fmt.Sprintf("user agent too long (max %d characters)", maxUserAgentLength)}
	}

	return nil
}
