package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jamesprial/go-scratch-api-wrapper/pkg/types"
)

// ErrNotObject reports a body that decoded to something other than a JSON object.
var ErrNotObject = errors.New("response body is not a JSON object")

// ErrNotList reports a listing body that decoded to something other than a JSON array.
var ErrNotList = errors.New("listing body is not a JSON array")

// Parser handles decoding of API response bodies.
type Parser struct{}

// NewParser creates a new parser instance
func NewParser() *Parser {
	return &Parser{}
}

// DecodeObject decodes body as a JSON object.
func (p *Parser) DecodeObject(body []byte) (types.Object, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}

	var obj types.Object
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	return obj, nil
}

// DecodePage decodes a listing body into its raw items.
func (p *Parser) DecodePage(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotList
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotList, err)
	}
	return items, nil
}

// DecodeItem decodes one listing item as a JSON object.
func (p *Parser) DecodeItem(raw json.RawMessage) (types.Object, error) {
	return p.DecodeObject(raw)
}
