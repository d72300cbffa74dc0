package claim

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ValueType tags how a claim value is interpreted when it is emitted into a token.
type ValueType string

const (
	ValueTypeString  ValueType = "http://www.w3.org/2001/XMLSchema#string"
	ValueTypeBoolean ValueType = "http://www.w3.org/2001/XMLSchema#boolean"
	ValueTypeJSON    ValueType = "json"
)

// Well-known claim types used by the seed data and the token endpoint.
const (
	TypeSubject       = "sub"
	TypeName          = "name"
	TypeGivenName     = "given_name"
	TypeFamilyName    = "family_name"
	TypeEmail         = "email"
	TypeEmailVerified = "email_verified"
	TypeWebSite       = "website"
	TypeAddress       = "address"
	TypeRole          = "role"
	TypePermission    = "permission"
)

var (
	ErrInvalidClaimType  = errors.New("invalid claim type")
	ErrInvalidClaimValue = errors.New("invalid claim value")
	ErrUnknownValueType  = errors.New("unknown claim value type")
)

type Claim struct {
	Type      string
	Value     string
	ValueType ValueType
}

func String(typ, value string) Claim {
	return Claim{Type: typ, Value: value, ValueType: ValueTypeString}
}

func Bool(typ string, value bool) Claim {
	return Claim{Type: typ, Value: strconv.FormatBool(value), ValueType: ValueTypeBoolean}
}

// JSON builds a JSON-typed claim from an already encoded document.
func JSON(typ string, raw string) Claim {
	return Claim{Type: typ, Value: raw, ValueType: ValueTypeJSON}
}

// Kind returns the value type, treating an empty tag as a plain string.
func (c Claim) Kind() ValueType {
	if c.ValueType == "" {
		return ValueTypeString
	}
	return c.ValueType
}

func (c Claim) Validate() error {
	if c.Type == "" {
		return ErrInvalidClaimType
	}
	switch c.Kind() {
	case ValueTypeString:
		return nil
	case ValueTypeBoolean:
		if _, err := strconv.ParseBool(c.Value); err != nil {
			return fmt.Errorf("%s: %w", c.Type, ErrInvalidClaimValue)
		}
		return nil
	case ValueTypeJSON:
		if !json.Valid([]byte(c.Value)) {
			return fmt.Errorf("%s: %w", c.Type, ErrInvalidClaimValue)
		}
		return nil
	default:
		return fmt.Errorf("%s: %w", c.ValueType, ErrUnknownValueType)
	}
}

// Typed returns the value in the shape it takes inside a JSON token payload:
// string, bool or a decoded JSON document.
func (c Claim) Typed() (any, error) {
	switch c.Kind() {
	case ValueTypeBoolean:
		b, err := strconv.ParseBool(c.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Type, ErrInvalidClaimValue)
		}
		return b, nil
	case ValueTypeJSON:
		var v any
		if err := json.Unmarshal([]byte(c.Value), &v); err != nil {
			return nil, fmt.Errorf("%s: %w", c.Type, ErrInvalidClaimValue)
		}
		return v, nil
	case ValueTypeString:
		return c.Value, nil
	default:
		return nil, fmt.Errorf("%s: %w", c.ValueType, ErrUnknownValueType)
	}
}
