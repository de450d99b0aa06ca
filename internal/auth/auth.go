package auth

import (
	"context"
	"fmt"
	"strings"
)

// Identity describes the caller resolved from an API key.
type Identity struct {
	Client string
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

// StaticAPIKeyValidator resolves identities from a fixed key set loaded at
// startup. The spec format is "key:client,key2:client2"; a bare "key" entry
// maps to an anonymous client.
type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key := entry
		client := "default"
		if index := strings.IndexByte(entry, ':'); index >= 0 {
			key = strings.TrimSpace(entry[:index])
			client = strings.TrimSpace(entry[index+1:])
		}
		if key == "" || client == "" {
			return nil, fmt.Errorf("invalid static key entry %q: expected key or key:client", entry)
		}
		validator.keys[key] = Identity{Client: client}
	}

	return validator, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}
