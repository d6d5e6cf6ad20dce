package main

import (
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// kvFlag collects repeated field=value flags.
type kvFlag []string

func (kv *kvFlag) String() string { return strings.Join(*kv, " ") }

func (kv *kvFlag) Set(value string) error {
	if !strings.Contains(value, "=") {
		return errors.Errorf("%q is not of the form field=value", value)
	}
	*kv = append(*kv, value)
	return nil
}

// pairs splits the flags; the last value of a repeated field wins.
func (kv kvFlag) pairs() (map[string]string, error) {
	m := make(map[string]string, len(kv))
	for _, pair := range kv {
		parts := strings.SplitN(pair, "=", 2)
		key := strings.TrimSpace(parts[0])
		if key == "" {
			return nil, errors.Errorf("%q has no field name", pair)
		}
		m[key] = parts[1]
	}
	return m, nil
}

// decodeFields sets the draft fields named by their wire (json) names, converting values
// from text. Unknown fields are an error.
func decodeFields(fields map[string]string, draft interface{}) error {
	if _, ok := fields["id"]; ok {
		return errors.New("the id cannot be set, use -id to pick the record to update")
	}
	input := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		input[k] = v
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           draft,
	})
	if err != nil {
		return errors.Wrap(err, "building field decoder")
	}
	return errors.Wrap(dec.Decode(input), "setting fields")
}
