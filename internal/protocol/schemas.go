package protocol

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/describe.schema.json
var describeSchemaJSON string

var describeSchema = jsonschema.MustCompileString("describe.schema.json", describeSchemaJSON)

// ValidateDescribe checks a raw DESCRIBE payload against the wire schema and
// decodes it.
func ValidateDescribe(raw []byte) (DescribeMsg, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return DescribeMsg{}, fmt.Errorf("decode: %w", err)
	}
	if err := describeSchema.Validate(doc); err != nil {
		return DescribeMsg{}, fmt.Errorf("schema: %w", err)
	}
	var msg DescribeMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return DescribeMsg{}, fmt.Errorf("decode: %w", err)
	}
	return msg, nil
}
