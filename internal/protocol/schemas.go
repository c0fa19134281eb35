package protocol

import (
	"embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Schema compiles the embedded JSON schema for a message type, e.g. TypeOp.
func Schema(msgType string) (*jsonschema.Schema, error) {
	name := map[string]string{
		TypeHello:   "hello",
		TypeWelcome: "welcome",
		TypeOp:      "op",
		TypeResult:  "result",
	}[msgType]
	if name == "" {
		return nil, fmt.Errorf("no schema for %q", msgType)
	}
	path := "schemas/" + name + ".schema.json"
	f, err := schemaFS.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c := jsonschema.NewCompiler()
	if err := c.AddResource(path, f); err != nil {
		return nil, err
	}
	return c.Compile(path)
}
