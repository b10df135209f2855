package schemafile

import (
	"fmt"
	"os"
)

// Template returns an example schema file.
func Template() string {
	return helloTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("schema already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(helloTemplate), 0o600)
}

const helloTemplate = `# dynstruct message schema
name = "hello"
byte_order = "<"

[[fields]]
name = "hello"
code = "B"
default = 1

[[fields]]
name = "world"
code = "B"

[[fields]]
name = "payload"
code = "s"
match_length = true
`
