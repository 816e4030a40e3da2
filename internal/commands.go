package loadsetup

import (
	"encoding/xml"
	"os"
)

type commandsXML struct {
	Commands []string `xml:"command"`
}

// LoadCommandCatalog() reads the flat command catalog document: a root
// element holding repeated <command> entries. The catalog is offered
// to the operator for quick selection and has no execution semantics
// of its own.
func LoadCommandCatalog(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigError{Kind: ConfigNotFound, Path: path, Err: err}
		}
		return nil, &ConfigError{Kind: ConfigMalformed, Path: path, Err: err}
	}
	var doc commandsXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Kind: ConfigMalformed, Path: path, Err: err}
	}
	return doc.Commands, nil
}
