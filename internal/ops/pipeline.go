// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parses a pipeline, i.e. a sequence of operators, from JSON
func ParsePipelineJSON(data []byte) (*OpSequence, error) {
	seq := NewOpSequenceDefault()
	if err := json.Unmarshal(data, seq); err != nil {
		return nil, err
	}
	if seq.Type != "seq" {
		return nil, fmt.Errorf("pipeline must be of type seq, got '%s'", seq.Type)
	}
	return seq, nil
}

// Parses a pipeline from YAML. The document is converted to JSON first,
// so YAML pipelines use the same field names and defaults as JSON pipelines.
func ParsePipelineYAML(data []byte) (*OpSequence, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return ParsePipelineJSON(js)
}

// Loads a pipeline from a .json, .yaml or .yml file
func LoadPipelineFile(fileName string) (*OpSequence, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline %s: %w", fileName, err)
	}
	var seq *OpSequence
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".json":
		seq, err = ParsePipelineJSON(data)
	case ".yaml", ".yml":
		seq, err = ParsePipelineYAML(data)
	default:
		return nil, fmt.Errorf("unknown pipeline format for %s", fileName)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing pipeline %s: %w", fileName, err)
	}
	return seq, nil
}

// Runs a pipeline without inputs and materializes its outputs
func Run(seq Operator, c *Context) error {
	promises, err := seq.MakePromises(nil, c)
	if err != nil {
		return err
	}
	_, err = MaterializeAll(promises, c.MaxThreads, true)
	return err
}
