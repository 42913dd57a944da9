// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/AleutianLife/services/life/engine"
	"gopkg.in/yaml.v3"
)

// gridFile is the JSON/YAML board file layout.
type gridFile struct {
	State [][]bool `json:"state" yaml:"state"`
}

// readGrid loads a board from path. "-" reads JSON from in.
func readGrid(path string, in io.Reader) (engine.Grid, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return engine.Grid{}, fmt.Errorf("read board file: %w", err)
	}

	cells, err := decodeGrid(filepath.Ext(path), data)
	if err != nil {
		return engine.Grid{}, fmt.Errorf("parse board file %s: %w", path, err)
	}
	return engine.NewGrid(cells)
}

// decodeGrid picks the decoder by file extension.
func decodeGrid(ext string, data []byte) ([][]bool, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var f gridFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f.State, nil
	case ".txt", ".cells":
		return decodeText(data)
	default:
		var f gridFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f.State, nil
	}
}

// decodeText parses one row per line. '#', 'O' and '*' are live, '.' is
// dead. Lines starting with '!' are comments. A blank line after the first
// row is a row of dead cells as wide as the first row; blank lines before
// the first row and at the end of the file are ignored.
func decodeText(data []byte) ([][]bool, error) {
	var (
		rows    [][]bool
		pending int
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), " \t\r")
		if strings.HasPrefix(text, "!") {
			continue
		}
		if text == "" {
			if len(rows) > 0 {
				pending++
			}
			continue
		}

		for ; pending > 0; pending-- {
			rows = append(rows, make([]bool, len(rows[0])))
		}

		row := make([]bool, 0, len(text))
		for i, ch := range text {
			switch ch {
			case '#', 'O', '*':
				row = append(row, true)
			case '.':
				row = append(row, false)
			default:
				return nil, fmt.Errorf("line %d col %d: unexpected %q", line, i+1, ch)
			}
		}
		rows = append(rows, row)
	}
	return rows, sc.Err()
}
