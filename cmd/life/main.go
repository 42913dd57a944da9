// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command life runs the Game of Life board server, or the engine directly on
// a board file.
//
// Usage:
//
//	life serve --config life.yaml
//	life serve --store memory --port 8080
//	life step --file board.json
//	life advance --file board.yaml --steps 10
//	life final --file board.json --max-attempts 1000
//
// Board files are JSON or YAML with a "state" key holding rows of booleans,
// or text with one row per line ('#' or 'O' live, '.' dead):
//
//	{"state": [[false, true, false], [false, true, false], [false, true, false]]}
//
// Example requests against a running server:
//
//	# Upload a board
//	curl -X POST http://localhost:12230/v1/boards \
//	  -H "Content-Type: application/json" \
//	  -d '{"state": [[false,true,false],[false,true,false],[false,true,false]]}'
//
//	# Step it
//	curl http://localhost:12230/v1/boards/<id>/next
//
//	# Find its terminal configuration
//	curl "http://localhost:12230/v1/boards/<id>/final?maxAttempts=100"
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
