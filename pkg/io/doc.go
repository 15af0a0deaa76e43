// Package io provides JSON import and export for workflow graphs.
//
// # JSON Format
//
// A graph is an object with "nodes" and "edges" arrays and an optional
// free-text "explanation":
//
//	{
//	  "nodes": [
//	    {"id": "start", "type": "form", "label": "Signup form"},
//	    {"id": "save", "type": "gsheets", "position": {"x": 100, "y": 280}}
//	  ],
//	  "edges": [
//	    {"id": "e1", "source": "start", "target": "save", "sourceHandle": "output"}
//	  ]
//	}
//
// Everything except the two arrays is optional; missing fields are what the
// repair engine exists to fill in. Edges written by other graph tools with
// "from"/"to" instead of "source"/"target" are accepted on import.
//
// # Import
//
// Use [ImportJSON] to read a graph from a file path, or [ReadJSON] to read
// from any io.Reader. Both reject malformed JSON and graphs above the request
// size limits with coded errors; they do not check graph invariants.
//
// # Export
//
// Use [ExportJSON] to write a graph to a file, or [WriteJSON] to write to any
// io.Writer. Output is indented and always carries both arrays, so it can be
// fed straight back into [ReadJSON].
package io
