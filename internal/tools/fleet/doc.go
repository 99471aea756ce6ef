// Package fleettools exposes the dispatcher as MCP tools.
//
// Every tool maps onto one dispatch action and returns the dispatch Result
// as indented JSON. Notices travel inside the result; a tool call is only
// flagged as an error when it produced no data at all.
package fleettools
